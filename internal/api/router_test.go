package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	gws "github.com/gorilla/websocket"
	"github.com/isdelr/messagely-be/internal/auth"
	"github.com/isdelr/messagely-be/internal/database"
	"github.com/isdelr/messagely-be/internal/monitoring"
	"github.com/isdelr/messagely-be/internal/services"
	"github.com/isdelr/messagely-be/internal/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestAPI(t *testing.T) (*httptest.Server, *auth.TokenService, *services.UserService) {
	t.Helper()

	db, err := database.New(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.Migrate(context.Background(), db))

	users, err := services.NewUserService(db, bcrypt.MinCost)
	require.NoError(t, err)
	events := services.NewEventService(db)
	hub := websocket.NewHub()
	go hub.Run()
	t.Cleanup(hub.Stop)

	sampler, err := monitoring.NewSampler()
	require.NoError(t, err)

	tokens := auth.NewTokenService([]byte("test-secret"), 0)
	router := NewRouter(Deps{
		Hub:            hub,
		Tokens:         tokens,
		Auth:           services.NewAuthService(users, tokens, events),
		Users:          users,
		Messages:       services.NewMessageService(db, events, hub),
		Events:         events,
		Stats:          sampler,
		AllowedOrigins: []string{"http://localhost:3000"},
	})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv, tokens, users
}

func do(t *testing.T, srv *httptest.Server, method, path, token string, body interface{}) (int, map[string]interface{}) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, srv.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	out := map[string]interface{}{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func register(t *testing.T, srv *httptest.Server, username string) string {
	t.Helper()
	status, body := do(t, srv, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"username":   username,
		"password":   username + "-pw",
		"first_name": "First " + username,
		"last_name":  "Tester",
		"phone":      "555-0100",
	})
	require.Equal(t, http.StatusOK, status, body)
	return body["token"].(string)
}

func login(t *testing.T, srv *httptest.Server, username string) string {
	t.Helper()
	status, body := do(t, srv, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"username": username,
		"password": username + "-pw",
	})
	require.Equal(t, http.StatusOK, status, body)
	assert.Contains(t, body["message"], username)
	return body["token"].(string)
}

func errorStatus(body map[string]interface{}) float64 {
	e, _ := body["error"].(map[string]interface{})
	s, _ := e["status"].(float64)
	return s
}

func TestEndToEnd_SendReadMarkRead(t *testing.T) {
	srv, _, _ := newTestAPI(t)

	register(t, srv, "alice")
	register(t, srv, "bob")
	register(t, srv, "carol")

	aliceTok := login(t, srv, "alice")
	status, body := do(t, srv, http.MethodPost, "/api/v1/messages", aliceTok, map[string]string{
		"to_username": "bob",
		"body":        "hi",
	})
	require.Equal(t, http.StatusCreated, status, body)
	sent := body["message"].(map[string]interface{})
	id := sent["id"].(string)
	assert.NotEmpty(t, id)
	assert.NotEmpty(t, sent["sent_at"])
	assert.Equal(t, "alice", sent["from_username"])
	assert.Equal(t, "bob", sent["to_username"])
	assert.Equal(t, "hi", sent["body"])

	bobTok := login(t, srv, "bob")
	status, body = do(t, srv, http.MethodGet, "/api/v1/messages/"+id, bobTok, nil)
	require.Equal(t, http.StatusOK, status, body)
	got := body["message"].(map[string]interface{})
	assert.Nil(t, got["read_at"])
	assert.Equal(t, "alice", got["from_user"].(map[string]interface{})["username"])
	assert.Equal(t, "bob", got["to_user"].(map[string]interface{})["username"])

	// the sender may view it too
	status, _ = do(t, srv, http.MethodGet, "/api/v1/messages/"+id, aliceTok, nil)
	assert.Equal(t, http.StatusOK, status)

	// a third party may not
	carolTok := login(t, srv, "carol")
	status, body = do(t, srv, http.MethodGet, "/api/v1/messages/"+id, carolTok, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, float64(http.StatusUnauthorized), errorStatus(body))

	status, body = do(t, srv, http.MethodPost, "/api/v1/messages/"+id+"/read", bobTok, nil)
	require.Equal(t, http.StatusOK, status, body)
	read := body["message"].(map[string]interface{})
	assert.Equal(t, id, read["id"])
	assert.NotNil(t, read["read_at"])

	status, _ = do(t, srv, http.MethodPost, "/api/v1/messages/"+id+"/read", aliceTok, nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	// second mark by the recipient is a no-op with the same timestamp
	status, body = do(t, srv, http.MethodPost, "/api/v1/messages/"+id+"/read", bobTok, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, read["read_at"], body["message"].(map[string]interface{})["read_at"])
}

func TestMessages_Errors(t *testing.T) {
	srv, _, _ := newTestAPI(t)
	aliceTok := register(t, srv, "alice")
	register(t, srv, "bob")

	status, _ := do(t, srv, http.MethodPost, "/api/v1/messages", aliceTok, map[string]string{"to_username": "bob"})
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = do(t, srv, http.MethodPost, "/api/v1/messages", aliceTok, map[string]string{"body": "hi"})
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = do(t, srv, http.MethodPost, "/api/v1/messages", "", map[string]string{"to_username": "bob", "body": "hi"})
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = do(t, srv, http.MethodGet, "/api/v1/messages/nope", aliceTok, nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = do(t, srv, http.MethodPost, "/api/v1/messages/nope/read", aliceTok, nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = do(t, srv, http.MethodGet, "/api/v1/messages/nope", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = do(t, srv, http.MethodGet, "/api/v1/messages/nope", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestAuth_Errors(t *testing.T) {
	srv, _, _ := newTestAPI(t)
	register(t, srv, "alice")

	status, wrong := do(t, srv, http.MethodPost, "/api/v1/auth/login", "", map[string]string{"username": "alice", "password": "nope"})
	assert.Equal(t, http.StatusBadRequest, status)
	status, unknown := do(t, srv, http.MethodPost, "/api/v1/auth/login", "", map[string]string{"username": "ghost", "password": "nope"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, wrong, unknown)

	status, body := do(t, srv, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"username": "alice", "password": "x", "first_name": "A", "last_name": "B", "phone": "1",
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, float64(http.StatusBadRequest), errorStatus(body))

	status, _ = do(t, srv, http.MethodPost, "/api/v1/auth/register", "", map[string]string{"username": "dave"})
	assert.Equal(t, http.StatusBadRequest, status)

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/v1/auth/login", strings.NewReader("{not json"))
	require.NoError(t, err)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestUsers_AccessControl(t *testing.T) {
	srv, tokens, _ := newTestAPI(t)
	aliceTok := register(t, srv, "alice")
	bobTok := register(t, srv, "bob")

	status, body := do(t, srv, http.MethodPost, "/api/v1/messages", bobTok, map[string]string{"to_username": "alice", "body": "yo"})
	require.Equal(t, http.StatusCreated, status, body)

	status, body = do(t, srv, http.MethodGet, "/api/v1/users", aliceTok, nil)
	require.Equal(t, http.StatusOK, status)
	users := body["users"].([]interface{})
	assert.Len(t, users, 2)
	_, leaked := users[0].(map[string]interface{})["password_hash"]
	assert.False(t, leaked)

	status, _ = do(t, srv, http.MethodGet, "/api/v1/users", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, body = do(t, srv, http.MethodGet, "/api/v1/users/alice", aliceTok, nil)
	require.Equal(t, http.StatusOK, status)
	user := body["user"].(map[string]interface{})
	assert.Equal(t, "alice", user["username"])
	assert.NotEmpty(t, user["join_at"])
	assert.NotNil(t, user["last_login_at"])

	for _, path := range []string{"/api/v1/users/alice", "/api/v1/users/alice/to", "/api/v1/users/alice/from", "/api/v1/users/alice/events"} {
		status, _ = do(t, srv, http.MethodGet, path, bobTok, nil)
		assert.Equal(t, http.StatusUnauthorized, status, path)
	}

	status, body = do(t, srv, http.MethodGet, "/api/v1/users/alice/to", aliceTok, nil)
	require.Equal(t, http.StatusOK, status)
	inbox := body["messages"].([]interface{})
	require.Len(t, inbox, 1)
	assert.Equal(t, "bob", inbox[0].(map[string]interface{})["from_user"].(map[string]interface{})["username"])

	status, body = do(t, srv, http.MethodGet, "/api/v1/users/bob/from", bobTok, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["messages"].([]interface{}), 1)

	status, body = do(t, srv, http.MethodGet, "/api/v1/users/alice/events", aliceTok, nil)
	require.Equal(t, http.StatusOK, status)
	assert.NotEmpty(t, body["events"])

	// validly signed token for an account that does not exist
	ghostTok, err := tokens.Issue("ghost")
	require.NoError(t, err)
	status, _ = do(t, srv, http.MethodGet, "/api/v1/users", ghostTok, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestHealth(t *testing.T) {
	srv, _, _ := newTestAPI(t)
	status, body := do(t, srv, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])

	system, ok := body["system"].(map[string]interface{})
	require.True(t, ok, body)
	assert.Positive(t, system["process_rss_bytes"])
	assert.Positive(t, system["goroutines"])
}

func TestSendAlias(t *testing.T) {
	srv, _, _ := newTestAPI(t)
	aliceTok := register(t, srv, "alice")
	bobTok := register(t, srv, "bob")

	status, body := do(t, srv, http.MethodPost, "/api/v1/messages/send", aliceTok, map[string]string{"to_username": "bob", "body": "legacy path"})
	require.Equal(t, http.StatusCreated, status, body)
	id := body["message"].(map[string]interface{})["id"].(string)

	status, body = do(t, srv, http.MethodGet, "/api/v1/messages/"+id, bobTok, nil)
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, "legacy path", body["message"].(map[string]interface{})["body"])
}

func TestOwnRoutes_UnusualUsernames(t *testing.T) {
	srv, _, _ := newTestAPI(t)

	for _, name := range []string{"a b", "é"} {
		tok := register(t, srv, name)
		status, body := do(t, srv, http.MethodGet, "/api/v1/users/"+url.PathEscape(name), tok, nil)
		assert.Equal(t, http.StatusOK, status, "%q: %v", name, body)
	}

	status, body := do(t, srv, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"username":   "a/b",
		"password":   "pw",
		"first_name": "A",
		"last_name":  "B",
		"phone":      "555-0100",
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, float64(http.StatusBadRequest), errorStatus(body))
}

func TestWebSocket_NotifiesParticipants(t *testing.T) {
	srv, _, _ := newTestAPI(t)
	aliceTok := register(t, srv, "alice")
	bobTok := register(t, srv, "bob")

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/ws"

	_, resp, err := gws.DefaultDialer.Dial(wsURL, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	conn, _, err := gws.DefaultDialer.Dial(wsURL+"?_token="+bobTok, nil)
	require.NoError(t, err)
	defer conn.Close()

	// give the hub a moment to register the client
	time.Sleep(50 * time.Millisecond)

	status, body := do(t, srv, http.MethodPost, "/api/v1/messages", aliceTok, map[string]string{"to_username": "bob", "body": "ping"})
	require.Equal(t, http.StatusCreated, status, body)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg websocket.Message
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, services.ActionMessageSent, msg.Action)
	payload := msg.Payload.(map[string]interface{})
	assert.Equal(t, "ping", payload["body"])
	assert.Equal(t, "alice", payload["from_username"])
}
