package services

import (
	"context"
	"database/sql"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/isdelr/messagely-be/internal/database"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.Migrate(context.Background(), db))
	return db
}

func newTestUserService(t *testing.T, db *sql.DB) *UserService {
	t.Helper()
	svc, err := NewUserService(db, bcrypt.MinCost)
	require.NoError(t, err)
	return svc
}

func registerUser(t *testing.T, svc *UserService, username string) {
	t.Helper()
	_, err := svc.Register(context.Background(), RegisterInput{
		Username:  username,
		Password:  username + "-pw",
		FirstName: "First",
		LastName:  "Last",
		Phone:     "+15550000000",
	})
	require.NoError(t, err)
}

// fixedClock returns a settable clock for deterministic timestamps.
func fixedClock(start time.Time) (func() time.Time, func(time.Time)) {
	var mu sync.Mutex
	now := start
	return func() time.Time {
			mu.Lock()
			defer mu.Unlock()
			return now
		}, func(t time.Time) {
			mu.Lock()
			defer mu.Unlock()
			now = t
		}
}

type notification struct {
	username string
	action   string
	payload  interface{}
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []notification
}

func (n *recordingNotifier) Notify(username, action string, payload interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, notification{username, action, payload})
}
