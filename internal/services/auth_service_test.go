package services

import (
	"context"
	"errors"
	"testing"

	"github.com/isdelr/messagely-be/internal/auth"
	"github.com/isdelr/messagely-be/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flakyTouchUsers wraps a real UserService but fails the timestamp write.
type flakyTouchUsers struct {
	*UserService
	touched []string
}

func (f *flakyTouchUsers) UpdateLastAuthenticated(_ context.Context, username string) error {
	f.touched = append(f.touched, username)
	return errors.New("disk full")
}

type failingIssuer struct{}

func (failingIssuer) Issue(string) (string, error) { return "", errors.New("no key") }

func TestAuthService_LoginAndRegister(t *testing.T) {
	db := setupDB(t)
	users := newTestUserService(t, db)
	events := NewEventService(db)
	tokens := auth.NewTokenService([]byte("test-secret"), 0)
	svc := NewAuthService(users, tokens, events)
	ctx := context.Background()

	res, err := svc.Register(ctx, RegisterInput{
		Username: "alice", Password: "pw", FirstName: "A", LastName: "L", Phone: "1",
	})
	require.NoError(t, err)
	assert.Contains(t, res.Message, "alice")
	got, err := tokens.Verify(res.Token)
	require.NoError(t, err)
	assert.Equal(t, "alice", got)

	res, err = svc.Login(ctx, "alice", "pw")
	require.NoError(t, err)
	got, err = tokens.Verify(res.Token)
	require.NoError(t, err)
	assert.Equal(t, "alice", got)

	_, err = svc.Login(ctx, "alice", "wrong")
	assert.ErrorIs(t, err, common.ErrInvalidCredentials)
	_, err = svc.Login(ctx, "ghost", "pw")
	assert.ErrorIs(t, err, common.ErrInvalidCredentials)
	_, err = svc.Login(ctx, "", "")
	assert.ErrorIs(t, err, common.ErrInvalidCredentials)

	_, err = svc.Register(ctx, RegisterInput{
		Username: "alice", Password: "pw2", FirstName: "A", LastName: "L", Phone: "1",
	})
	assert.ErrorIs(t, err, common.ErrDuplicateIdentity)

	evs, err := events.GetRecentForUser(ctx, "alice", 10)
	require.NoError(t, err)
	var types []string
	for _, e := range evs {
		types = append(types, e.Type)
	}
	assert.ElementsMatch(t, []string{"auth.register", "auth.login", "auth.login.fail"}, types)
}

func TestAuthService_TimestampFailureIsNotFatal(t *testing.T) {
	db := setupDB(t)
	users := &flakyTouchUsers{UserService: newTestUserService(t, db)}
	svc := NewAuthService(users, auth.NewTokenService([]byte("k"), 0), nil)
	ctx := context.Background()

	res, err := svc.Register(ctx, RegisterInput{
		Username: "bob", Password: "pw", FirstName: "B", LastName: "L", Phone: "1",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)

	res, err = svc.Login(ctx, "bob", "pw")
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)

	assert.Equal(t, []string{"bob", "bob"}, users.touched)
}

func TestAuthService_IssueFailure(t *testing.T) {
	db := setupDB(t)
	users := newTestUserService(t, db)
	registerUser(t, users, "alice")
	svc := NewAuthService(users, failingIssuer{}, nil)

	_, err := svc.Login(context.Background(), "alice", "alice-pw")
	require.Error(t, err)
	assert.NotErrorIs(t, err, common.ErrInvalidCredentials)
}

var _ UserServiceProvider = (*flakyTouchUsers)(nil)
