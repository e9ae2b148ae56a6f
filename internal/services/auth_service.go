package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/isdelr/messagely-be/internal/common"
	"github.com/rs/zerolog/log"
)

// TokenIssuer mints identity tokens.
type TokenIssuer interface {
	Issue(username string) (string, error)
}

// AuthResult is returned by a successful login or registration.
type AuthResult struct {
	Token   string `json:"token"`
	Message string `json:"message"`
}

// AuthServiceProvider defines the interface for login and registration.
type AuthServiceProvider interface {
	Login(ctx context.Context, username, password string) (AuthResult, error)
	Register(ctx context.Context, in RegisterInput) (AuthResult, error)
}

// AuthService ties credential checks to token issuance.
type AuthService struct {
	users  UserServiceProvider
	tokens TokenIssuer
	events EventServiceProvider
}

// NewAuthService creates a new AuthService. events may be nil.
func NewAuthService(users UserServiceProvider, tokens TokenIssuer, events EventServiceProvider) *AuthService {
	return &AuthService{users: users, tokens: tokens, events: events}
}

// Login verifies credentials and returns a fresh token.
func (s *AuthService) Login(ctx context.Context, username, password string) (AuthResult, error) {
	if username == "" || password == "" {
		return AuthResult{}, common.ErrInvalidCredentials
	}

	user, err := s.users.Authenticate(ctx, username, password)
	if err != nil {
		if errors.Is(err, common.ErrInvalidCredentials) {
			s.record(ctx, "auth.login.fail", "warn", username, "Failed login attempt.")
		}
		return AuthResult{}, err
	}

	token, err := s.tokens.Issue(user.Username)
	if err != nil {
		return AuthResult{}, fmt.Errorf("failed to generate token: %w", err)
	}

	s.touch(ctx, user.Username)
	s.record(ctx, "auth.login", "info", user.Username, "User logged in.")
	return AuthResult{Token: token, Message: fmt.Sprintf("User: %s has logged in.", user.Username)}, nil
}

// Register creates the account and logs the new user in.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (AuthResult, error) {
	user, err := s.users.Register(ctx, in)
	if err != nil {
		return AuthResult{}, err
	}

	token, err := s.tokens.Issue(user.Username)
	if err != nil {
		return AuthResult{}, fmt.Errorf("failed to generate token: %w", err)
	}

	s.touch(ctx, user.Username)
	s.record(ctx, "auth.register", "info", user.Username, "User registered.")
	return AuthResult{Token: token, Message: fmt.Sprintf("User: %s has been registered.", user.Username)}, nil
}

// touch updates the last-login timestamp; failures are logged, never returned.
func (s *AuthService) touch(ctx context.Context, username string) {
	if err := s.users.UpdateLastAuthenticated(ctx, username); err != nil {
		log.Warn().Err(err).Str("username", username).Msg("Failed to update last login timestamp")
	}
}

func (s *AuthService) record(ctx context.Context, eventType, level, username, message string) {
	if s.events == nil {
		return
	}
	if err := s.events.CreateEvent(ctx, eventType, level, message, &username); err != nil {
		log.Warn().Err(err).Str("type", eventType).Msg("Failed to record audit event")
	}
}
