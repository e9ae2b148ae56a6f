package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/isdelr/messagely-be/internal/api/respond"
	"github.com/isdelr/messagely-be/internal/common"
	"github.com/rs/zerolog/hlog"
)

// TokenVerifier resolves a presented token to a username.
type TokenVerifier interface {
	Verify(token string) (string, error)
}

// PrincipalChecker reports whether a principal still has an account.
type PrincipalChecker interface {
	Exists(ctx context.Context, username string) (bool, error)
}

// TokenFromRequest extracts the bearer token from the Authorization header,
// falling back to the _token query parameter. present is true whenever the
// client sent something in either place, even if it is malformed.
func TokenFromRequest(r *http.Request) (token string, present bool) {
	if header := r.Header.Get("Authorization"); header != "" {
		scheme, value, found := strings.Cut(header, " ")
		if !found || !strings.EqualFold(scheme, "Bearer") {
			return "", true
		}
		return strings.TrimSpace(value), true
	}
	if q := r.URL.Query().Get("_token"); q != "" {
		return q, true
	}
	return "", false
}

// Identify resolves the caller's identity. Requests without a token continue
// anonymously; requests with a token that fails verification are rejected here.
func Identify(tokens TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr, present := TokenFromRequest(r)
			if !present {
				next.ServeHTTP(w, r)
				return
			}

			username, err := tokens.Verify(tokenStr)
			if err != nil {
				hlog.FromRequest(r).Warn().Err(err).Msg("Rejected auth token")
				respond.Error(w, r, common.ErrInvalidToken)
				return
			}

			ctx := WithPrincipal(r.Context(), username)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAuthenticated rejects requests without a principal, and those whose
// principal no longer has an account.
func RequireAuthenticated(users PrincipalChecker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			username, ok := PrincipalFrom(r.Context())
			if !ok {
				respond.Error(w, r, common.ErrUnauthenticated)
				return
			}

			exists, err := users.Exists(r.Context(), username)
			if err != nil {
				respond.Error(w, r, fmt.Errorf("check principal: %w", err))
				return
			}
			if !exists {
				hlog.FromRequest(r).Warn().Str("username", username).Msg("Token for unknown user")
				respond.Error(w, r, common.ErrUnauthenticated)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireSelf rejects requests whose principal differs from the named URL
// parameter.
func RequireSelf(param string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			username, ok := PrincipalFrom(r.Context())
			if !ok {
				respond.Error(w, r, common.ErrUnauthenticated)
				return
			}
			if username != chi.URLParam(r, param) {
				respond.Error(w, r, common.ErrUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
