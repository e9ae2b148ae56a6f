package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/isdelr/messagely-be/internal/common"
)

// Participants is implemented by resources shared between a sender and a
// recipient.
type Participants interface {
	Sender() string
	Recipient() string
}

// RequireParticipant fails unless principal is the sender or the recipient.
func RequireParticipant(principal string, res Participants) error {
	if principal == "" {
		return common.ErrUnauthenticated
	}
	if principal != res.Sender() && principal != res.Recipient() {
		return fmt.Errorf("%w: %s is not a participant", common.ErrUnauthorized, principal)
	}
	return nil
}

// RequireRecipient fails unless principal is the recipient.
func RequireRecipient(principal string, res Participants) error {
	if principal == "" {
		return common.ErrUnauthenticated
	}
	if principal != res.Recipient() {
		return fmt.Errorf("%w: %s is not the recipient", common.ErrUnauthorized, principal)
	}
	return nil
}

// Authorize runs the two-step load then check pipeline for resources whose
// access decision depends on their content. A missing resource yields
// ErrNotFound whoever the caller is.
func Authorize[T Participants](ctx context.Context, load func(context.Context) (T, error), check func(string, Participants) error) (T, error) {
	var zero T

	principal, ok := PrincipalFrom(ctx)
	if !ok {
		return zero, common.ErrUnauthenticated
	}

	res, err := load(ctx)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return zero, err
		}
		return zero, fmt.Errorf("load resource: %w", err)
	}

	if err := check(principal, res); err != nil {
		return zero, err
	}
	return res, nil
}
