package auth

import (
	"context"
	"errors"
)

var ErrNotLoggedIn = errors.New("not logged in")

var _ Checker = (*LoginChecker)(nil)
var _ Checker = (*LoginTestChecker)(nil)

type Checker interface {
	// UserIDFromToken resolves the session token to the owning user,
	// returning ErrNotLoggedIn for unknown or expired tokens
	UserIDFromToken(ctx context.Context, token string) (int, error)
}
