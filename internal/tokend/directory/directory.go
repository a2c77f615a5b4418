// Package directory resolves user ids against whatever system owns the user
// records. The token service never authenticates credentials; it only needs
// to know whether an id is real and still allowed to hold sessions.
package directory

import (
	"context"
	"errors"

	"github.com/fitzroyhq/tokend/internal/tokend/domain"
)

var ErrNotFound = errors.New("directory: user not found")

type Directory interface {
	// Lookup returns the user record for an id, or ErrNotFound.
	// A returned user with Active=false is a valid record; callers decide
	// what an inactive user may do.
	Lookup(ctx context.Context, userID string) (domain.User, error)
}
