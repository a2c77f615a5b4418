package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/fitzroyhq/tokend/internal/tokend/domain"
)

// Static serves user records from a fixed in-memory set. It backs dev
// setups, tests, and e2e runs where no real user service exists.
type Static struct {
	users map[string]domain.User
}

func NewStatic(users []domain.User) *Static {
	m := make(map[string]domain.User, len(users))
	for _, u := range users {
		m[u.ID] = u
	}
	return &Static{users: m}
}

// NewStaticFromJSON reads a JSON array of user records.
func NewStaticFromJSON(r io.Reader) (*Static, error) {
	var users []domain.User
	if err := json.NewDecoder(r).Decode(&users); err != nil {
		return nil, fmt.Errorf("directory: decode users: %w", err)
	}
	for _, u := range users {
		if u.ID == "" {
			return nil, fmt.Errorf("directory: user record without id")
		}
	}
	return NewStatic(users), nil
}

// NewStaticFromFile loads a JSON user file from disk.
func NewStaticFromFile(path string) (*Static, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("directory: open users file: %w", err)
	}
	defer f.Close()
	return NewStaticFromJSON(f)
}

func (s *Static) Lookup(ctx context.Context, userID string) (domain.User, error) {
	u, ok := s.users[userID]
	if !ok {
		return domain.User{}, ErrNotFound
	}
	return u, nil
}
