package users

import (
	"context"

	"github.com/floroz/bazaar/pkg/auth"
)

type UserRepository interface {
	// CreateUser inserts the user. It returns ErrUsernameTaken when the
	// username already exists.
	CreateUser(ctx context.Context, user *User) error
	// GetUserByUsername returns nil, nil when no user matches.
	GetUserByUsername(ctx context.Context, username string) (*User, error)
}

type TokenIssuer interface {
	GenerateToken(username string) (*auth.AccessToken, error)
}
