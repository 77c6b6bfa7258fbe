// Package store owns the user profile model and its persistence backends.
// The primary backend talks to a hosted Supabase table over its REST API;
// a SQLite backend covers local and development setups.
package store

import (
	"context"
	"errors"
)

// Driver names accepted by the store.driver configuration key.
const (
	DriverSupabase = "supabase"
	DriverSQLite   = "sqlite"
)

// ErrUserNotFound is returned when a lookup by id matches no user.
var ErrUserNotFound = errors.New("user not found")

// Store is the profile persistence contract used by the rest of the app.
type Store interface {
	CreateUser(ctx context.Context, name, phone string) (*User, error)
	GetUser(ctx context.Context, id string) (*User, error)
	UpdateResume(ctx context.Context, id, url, text, category string) (*User, error)
	ListAll(ctx context.Context) (*Users, error)
	ListByCategory(ctx context.Context, category string) (*Users, error)
}
