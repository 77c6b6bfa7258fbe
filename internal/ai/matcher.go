package ai

import (
	"context"

	"superconnector/internal/store"
)

// Match is the outcome of a single matching call. A nil User means the
// service reported no suitable candidate.
type Match struct {
	User        *store.User
	Explanation string
	Raw         string
}

type Matcher interface {
	Match(ctx context.Context, lookingFor string, candidates *store.Users) (*Match, error)
}
