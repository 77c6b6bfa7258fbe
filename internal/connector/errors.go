package connector

import (
	"errors"
	"fmt"
)

// Sentinel errors for the register and connect flows. ErrNoUsers and
// ErrMatchUnavailable carry the exact messages returned to API callers.
var (
	// ErrInvalidRequest marks request payloads that fail validation.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrNoUsers indicates the candidate pool was empty before matching.
	ErrNoUsers = errors.New("No users found in our network")

	// ErrMatchUnavailable indicates the match service failed with no
	// candidate to fall back to.
	ErrMatchUnavailable = errors.New("Error processing match and no candidates available. Please try again later.")

	// ErrNoMatch tags NoMatchError for errors.Is checks.
	ErrNoMatch = errors.New("no matching users found")
)

// NoMatchError is returned when the match service reviewed the candidates
// and reported that none fit the request.
type NoMatchError struct {
	LookingFor string
}

func (e *NoMatchError) Error() string {
	return fmt.Sprintf("No users matching your specific requirements ('%s') were found in our network.", e.LookingFor)
}

func (e *NoMatchError) Is(target error) bool {
	return target == ErrNoMatch
}
