// Package sanitize post-processes raw match explanations before they reach
// the requester. The pipeline order is significant: internal terms are
// redacted first, then every candidate name is scrubbed, and only then is
// the winner re-identified through positional placeholders.
package sanitize

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"superconnector/internal/store"
)

const (
	neutralTerm      = "network"
	anonymousMention = "a candidate"
)

// internalTerms matches implementation words that must never reach the
// caller. Substring semantics, no word boundaries.
var internalTerms = regexp.MustCompile(`(?i)(database|file|stored|record|system)`)

// positionalRef matches a whole positional reference such as "Candidate 3".
var positionalRef = regexp.MustCompile(`Candidate \d+`)

var multiSpace = regexp.MustCompile(`\s{2,}`)

// Explanation runs the full pipeline over a raw match explanation.
func Explanation(raw string, candidates *store.Users, winner *store.User) string {
	s := RedactInternalTerms(raw)
	s = RedactNames(s, candidates, winner)
	s = RestoreWinner(s, candidates, winner)
	s = AnonymizeLeftovers(s)
	return NormalizeWhitespace(s)
}

// RedactInternalTerms replaces denylisted implementation words with a
// neutral term, case-insensitively.
func RedactInternalTerms(s string) string {
	return internalTerms.ReplaceAllString(s, neutralTerm)
}

// RedactNames scrubs every candidate's name from the text. The winner's
// name becomes the winner's own positional placeholder so RestoreWinner can
// re-attach it; every other name becomes an anonymous mention. Names of two
// runes or fewer are left alone.
func RedactNames(s string, candidates *store.Users, winner *store.User) string {
	if candidates == nil {
		return s
	}

	for i, candidate := range candidates.Items {
		name := strings.TrimSpace(candidate.Name)
		if utf8.RuneCountInString(name) <= 2 {
			continue
		}

		replacement := anonymousMention
		if isWinner(candidate, winner) {
			replacement = fmt.Sprintf("Candidate %d", i+1)
		}

		pattern := regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(name) + `\b`)
		s = pattern.ReplaceAllLiteralString(s, replacement)
	}

	return s
}

// RestoreWinner replaces every in-range positional reference with the
// winner's real name. Out-of-range references are left untouched for
// AnonymizeLeftovers.
func RestoreWinner(s string, candidates *store.Users, winner *store.User) string {
	if winner == nil || candidates.Len() == 0 {
		return s
	}

	return positionalRef.ReplaceAllStringFunc(s, func(ref string) string {
		n, err := strconv.Atoi(strings.TrimPrefix(ref, "Candidate "))
		if err != nil || n < 1 || n > candidates.Len() {
			return ref
		}
		return winner.Name
	})
}

// AnonymizeLeftovers rewrites any remaining positional reference to an
// anonymous mention.
func AnonymizeLeftovers(s string) string {
	return positionalRef.ReplaceAllLiteralString(s, anonymousMention)
}

// NormalizeWhitespace collapses runs of two or more whitespace characters
// into a single space and trims the ends.
func NormalizeWhitespace(s string) string {
	return strings.TrimSpace(multiSpace.ReplaceAllString(s, " "))
}

func isWinner(candidate, winner *store.User) bool {
	if winner == nil {
		return false
	}
	if candidate == winner {
		return true
	}
	return candidate.ID != "" && candidate.ID == winner.ID
}
