package store

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidPhone is returned when a phone number fails normalization.
var ErrInvalidPhone = errors.New("invalid phone number")

const (
	minPhoneDigits = 10
	maxPhoneDigits = 15
)

type Users struct {
	Items []*User
}

type User struct {
	ID                 string   `json:"id,omitempty"`
	Name               string   `json:"name"`
	Phone              string   `json:"phone"`
	ResumeURL          string   `json:"resume_url,omitempty"`
	ResumeText         string   `json:"resume_text,omitempty"`
	Category           string   `json:"category,omitempty"`
	HasResume          bool     `json:"has_resume"`
	ConnectionRequests []string `json:"connection_requests,omitempty"`
	CreatedAt          string   `json:"created_at,omitempty"`
	UpdatedAt          string   `json:"updated_at,omitempty"`
}

func (u *Users) Len() int {
	if u == nil {
		return 0
	}
	return len(u.Items)
}

func (u *Users) Names() []string {
	names := make([]string, 0, u.Len())
	for _, user := range u.Items {
		names = append(names, user.Name)
	}
	return names
}

func (u *Users) FindByID(id string) *User {
	if u == nil {
		return nil
	}
	for _, user := range u.Items {
		if user.ID == id {
			return user
		}
	}
	return nil
}

// First returns the first user in the list, or nil when the list is empty.
func (u *Users) First() *User {
	if u.Len() == 0 {
		return nil
	}
	return u.Items[0]
}

// NormalizePhone strips every non-digit character from a phone number.
// The remaining digit count must be between 10 and 15 inclusive, otherwise
// ErrInvalidPhone is returned.
func NormalizePhone(raw string) (string, error) {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}

	digits := b.String()
	if len(digits) < minPhoneDigits || len(digits) > maxPhoneDigits {
		return "", fmt.Errorf("%w: expected %d-%d digits, got %d", ErrInvalidPhone, minPhoneDigits, maxPhoneDigits, len(digits))
	}

	return digits, nil
}
