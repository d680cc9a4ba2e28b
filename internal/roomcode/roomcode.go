// Package roomcode handles the short shareable codes identifying rooms.
// Codes are stored and compared in canonical upper case.
package roomcode

import (
	"crypto/rand"
	"errors"
	"strings"
)

// Generated codes draw from an unambiguous charset (no O/0, I/1 lookalikes)
// so they survive being read out loud during an exercise. Validation is
// looser: any uppercase letter or digit is accepted on join.
const charset = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const (
	GeneratedLength = 6
	minLength       = 4
	maxLength       = 12
)

var ErrInvalidCode = errors.New("invalid room code")

// Normalize maps a user-supplied code to its canonical form.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Validate checks a normalized code: 4 to 12 characters, letters and
// digits only.
func Validate(code string) error {
	if len(code) < minLength || len(code) > maxLength {
		return ErrInvalidCode
	}
	for _, r := range code {
		if (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return ErrInvalidCode
		}
	}
	return nil
}

// Generate returns a random code from the unambiguous charset. Uniqueness
// against existing rooms is the caller's responsibility.
func Generate() (string, error) {
	b := make([]byte, GeneratedLength)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}

	code := make([]byte, GeneratedLength)
	for i := range code {
		code[i] = charset[int(b[i])%len(charset)]
	}
	return string(code), nil
}
