package utils

import (
	"crypto/rand"
	"fmt"
	"regexp"
	"unicode/utf8"
)

var (
	userNamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]{3,32}$`)
	emailPattern    = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
)

// ValidateUserName accepts 3-32 letters, digits or underscores.
func ValidateUserName(username string) bool {
	return userNamePattern.MatchString(username)
}

func ValidateEmail(email string) bool {
	return len(email) <= 255 && emailPattern.MatchString(email)
}

// ValidateText accepts non-blank valid UTF-8 of at most maxRunes runes.
func ValidateText(s string, maxRunes int) bool {
	if !utf8.ValidString(s) {
		return false
	}
	n := utf8.RuneCountInString(s)
	if n == 0 || n > maxRunes {
		return false
	}
	for _, r := range s {
		switch r {
		case ' ', '\t', '\n', '\r':
		default:
			return true
		}
	}
	return false
}

const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// largest multiple of len(codeAlphabet) that fits in a byte
const codeRejectAbove = 256 - 256%len(codeAlphabet)

// GenerateInviteCode returns n characters drawn uniformly from [A-Za-z0-9]
// using the system's secure random source.
func GenerateInviteCode(n int) (string, error) {
	out := make([]byte, 0, n)
	buf := make([]byte, n+n/2)
	for len(out) < n {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("failed to read random bytes: %w", err)
		}
		for _, b := range buf {
			if int(b) >= codeRejectAbove {
				continue
			}
			out = append(out, codeAlphabet[int(b)%len(codeAlphabet)])
			if len(out) == n {
				break
			}
		}
	}
	return string(out), nil
}
