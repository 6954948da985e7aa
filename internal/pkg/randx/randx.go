/*
Package randx provides functions for generating cryptographically secure random identifiers.

It generates the public user id (a "#" followed by six digits), fixed-length
Base62 friend codes, and standard UUID message/connection ids.
*/
package randx

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"

	"github.com/google/uuid"
)

const (
	// Base62Chars defines the character set used for Base62 encoding (0-9, A-Z, a-z).
	Base62Chars = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

	// Base62Len is the total number of characters in the Base62 character set (62).
	Base62Len = int64(len(Base62Chars))

	// PublicIDDigits is the number of digits following the "#" in a public user id.
	PublicIDDigits = 6

	// FriendCodeLength is the fixed length of a generated friend code.
	FriendCodeLength = 8
)

// PublicUserID generates the public user id shared in the UI, in the "#123456" format.
func PublicUserID() (string, error) {
	var b strings.Builder
	b.WriteByte('#')

	for range PublicIDDigits {
		num, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", fmt.Errorf("failed to generate random digit for public user id: %w", err)
		}
		b.WriteByte(byte('0' + num.Int64()))
	}

	return b.String(), nil
}

// FriendCode generates a Base62 encoded friend code using crypto/rand.
// It returns a string of length FriendCodeLength and any error encountered.
func FriendCode() (string, error) {
	result := make([]byte, FriendCodeLength)

	for i := range FriendCodeLength {
		num, err := rand.Int(rand.Reader, big.NewInt(Base62Len))
		if err != nil {
			return "", fmt.Errorf("failed to generate random number for friend code: %w", err)
		}

		result[i] = Base62Chars[num.Int64()]
	}

	return string(result), nil
}

// MessageID generates a standard UUID v4 string to serve as a unique identifier for a message.
func MessageID() string {
	return uuid.New().String()
}

// ConnectionID generates a standard UUID v4 string identifying one transport connection.
func ConnectionID() string {
	return uuid.New().String()
}

// IsValidPublicUserID checks if the given string is a well-formed public user id.
func IsValidPublicUserID(id string) bool {
	if len(id) != PublicIDDigits+1 || id[0] != '#' {
		return false
	}

	for _, c := range id[1:] {
		if c < '0' || c > '9' {
			return false
		}
	}

	return true
}
