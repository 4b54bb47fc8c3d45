package password

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMalformedHash is returned when a stored hash cannot be parsed by any
	// configured scheme. Callers treat it as an authentication failure.
	ErrMalformedHash = errors.New("malformed password hash")
	// ErrEmptyPassword is returned by Hash for an empty plaintext.
	ErrEmptyPassword = errors.New("password must not be empty")
	// ErrPasswordTooLong is returned when plaintext exceeds the configured byte limit.
	ErrPasswordTooLong = errors.New("password exceeds maximum length")
)

// Scheme identifies the algorithm family that produced an encoded hash.
type Scheme string

const (
	// SchemeArgon2id is the current hashing scheme.
	SchemeArgon2id Scheme = "argon2id"
	// SchemeBcrypt is accepted for verification of legacy hashes.
	SchemeBcrypt Scheme = "bcrypt"
)

// Hasher hashes plaintext passwords, verifies them in constant time and
// reports whether a stored hash should be replaced on the next login.
//
// Implementations hold immutable configuration and are safe for concurrent use.
type Hasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, encoded string) (bool, error)
	NeedsRehash(encoded string) (bool, error)
}

// SchemeHasher is a Hasher bound to a single encoding scheme.
type SchemeHasher interface {
	Hasher
	Scheme() Scheme
}

// Detect returns the scheme of an encoded hash by inspecting its prefix.
func Detect(encoded string) (Scheme, error) {
	switch {
	case strings.HasPrefix(encoded, "$argon2id$"):
		return SchemeArgon2id, nil
	case strings.HasPrefix(encoded, "$2a$"),
		strings.HasPrefix(encoded, "$2b$"),
		strings.HasPrefix(encoded, "$2y$"):
		return SchemeBcrypt, nil
	default:
		return "", malformed("unknown hash scheme")
	}
}

func malformed(detail string) error {
	return fmt.Errorf("%w: %s", ErrMalformedHash, detail)
}
