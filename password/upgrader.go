package password

import (
	"errors"
	"fmt"
)

// Upgrader hashes with a primary scheme and verifies any accepted scheme.
//
// Hashes produced by a non-primary scheme always report NeedsRehash, which
// lets rehash-on-login migrate stored credentials to the primary scheme.
type Upgrader struct {
	primary   SchemeHasher
	verifiers map[Scheme]SchemeHasher
}

// NewUpgrader builds an Upgrader hashing with primary and additionally
// verifying hashes of the legacy schemes.
func NewUpgrader(primary SchemeHasher, legacy ...SchemeHasher) (*Upgrader, error) {
	if primary == nil {
		return nil, errors.New("primary hasher required")
	}

	u := &Upgrader{
		primary:   primary,
		verifiers: map[Scheme]SchemeHasher{primary.Scheme(): primary},
	}
	for _, h := range legacy {
		if h == nil {
			continue
		}
		if _, exists := u.verifiers[h.Scheme()]; exists {
			return nil, fmt.Errorf("duplicate hasher for scheme %q", h.Scheme())
		}
		u.verifiers[h.Scheme()] = h
	}

	return u, nil
}

// Scheme reports the primary scheme.
func (u *Upgrader) Scheme() Scheme { return u.primary.Scheme() }

// Hash hashes with the primary scheme.
func (u *Upgrader) Hash(plaintext string) (string, error) {
	return u.primary.Hash(plaintext)
}

// Verify dispatches to the hasher for the scheme detected in encoded.
func (u *Upgrader) Verify(plaintext, encoded string) (bool, error) {
	h, err := u.hasherFor(encoded)
	if err != nil {
		return false, err
	}
	return h.Verify(plaintext, encoded)
}

// NeedsRehash is true for any accepted non-primary scheme, and otherwise
// defers to the primary hasher's parameter comparison.
func (u *Upgrader) NeedsRehash(encoded string) (bool, error) {
	h, err := u.hasherFor(encoded)
	if err != nil {
		return false, err
	}
	if h.Scheme() != u.primary.Scheme() {
		return true, nil
	}
	return u.primary.NeedsRehash(encoded)
}

func (u *Upgrader) hasherFor(encoded string) (SchemeHasher, error) {
	scheme, err := Detect(encoded)
	if err != nil {
		return nil, err
	}
	h, ok := u.verifiers[scheme]
	if !ok {
		return nil, malformed(fmt.Sprintf("scheme %s not accepted", scheme))
	}
	return h, nil
}
