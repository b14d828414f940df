package security

import (
	"crypto/rand"

	"golang.org/x/crypto/bcrypt"
)

const linkCodeLength = 8

// linkCodeAlphabet avoids ambiguous characters (0/O, 1/I/L) since codes are
// handed to parents on paper.
const linkCodeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

// LinkCodeHasher hashes and verifies registry link codes using bcrypt.
// Callers must not log or persist plaintext codes.
type LinkCodeHasher struct {
	Cost int
}

// NewLinkCodeHasher returns a LinkCodeHasher with the given bcrypt cost (4–31).
// Cost 10 is a reasonable default; codes are short-lived and low-entropy
// compared to passwords, so the work factor matters.
func NewLinkCodeHasher(cost int) *LinkCodeHasher {
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	if cost < bcrypt.MinCost {
		cost = bcrypt.MinCost
	}
	if cost > bcrypt.MaxCost {
		cost = bcrypt.MaxCost
	}
	return &LinkCodeHasher{Cost: cost}
}

// Hash produces a bcrypt hash of code suitable for storage in a registry row.
func (h *LinkCodeHasher) Hash(code string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(code), h.Cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Compare verifies code against the stored hash. Returns nil if they match;
// returns an error (including bcrypt.ErrMismatchedHashAndPassword) if they
// do not or on invalid hash.
func (h *LinkCodeHasher) Compare(hash string, code string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(code))
}

// GenerateLinkCode returns a random 8-character link code (e.g. "K7PMQ2XF").
// Uses crypto/rand for randomness.
func GenerateLinkCode() (string, error) {
	b := make([]byte, linkCodeLength)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	s := make([]byte, linkCodeLength)
	for i := 0; i < linkCodeLength; i++ {
		s[i] = linkCodeAlphabet[int(b[i])%len(linkCodeAlphabet)]
	}
	return string(s), nil
}
