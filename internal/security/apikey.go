package security

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidAPIKey is returned when no configured key matches
var ErrInvalidAPIKey = errors.New("invalid api key")

// APIKeyRing verifies presented API keys against configured bcrypt hashes.
// Keys are never stored in clear; config carries principal to hash pairs.
type APIKeyRing struct {
	hashes map[string]string
}

// NewAPIKeyRing creates a key ring from principal to bcrypt hash pairs
func NewAPIKeyRing(hashes map[string]string) *APIKeyRing {
	ring := &APIKeyRing{hashes: make(map[string]string, len(hashes))}
	for principal, hash := range hashes {
		ring.hashes[principal] = hash
	}
	return ring
}

// Verify matches the presented key against the configured hashes and
// returns the owning principal
func (r *APIKeyRing) Verify(apiKey string) (string, error) {
	for principal, hash := range r.hashes {
		if bcrypt.CompareHashAndPassword([]byte(hash), []byte(apiKey)) == nil {
			return principal, nil
		}
	}
	return "", ErrInvalidAPIKey
}

// Size returns the number of configured keys
func (r *APIKeyRing) Size() int {
	return len(r.hashes)
}

// HashAPIKey derives the bcrypt hash for a key, used when provisioning
// new entries for the ring
func HashAPIKey(apiKey string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(apiKey), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
