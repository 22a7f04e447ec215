// Package crypto holds small cryptographic helpers shared across payd.
package crypto

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// GenerateRef generates a cryptographically secure random reference and
// returns it as a URL-safe base64 string. The length parameter specifies the
// number of random bytes; 16 bytes is plenty for local payment references.
func GenerateRef(length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("ref length must be positive, got %d", length)
	}

	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate random ref: %w", err)
	}

	return base64.RawURLEncoding.EncodeToString(buf), nil
}
