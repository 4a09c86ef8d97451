// Package signature authenticates webhook deliveries signed with a shared
// secret.
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"

	"github.com/comigor/msghook/internal/apperr"
)

// Header carries the lowercase hex HMAC-SHA256 of the raw request body.
const Header = "X-Signature"

// Sign returns the lowercase hex HMAC-SHA256 of body keyed with secret.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify checks provided against the signature of the exact bytes in body.
//
// An empty secret is a configuration error and is checked before anything
// else. A missing or mismatched signature yields the same auth error so
// callers cannot tell the two apart.
func Verify(secret string, body []byte, provided string) error {
	if secret == "" {
		return apperr.Config("webhook secret is not configured")
	}
	if provided == "" {
		return apperr.Auth("invalid signature")
	}
	expected := Sign(secret, body)
	if !hmac.Equal([]byte(expected), []byte(provided)) {
		return apperr.Auth("invalid signature")
	}
	return nil
}
