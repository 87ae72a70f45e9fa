// Package signature verifies webhook request authenticity.
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Verify reports whether providedHex is a valid lowercase-hex HMAC-SHA256
// of rawBody under secret. It operates on the exact raw bytes as received;
// verifying a re-serialized payload would break valid signatures on
// whitespace or key-order differences.
//
// A missing signature or an unconfigured secret yields false, never an
// error. Comparison is constant-time.
func Verify(rawBody []byte, providedHex string, secret string) bool {
	if providedHex == "" || secret == "" {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(rawBody)
	expected := hex.EncodeToString(mac.Sum(nil))

	// Compare the hex strings rather than decoded bytes: the contract is a
	// lowercase-hex signature, so an uppercase rendering must not verify.
	return hmac.Equal([]byte(expected), []byte(providedHex))
}

// Compute returns the lowercase-hex HMAC-SHA256 of body under secret.
// Used by clients and tests to produce the X-Signature header value.
func Compute(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
