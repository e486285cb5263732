package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Compute returns the lowercase hex HMAC-SHA256 of body under secret.
func Compute(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify checks a hex-encoded HMAC-SHA256 signature over the exact raw
// body in constant time. It never panics: malformed input is simply an
// invalid signature.
func Verify(body []byte, signature, secret string) bool {
	if secret == "" {
		return false
	}
	signature = strings.ToLower(strings.TrimSpace(signature))
	if signature == "" {
		return false
	}
	if _, err := hex.DecodeString(signature); err != nil {
		return false
	}

	expected := Compute(body, secret)
	return hmac.Equal([]byte(signature), []byte(expected))
}
