package payments

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Sign returns hex(HMAC-SHA256(secret, intentRef + "|" + paymentRef)), the
// signature the gateway attaches to a checkout confirmation.
func Sign(secret, intentRef, paymentRef string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(intentRef + "|" + paymentRef))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature recomputes the expected signature and compares it in
// constant time. An empty secret never verifies.
func VerifySignature(secret, intentRef, paymentRef, signature string) bool {
	if secret == "" || signature == "" {
		return false
	}
	expected := Sign(secret, intentRef, paymentRef)
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(strings.TrimSpace(signature))))
}
