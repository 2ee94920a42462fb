package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// ComputeSignature returns the hex HMAC-SHA256 over
// providerOrderID + "|" + providerPaymentID with the server-held secret.
// This is the signature the provider attaches to payment callbacks.
func ComputeSignature(secret []byte, providerOrderID, providerPaymentID string) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(providerOrderID + "|" + providerPaymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature recomputes the callback signature and compares it in
// constant time. A plain string comparison would leak a timing side channel
// on the secret-derived digest.
func VerifySignature(secret []byte, providerOrderID, providerPaymentID, signature string) bool {
	expected := ComputeSignature(secret, providerOrderID, providerPaymentID)
	return hmac.Equal([]byte(expected), []byte(signature))
}
