// Package security holds webhook signature verification and link-code hashing.
package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
)

// ErrSignatureInvalid is returned when a webhook signature does not match the
// request body. The whole delivery must be rejected; the platform signs the
// full payload, not per-event.
var ErrSignatureInvalid = errors.New("webhook signature invalid")

// VerifySignature checks the x-line-signature header value against the raw
// request body. The header carries a base64-encoded HMAC-SHA256 of the body
// keyed with the channel secret. The comparison is constant-time and the
// error never includes the expected digest.
func VerifySignature(secret, body []byte, signature string) error {
	if len(secret) == 0 {
		return errors.New("signature: channel secret is empty")
	}
	if signature == "" {
		return ErrSignatureInvalid
	}

	provided, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return ErrSignatureInvalid
	}

	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	expected := mac.Sum(nil)

	if subtle.ConstantTimeCompare(expected, provided) != 1 {
		return ErrSignatureInvalid
	}
	return nil
}

// Sign returns the base64-encoded HMAC-SHA256 of body keyed with secret.
// Used by tests and by tooling that replays recorded webhook deliveries.
func Sign(secret, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
