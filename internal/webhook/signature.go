// Package webhook implements the inbound commerce-platform webhook
// boundary: shared-secret signature verification over the raw request
// body, and parsing of topic-tagged payloads into validated event types.
//
// Verification always runs over the exact bytes received on the wire.
// Parsing the JSON body happens strictly after the signature check
// succeeds, because the signature covers the raw bytes, not the parsed
// structure; any re-serialization would break it on whitespace or
// key-order differences.
package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
)

// HeaderSignature is the request header carrying the base64 HMAC-SHA256
// of the raw body.
const HeaderSignature = "X-Signature"

// Verification errors.
var (
	// ErrNoSecret indicates the server-side shared secret is not configured.
	// This is a configuration fault: verification is never bypassed.
	ErrNoSecret = errors.New("webhook: shared secret not configured")

	// ErrMissingSignature indicates the request carried no signature header.
	ErrMissingSignature = errors.New("webhook: missing signature header")

	// ErrBadSignature indicates the supplied signature does not match the
	// HMAC computed over the raw body.
	ErrBadSignature = errors.New("webhook: signature mismatch")
)

// Sign computes the base64-encoded HMAC-SHA256 of body under secret.
// Exposed so tests and outbound replays can produce valid signatures.
func Sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// Verify checks the claimed signature against the HMAC of the raw body
// using a constant-time comparison. It returns nil only when the signature
// is present and matches; the caller must not run any business logic on a
// non-nil return.
func Verify(body []byte, signature, secret string) error {
	if secret == "" {
		return ErrNoSecret
	}
	if signature == "" {
		return ErrMissingSignature
	}
	expected := Sign(body, secret)
	if subtle.ConstantTimeCompare([]byte(expected), []byte(signature)) != 1 {
		return ErrBadSignature
	}
	return nil
}
