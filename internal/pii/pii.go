// Package pii protects personally identifying fields before they reach
// storage or logs. It provides three independent primitives:
//
//   - Codec: reversible AES-256-GCM encryption for stored contact fields,
//     with a random nonce per call and an authentication tag so tampered
//     ciphertext fails loudly instead of decrypting to garbage.
//   - HashEmail: a deterministic one-way SHA-256 over the normalized email,
//     usable as a lookup key without any decryption capability.
//   - Mask helpers (mask.go): display-safe, irreversible transforms.
//
// Nothing outside this package stores or logs plaintext identity fields.
package pii

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// KeySize is the required encryption key length in bytes (AES-256).
const KeySize = 32

// Errors returned by the codec.
var (
	// ErrKeySize indicates the supplied key is not exactly KeySize bytes.
	ErrKeySize = errors.New("pii: encryption key must be 32 bytes")

	// ErrCiphertext indicates the ciphertext is malformed, truncated, or
	// failed authentication (tampered or wrong key).
	ErrCiphertext = errors.New("pii: invalid ciphertext")
)

// Codec performs authenticated symmetric encryption of contact fields.
// It is stateless apart from the key material, safe for concurrent use,
// and intended to be constructed once at startup and injected.
type Codec struct {
	aead cipher.AEAD
}

// NewCodec builds a Codec from raw key material. The key must be exactly
// KeySize bytes; anything else is a startup error, never a silent bypass.
func NewCodec(key []byte) (*Codec, error) {
	if len(key) != KeySize {
		return nil, ErrKeySize
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &Codec{aead: aead}, nil
}

// NewCodecHex builds a Codec from a hex-encoded key (64 hex characters),
// which is how the key arrives from the environment.
func NewCodecHex(hexKey string) (*Codec, error) {
	key, err := hex.DecodeString(strings.TrimSpace(hexKey))
	if err != nil {
		return nil, ErrKeySize
	}
	return NewCodec(key)
}

// Encrypt seals plaintext with a fresh random nonce and returns
// base64(nonce || ciphertext || tag). Repeated calls on the same plaintext
// produce different ciphertexts.
func (c *Codec) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	sealed := c.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt. It returns ErrCiphertext when the input is not
// valid base64, is too short to contain a nonce, or fails the GCM
// authentication check.
func (c *Codec) Decrypt(ciphertext string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", ErrCiphertext
	}
	ns := c.aead.NonceSize()
	if len(raw) < ns {
		return "", ErrCiphertext
	}
	plain, err := c.aead.Open(nil, raw[:ns], raw[ns:], nil)
	if err != nil {
		return "", ErrCiphertext
	}
	return string(plain), nil
}

// NormalizeEmail maps an email address to its canonical form: Unicode NFC,
// trimmed, lowercased. Every caller that hashes or compares emails must go
// through this so "  Test@Example.COM " and "test@example.com" agree.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(norm.NFC.String(email)))
}

// HashEmail returns the lowercase hex SHA-256 of the normalized email.
// The hash is deterministic and one-way; it is the only identity index the
// lookup path may query.
func HashEmail(email string) string {
	sum := sha256.Sum256([]byte(NormalizeEmail(email)))
	return hex.EncodeToString(sum[:])
}
