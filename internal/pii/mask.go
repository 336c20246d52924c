package pii

import (
	"crypto/rand"
	"encoding/base32"
	"strings"
)

// publicIDEncoding is base32 without padding, lowercased for URLs.
var publicIDEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// MaskEmail returns a display-safe form of an email address: the first two
// characters of the local part, the rest replaced, and the domain kept
// (e.g. "jo***@example.com"). Deterministic and irreversible. Values that
// do not look like an email are fully masked.
func MaskEmail(email string) string {
	email = NormalizeEmail(email)
	at := strings.LastIndex(email, "@")
	if at <= 0 || at == len(email)-1 {
		return "***"
	}
	local, domain := email[:at], email[at+1:]
	if len(local) <= 2 {
		return local[:1] + "***@" + domain
	}
	return local[:2] + "***@" + domain
}

// MaskPhone keeps only the last four digits of a phone number
// (e.g. "***-1212"). Non-digit formatting is discarded. Numbers shorter
// than five digits are fully masked.
func MaskPhone(phone string) string {
	var digits []byte
	for i := 0; i < len(phone); i++ {
		if phone[i] >= '0' && phone[i] <= '9' {
			digits = append(digits, phone[i])
		}
	}
	if len(digits) < 5 {
		return "***"
	}
	return "***-" + string(digits[len(digits)-4:])
}

// NewPublicID returns a short, non-guessable display identifier
// (e.g. "ord_mfrggzdfmz"). It carries no relation to internal keys.
func NewPublicID() (string, error) {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", err
	}
	return "ord_" + strings.ToLower(publicIDEncoding.EncodeToString(buf[:]))[:12], nil
}
