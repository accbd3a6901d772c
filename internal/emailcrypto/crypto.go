// Package emailcrypto normalizes and hashes email addresses so the rest of
// the system never has to store or compare raw addresses.
package emailcrypto

import (
	"crypto/sha256"
	"encoding/hex"
	"net/mail"
	"strings"
)

// Normalize canonicalizes an email address for hashing and comparison.
// It trims whitespace, lowercases, and unwraps display-name forms like
// "Jane <jane@example.com>". An address that cannot be parsed yields "".
func Normalize(address string) string {
	address = strings.TrimSpace(address)
	if address == "" {
		return ""
	}
	if parsed, err := mail.ParseAddress(address); err == nil {
		address = parsed.Address
	}
	address = strings.ToLower(strings.TrimSpace(address))
	at := strings.Index(address, "@")
	if at <= 0 || at == len(address)-1 {
		return ""
	}
	return address
}

// Hash returns the hex-encoded SHA-256 digest of a normalized address.
// Callers must normalize first; hashing an empty string is the caller's bug
// and returns "".
func Hash(normalized string) string {
	if normalized == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

// NormalizeAndHash is the common two-step helper. Returns "" when the
// address does not normalize.
func NormalizeAndHash(address string) string {
	return Hash(Normalize(address))
}
