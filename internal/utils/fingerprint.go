package utils

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Fingerprint generates a deterministic HMAC over the identifying parts of a
// submission. The same decision always produces the same fingerprint, which
// is what makes retried ledger submissions idempotent.
func Fingerprint(secret string, parts ...string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(h.Sum(nil))
}
