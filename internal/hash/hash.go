// Package hash provides the one-way digests the gate stores in place of
// raw secrets and PII. Tokens are indexed by digest, and client IPs and
// user agents are hashed before they touch storage or log output.
package hash

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Value returns the lowercase hex SHA-256 digest of v.
func Value(v string) string {
	sum := sha256.Sum256([]byte(v))
	return hex.EncodeToString(sum[:])
}

// IP hashes a client IP address after trimming surrounding whitespace.
func IP(ip string) string {
	return Value(strings.TrimSpace(ip))
}

// UserAgent hashes a user agent string after trimming surrounding whitespace.
func UserAgent(ua string) string {
	return Value(strings.TrimSpace(ua))
}
