// Package verification generates and checks the short-lived codes that gate
// the completion handshake. Codes are random, human-typable, and stored only
// as a sha256 hash; the plain code exists in the notification payload alone.
package verification

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"
	"time"
)

const codeBytes = 6

// Generate returns a fresh verification code: 6 random bytes, hex-encoded
// and uppercased (12 characters). Uses crypto/rand for randomness.
func Generate() (string, error) {
	b := make([]byte, codeBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return strings.ToUpper(hex.EncodeToString(b)), nil
}

// Hash returns a SHA-256 hash of the code, hex-encoded, for storage at rest.
func Hash(code string) string {
	h := sha256.Sum256([]byte(code))
	return hex.EncodeToString(h[:])
}

// Equal performs constant-time comparison of the supplied code's hash with the stored hash.
func Equal(suppliedCode, storedHash string) bool {
	suppliedHash := Hash(suppliedCode)
	return subtle.ConstantTimeCompare([]byte(suppliedHash), []byte(storedHash)) == 1
}

// Result classifies a code check. Callers collapse everything but ResultOK
// into one user-facing failure; the distinction goes to logs.
type Result int

const (
	ResultOK Result = iota
	ResultAbsent
	ResultMismatched
	ResultExpired
)

// String returns the log label for r.
func (r Result) String() string {
	switch r {
	case ResultOK:
		return "ok"
	case ResultAbsent:
		return "absent"
	case ResultMismatched:
		return "mismatched"
	case ResultExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// Check validates a supplied code against the stored hash and expiry at now.
// Returns ResultOK only when a code exists, matches, and has not expired.
func Check(storedHash string, expiresAt *time.Time, suppliedCode string, now time.Time) Result {
	if storedHash == "" || expiresAt == nil {
		return ResultAbsent
	}
	if !Equal(strings.ToUpper(strings.TrimSpace(suppliedCode)), storedHash) {
		return ResultMismatched
	}
	if now.After(*expiresAt) {
		return ResultExpired
	}
	return ResultOK
}

// Issuer mints verification codes with a fixed lifetime. Re-issuing for the
// same transfer overwrites the previous code; only one code is ever live.
type Issuer struct {
	TTL time.Duration
	// Now is the clock; defaults to time.Now().UTC when nil.
	Now func() time.Time
}

// Issue returns a new plain code, its storage hash, and the expiry timestamp.
func (i Issuer) Issue() (code, hash string, expiresAt time.Time, err error) {
	code, err = Generate()
	if err != nil {
		return "", "", time.Time{}, err
	}
	now := time.Now().UTC
	if i.Now != nil {
		now = i.Now
	}
	ttl := i.TTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return code, Hash(code), now().Add(ttl), nil
}
