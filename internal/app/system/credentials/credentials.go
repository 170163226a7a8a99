// Package credentials hashes secrets and generates one-time codes.
//
// Passwords, join secrets and OTP codes all go through the same bcrypt
// Hasher. Plaintext values are never persisted or logged.
package credentials

import (
	"crypto/rand"
	"math/big"

	"golang.org/x/crypto/bcrypt"
)

// DefaultCost is used when no cost is configured.
const DefaultCost = 10

const (
	otpMin = 100000
	otpMax = 999999

	joinCodeLength   = 6
	joinCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// Hasher hashes and verifies secrets using bcrypt.
type Hasher struct {
	Cost int
}

// NewHasher returns a Hasher with cost clamped to bcrypt's valid range.
// A zero or negative cost selects DefaultCost.
func NewHasher(cost int) *Hasher {
	if cost <= 0 {
		cost = DefaultCost
	}
	if cost < bcrypt.MinCost {
		cost = bcrypt.MinCost
	}
	if cost > bcrypt.MaxCost {
		cost = bcrypt.MaxCost
	}
	return &Hasher{Cost: cost}
}

// Hash returns a salted bcrypt hash of plain.
func (h *Hasher) Hash(plain string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), h.Cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Verify reports whether plain matches hash. A malformed hash never matches.
func (h *Hasher) Verify(plain, hash string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

// IssueOTP returns a fresh 6-digit code and its hash. Only the hash may be stored.
func (h *Hasher) IssueOTP() (code, hash string, err error) {
	code, err = GenerateOTP()
	if err != nil {
		return "", "", err
	}
	hash, err = h.Hash(code)
	if err != nil {
		return "", "", err
	}
	return code, hash, nil
}

// GenerateOTP returns a uniformly random code in [100000, 999999].
func GenerateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(otpMax-otpMin+1))
	if err != nil {
		return "", err
	}
	return big.NewInt(0).Add(n, big.NewInt(otpMin)).String(), nil
}

// GenerateJoinCode returns a random 6-character uppercase alphanumeric code.
// Callers must still check it against existing groups.
func GenerateJoinCode() (string, error) {
	out := make([]byte, joinCodeLength)
	limit := big.NewInt(int64(len(joinCodeAlphabet)))
	for i := range out {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", err
		}
		out[i] = joinCodeAlphabet[n.Int64()]
	}
	return string(out), nil
}
