// Package otp generates and compares the numeric handoff codes.
package otp

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"math/big"
)

const (
	Length  = 6
	minCode = 100000
	maxCode = 999999
)

// Generator returns a fresh code
type Generator func() (string, error)

// Generate returns a uniformly random code in [100000, 999999] drawn from crypto/rand
func Generate() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(maxCode-minCode+1))
	if err != nil {
		return "", fmt.Errorf("failed to draw otp: %w", err)
	}
	return Format(n.Int64() + minCode), nil
}

// Format renders n as a fixed-width code, keeping leading zeros
func Format(n int64) string {
	return fmt.Sprintf("%0*d", Length, n)
}

// Valid reports whether code is exactly Length ASCII digits
func Valid(code string) bool {
	if len(code) != Length {
		return false
	}
	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return false
		}
	}
	return true
}

// Equal compares a submitted code with the stored one in constant time.
// An empty stored code never matches.
func Equal(stored, submitted string) bool {
	if stored == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(submitted)) == 1
}
