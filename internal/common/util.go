package common

import (
	"crypto/rand"
	"encoding/hex"
	"math"
	"strings"
)

// MakeRandHexString returns size random bytes encoded as lowercase hex.
func MakeRandHexString(size int) (string, error) {
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// MakeBackupCode returns an 8 character uppercase hex one-time code.
func MakeBackupCode() (string, error) {
	s, err := MakeRandHexString(4)
	if err != nil {
		return "", err
	}
	return strings.ToUpper(s), nil
}

// GenerateRandByteArray returns n bytes from crypto/rand. It panics when the
// system random source fails.
func GenerateRandByteArray(n int) []byte {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return b
}

// WipeByteArray zeroes b in place.
func WipeByteArray(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// Round rounds v to the given number of decimal places.
func Round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
