package utils

import (
	"crypto/rand"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// checkinAlphabet leaves out characters that are easy to misread on a
// printed card (0/O, 1/I/L).
const checkinAlphabet = "23456789ABCDEFGHJKMNPQRSTUVWXYZ"

// NewCheckinCode returns a random code of n characters for printing on a
// table.
func NewCheckinCode(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	out := make([]byte, n)
	for i, b := range buf {
		out[i] = checkinAlphabet[int(b)%len(checkinAlphabet)]
	}
	return string(out), nil
}

// HashCheckinCode returns the bcrypt hash of a code using the given cost.
// Codes are compared case-insensitively.
func HashCheckinCode(code string, cost int) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(normalizeCode(code)), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyCheckinCode safely compares a bcrypt hash and a scanned code.
func VerifyCheckinCode(hash, code string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(normalizeCode(code))) == nil
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
