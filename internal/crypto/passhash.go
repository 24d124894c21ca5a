// Package crypto implements server-side password hashing, verification and reset tokens.
package crypto

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/base64"

	"github.com/gofrs/uuid/v5"
)

// SaltLen is the size of the per-password HMAC key.
const SaltLen = 128

// RandBytes returns n cryptographically secure random bytes.
func RandBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	_, err := rand.Read(b)
	return b, err
}

// HashPassword returns HMAC-SHA512(key=salt, msg=password).
func HashPassword(password, salt []byte) []byte {
	m := hmac.New(sha512.New, salt)
	m.Write(password)
	return m.Sum(nil)
}

// SetPassword generates a fresh salt and returns base64 hash and salt for storage.
func SetPassword(plain string) (hash, salt string, err error) {
	s, err := RandBytes(SaltLen)
	if err != nil {
		return "", "", err
	}
	h := HashPassword([]byte(plain), s)
	return base64.StdEncoding.EncodeToString(h), base64.StdEncoding.EncodeToString(s), nil
}

// VerifyPassword recomputes the hash under the stored salt. Empty or malformed
// stored values never match.
func VerifyPassword(plain, storedHash, storedSalt string) bool {
	if storedHash == "" || storedSalt == "" {
		return false
	}
	want, err := base64.StdEncoding.DecodeString(storedHash)
	if err != nil {
		return false
	}
	salt, err := base64.StdEncoding.DecodeString(storedSalt)
	if err != nil {
		return false
	}
	got := HashPassword([]byte(plain), salt)
	return subtle.ConstantTimeCompare(got, want) == 1
}

// GenerateResetToken returns an opaque URL-safe token: uuid v4 followed by 16 random bytes.
func GenerateResetToken() (string, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return "", err
	}
	extra, err := RandBytes(16)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(append(id.Bytes(), extra...)), nil
}
