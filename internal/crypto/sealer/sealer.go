// Package sealer provides authenticated encryption for small client-held values such as flash cookies.
package sealer

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

// MinKeyLen is the minimum accepted master key size.
const MinKeyLen = 32

// ErrMalformed is returned when a sealed value cannot be decoded or authenticated.
var ErrMalformed = errors.New("sealed value malformed")

// Sealer encrypts values with XChaCha20-Poly1305 under a purpose-bound subkey.
type Sealer struct {
	key     []byte
	purpose []byte
}

// New derives a subkey for purpose from master via HKDF-SHA256.
func New(master []byte, purpose string) (*Sealer, error) {
	if len(master) < MinKeyLen {
		return nil, errors.New("sealer: master key too short")
	}
	key, err := deriveKey(master, []byte(purpose))
	if err != nil {
		return nil, err
	}
	return &Sealer{key: key, purpose: []byte(purpose)}, nil
}

func deriveKey(master, info []byte) ([]byte, error) {
	r := hkdf.New(sha256.New, master, nil, info)
	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, err
	}
	return key, nil
}

// DeriveKey returns a 32-byte HKDF-SHA256 subkey of master for an unrelated purpose, e.g. token signing.
func DeriveKey(master []byte, purpose string) ([]byte, error) {
	if len(master) < MinKeyLen {
		return nil, errors.New("sealer: master key too short")
	}
	return deriveKey(master, []byte(purpose))
}

// Seal encrypts plaintext with a random nonce; the purpose is bound as AAD.
// Output is nonce||ciphertext, base64url without padding.
func (s *Sealer) Seal(plaintext []byte) (string, error) {
	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return "", err
	}
	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	out := make([]byte, 0, len(nonce)+len(plaintext)+aead.Overhead())
	out = append(out, nonce...)
	out = aead.Seal(out, nonce, plaintext, s.purpose)
	return base64.RawURLEncoding.EncodeToString(out), nil
}

// Open reverses Seal.
func (s *Sealer) Open(sealed string) ([]byte, error) {
	raw, err := base64.RawURLEncoding.DecodeString(sealed)
	if err != nil || len(raw) < chacha20poly1305.NonceSizeX {
		return nil, ErrMalformed
	}
	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return nil, err
	}
	nonce := raw[:chacha20poly1305.NonceSizeX]
	pt, err := aead.Open(nil, nonce, raw[chacha20poly1305.NonceSizeX:], s.purpose)
	if err != nil {
		return nil, ErrMalformed
	}
	return pt, nil
}
