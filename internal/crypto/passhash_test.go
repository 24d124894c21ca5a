package crypto

import (
	"bytes"
	"encoding/base64"
	"testing"
)

func TestRandBytes_LengthAndUniqueness(t *testing.T) {
	t.Parallel()

	const n = 64
	a, err := RandBytes(n)
	if err != nil {
		t.Fatalf("RandBytes: %v", err)
	}
	if len(a) != n {
		t.Fatalf("len=%d, want=%d", len(a), n)
	}
	b, err := RandBytes(n)
	if err != nil {
		t.Fatalf("RandBytes(2): %v", err)
	}
	if bytes.Equal(a, b) {
		t.Fatalf("two subsequent RandBytes(%d) are equal", n)
	}
}

func TestHashPassword_KeyedBySalt(t *testing.T) {
	t.Parallel()

	pw := []byte("p@ssw0rd")
	salt := []byte("NaCl-16-bytes?")

	h1 := HashPassword(pw, salt)
	if len(h1) != 64 {
		t.Fatalf("want 64-byte HMAC-SHA512, got %d", len(h1))
	}
	if !bytes.Equal(h1, HashPassword(pw, salt)) {
		t.Fatalf("hash not deterministic for same input")
	}
	if bytes.Equal(h1, HashPassword(pw, []byte("another-salt----"))) {
		t.Fatalf("hash should differ when salt differs")
	}
	if bytes.Equal(h1, HashPassword([]byte("p@ssw0rd!"), salt)) {
		t.Fatalf("hash should differ when password differs")
	}
}

func TestSetPassword_FreshSaltEachTime(t *testing.T) {
	t.Parallel()

	h1, s1, err := SetPassword("secret1")
	if err != nil {
		t.Fatalf("SetPassword: %v", err)
	}
	h2, s2, err := SetPassword("secret1")
	if err != nil {
		t.Fatalf("SetPassword: %v", err)
	}
	if s1 == s2 || h1 == h2 {
		t.Fatalf("salt must be generated per call")
	}
	raw, err := base64.StdEncoding.DecodeString(s1)
	if err != nil || len(raw) != 128 {
		t.Fatalf("salt must be base64 of 128 bytes: %v", err)
	}
}

func TestVerifyPassword_RoundTripAndMutations(t *testing.T) {
	t.Parallel()

	const pw = "correct horse battery staple"
	hash, salt, err := SetPassword(pw)
	if err != nil {
		t.Fatalf("SetPassword: %v", err)
	}
	if !VerifyPassword(pw, hash, salt) {
		t.Fatalf("expected true for correct password")
	}

	mutate := func(s string, i int) string {
		b := []byte(s)
		if b[i] == 'A' {
			b[i] = 'B'
		} else {
			b[i] = 'A'
		}
		return string(b)
	}

	for i := 0; i < len(pw); i++ {
		if VerifyPassword(mutate(pw, i), hash, salt) {
			t.Fatalf("password mutation at %d still verifies", i)
		}
	}
	// Padding and the unused low bits of the last data character are skipped.
	for _, i := range []int{0, len(hash) / 2, len(hash) - 4} {
		if VerifyPassword(pw, mutate(hash, i), salt) {
			t.Fatalf("hash mutation at %d still verifies", i)
		}
	}
	for _, i := range []int{0, len(salt) / 2, len(salt) - 4} {
		if VerifyPassword(pw, hash, mutate(salt, i)) {
			t.Fatalf("salt mutation at %d still verifies", i)
		}
	}
}

func TestVerifyPassword_FailsClosed(t *testing.T) {
	t.Parallel()

	hash, salt, err := SetPassword("pw1234")
	if err != nil {
		t.Fatalf("SetPassword: %v", err)
	}
	cases := []struct {
		name       string
		hash, salt string
	}{
		{"empty hash", "", salt},
		{"empty salt", hash, ""},
		{"both empty", "", ""},
		{"hash not base64", "%%%", salt},
		{"salt not base64", hash, "%%%"},
	}
	for _, tc := range cases {
		if VerifyPassword("pw1234", tc.hash, tc.salt) {
			t.Fatalf("%s: expected false", tc.name)
		}
	}
}

func TestGenerateResetToken(t *testing.T) {
	t.Parallel()

	seen := map[string]struct{}{}
	for i := 0; i < 100; i++ {
		tok, err := GenerateResetToken()
		if err != nil {
			t.Fatalf("GenerateResetToken: %v", err)
		}
		raw, err := base64.RawURLEncoding.DecodeString(tok)
		if err != nil || len(raw) != 32 {
			t.Fatalf("token must be url-safe base64 of 32 bytes: %q", tok)
		}
		if _, dup := seen[tok]; dup {
			t.Fatalf("duplicate token %q", tok)
		}
		seen[tok] = struct{}{}
	}
}
