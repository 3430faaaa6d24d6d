package crypto

import (
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestHashToken(t *testing.T) {
	tests := []struct {
		name  string
		token string
	}{
		{"simple token", "secret-api-token"},
		{"token with symbols", "t0k3n!#$%^&*()"},
		{"long token", strings.Repeat("a", 70)}, // близко к лимиту 72
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hash, err := HashTokenWithCost(tt.token, bcrypt.MinCost)
			if err != nil {
				t.Fatalf("HashTokenWithCost failed: %v", err)
			}
			if !IsBcryptHash(hash) {
				t.Errorf("hash %q not recognized as bcrypt", hash)
			}
			if hash == tt.token {
				t.Error("hash equals token")
			}
		})
	}
}

func TestHashTokenValidation(t *testing.T) {
	if _, err := HashToken(""); err != ErrEmptyToken {
		t.Errorf("empty token: got %v, want %v", err, ErrEmptyToken)
	}
	if _, err := HashToken(strings.Repeat("a", 73)); err != ErrTokenTooLong {
		t.Errorf("long token: got %v, want %v", err, ErrTokenTooLong)
	}
}

func TestHashTokenUniqueSalt(t *testing.T) {
	hash1, _ := HashTokenWithCost("same-token", bcrypt.MinCost)
	hash2, _ := HashTokenWithCost("same-token", bcrypt.MinCost)
	if hash1 == hash2 {
		t.Error("two hashes of the same token must differ (salt)")
	}
}

func TestHashTokenCostClamped(t *testing.T) {
	hash, err := HashTokenWithCost("token", 0)
	if err != nil {
		t.Fatalf("HashTokenWithCost failed: %v", err)
	}
	cost, err := bcrypt.Cost([]byte(hash))
	if err != nil {
		t.Fatalf("Cost failed: %v", err)
	}
	if cost != bcrypt.MinCost {
		t.Errorf("cost = %d, want clamped to %d", cost, bcrypt.MinCost)
	}
}

func TestVerifyToken(t *testing.T) {
	hash, _ := HashTokenWithCost("correct-token", bcrypt.MinCost)

	if err := VerifyToken("correct-token", hash); err != nil {
		t.Errorf("correct token: got %v, want nil", err)
	}
	if err := VerifyToken("wrong-token", hash); err != ErrHashMismatch {
		t.Errorf("wrong token: got %v, want %v", err, ErrHashMismatch)
	}
	if err := VerifyToken("", hash); err != ErrEmptyToken {
		t.Errorf("empty token: got %v, want %v", err, ErrEmptyToken)
	}
	if err := VerifyToken("token", ""); err != ErrInvalidHash {
		t.Errorf("empty hash: got %v, want %v", err, ErrInvalidHash)
	}
}

func TestVerifyTokenInvalidHash(t *testing.T) {
	tests := []struct {
		name string
		hash string
	}{
		{"random string", "notahash"},
		{"truncated hash", "$2a$12$abc"},
		{"wrong format", "sha256:abcdef123456"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := VerifyToken("token", tt.hash); err != ErrInvalidHash {
				t.Errorf("got %v, want %v", err, ErrInvalidHash)
			}
		})
	}
}

func TestTokenMatches(t *testing.T) {
	hash, _ := HashTokenWithCost("token", bcrypt.MinCost)

	if !TokenMatches("token", hash) {
		t.Error("TokenMatches = false for correct token")
	}
	if TokenMatches("other", hash) {
		t.Error("TokenMatches = true for wrong token")
	}
}

func TestIsBcryptHash(t *testing.T) {
	hash, _ := HashTokenWithCost("token", bcrypt.MinCost)

	if !IsBcryptHash(hash) {
		t.Errorf("IsBcryptHash(%q) = false", hash)
	}

	// Обычные токены и мусор с похожим префиксом не считаются хешами
	for _, s := range []string{"", "plain-token", "$2a$12$tooshort", "$3a$12$wrongversion"} {
		if IsBcryptHash(s) {
			t.Errorf("IsBcryptHash(%q) = true", s)
		}
	}
}

func BenchmarkVerifyToken(b *testing.B) {
	hash, _ := HashTokenWithCost("benchmark-token", bcrypt.MinCost)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = VerifyToken("benchmark-token", hash)
	}
}
