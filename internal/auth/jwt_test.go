package auth

import (
	"errors"
	"testing"
	"time"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestTokenRoundTrip(t *testing.T) {
	issuer := NewTokenIssuer(testSecret, time.Hour)

	token, expires, err := issuer.Generate("u1", "ada@example.com", "user")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if time.Until(expires) < 55*time.Minute {
		t.Fatalf("expiry too soon: %v", expires)
	}

	claims, err := issuer.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.UserID != "u1" || claims.Email != "ada@example.com" || claims.Role != "user" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	token, _, err := NewTokenIssuer(testSecret, time.Hour).Generate("u1", "a@b.c", "user")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	other := NewTokenIssuer("another-secret-another-secret-12", time.Hour)
	if _, err := other.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected invalid token, got %v", err)
	}
}

func TestVerifyRejectsExpired(t *testing.T) {
	issuer := NewTokenIssuer(testSecret, -time.Minute)
	token, _, err := issuer.Generate("u1", "a@b.c", "user")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := issuer.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected invalid token, got %v", err)
	}
}

func TestVerifyRejectsGarbage(t *testing.T) {
	issuer := NewTokenIssuer(testSecret, time.Hour)
	for _, s := range []string{"", "not-a-token", "a.b.c"} {
		if _, err := issuer.Verify(s); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("Verify(%q): expected invalid token, got %v", s, err)
		}
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("secret-123")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if hash == "secret-123" {
		t.Fatalf("hash must not equal plaintext")
	}
	if !CheckPassword(hash, "secret-123") {
		t.Fatalf("correct password rejected")
	}
	if CheckPassword(hash, "wrong") {
		t.Fatalf("wrong password accepted")
	}
}
