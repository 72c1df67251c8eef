package auth

import (
	"testing"
	"time"
)

func TestGenerateAndParse(t *testing.T) {
	t.Parallel()

	secret := []byte("super-secret")
	tok, err := GenerateToken("user-123", secret, time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken error: %v", err)
	}

	userID, err := UserIDFromToken(tok, secret)
	if err != nil {
		t.Fatalf("UserIDFromToken error: %v", err)
	}
	if userID != "user-123" {
		t.Fatalf("userID mismatch: got %q want %q", userID, "user-123")
	}
}

func TestExpiredToken(t *testing.T) {
	t.Parallel()

	secret := []byte("secret")
	tok, err := GenerateToken("u1", secret, -time.Second)
	if err != nil {
		t.Fatalf("GenerateToken error: %v", err)
	}
	if _, err := UserIDFromToken(tok, secret); err == nil {
		t.Fatalf("expected error for expired token, got nil")
	}
}

func TestWrongSecret(t *testing.T) {
	t.Parallel()

	tok, err := GenerateToken("u2", []byte("right-secret"), time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken error: %v", err)
	}
	if _, err := UserIDFromToken(tok, []byte("wrong-secret")); err == nil {
		t.Fatalf("expected error for invalid signature, got nil")
	}
}

func TestMalformedToken(t *testing.T) {
	t.Parallel()

	if _, err := UserIDFromToken("not.a.jwt", []byte("k")); err == nil {
		t.Fatalf("expected error for malformed token, got nil")
	}
}
