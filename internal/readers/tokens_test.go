package readers

import (
	"testing"
	"time"
)

func TestTokenRoundTrip(t *testing.T) {
	service := NewTokenService("test-secret", time.Hour)

	token, err := service.NewToken("reader-01")
	if err != nil {
		t.Fatalf("NewToken failed: %v", err)
	}

	claim, err := service.Decode(token)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if claim.ReaderID != "reader-01" {
		t.Errorf("expected reader-01, got %q", claim.ReaderID)
	}
}

func TestDecode_WrongSecret(t *testing.T) {
	issuer := NewTokenService("secret-a", time.Hour)
	verifier := NewTokenService("secret-b", time.Hour)

	token, err := issuer.NewToken("reader-01")
	if err != nil {
		t.Fatalf("NewToken failed: %v", err)
	}

	if _, err := verifier.Decode(token); err == nil {
		t.Error("expected verification failure with wrong secret")
	}
}

func TestDecode_Expired(t *testing.T) {
	service := NewTokenService("test-secret", -time.Minute)

	token, err := service.NewToken("reader-01")
	if err != nil {
		t.Fatalf("NewToken failed: %v", err)
	}

	if _, err := service.Decode(token); err == nil {
		t.Error("expected expired token to be rejected")
	}
}

func TestDecode_Garbage(t *testing.T) {
	service := NewTokenService("test-secret", time.Hour)
	if _, err := service.Decode("not.a.token"); err == nil {
		t.Error("expected decode failure")
	}
}
