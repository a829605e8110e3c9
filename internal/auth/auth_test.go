package auth

import (
	"errors"
	"testing"
	"time"
)

func TestMintVerify_RoundTrip(t *testing.T) {
	m := NewManager([]byte("test-secret"), time.Hour)

	token, err := m.Mint(42)
	if err != nil {
		t.Fatalf("Mint() error = %v", err)
	}
	if token == "" {
		t.Fatal("Mint() returned empty token")
	}

	userID, err := m.Verify(token)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if userID != 42 {
		t.Errorf("Verify() userID = %d, want 42", userID)
	}
}

func TestVerify_WrongSecret(t *testing.T) {
	minter := NewManager([]byte("secret-a"), time.Hour)
	verifier := NewManager([]byte("secret-b"), time.Hour)

	token, err := minter.Mint(7)
	if err != nil {
		t.Fatalf("Mint() error = %v", err)
	}

	if _, err := verifier.Verify(token); err == nil {
		t.Error("expected error for token signed with a different secret")
	}
}

func TestVerify_ExpiredToken(t *testing.T) {
	m := NewManager([]byte("test-secret"), -time.Minute)

	token, err := m.Mint(7)
	if err != nil {
		t.Fatalf("Mint() error = %v", err)
	}

	_, err = m.Verify(token)
	if err == nil {
		t.Fatal("expected error for expired token")
	}
	if !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
}

func TestVerify_Garbage(t *testing.T) {
	m := NewManager([]byte("test-secret"), time.Hour)

	if _, err := m.Verify("not-a-token"); err == nil {
		t.Error("expected error for malformed token")
	}
}
