package auth

import (
	"errors"
	"testing"
	"time"
)

func TestIssueAndVerify(t *testing.T) {
	manager := NewJWTManager("secret", time.Hour, "issuer")
	token, expiresAt, err := manager.Issue(7, "ada@example.com", "Ada")
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	if time.Until(expiresAt) > time.Hour || time.Until(expiresAt) < 59*time.Minute {
		t.Fatalf("unexpected expiry %s", expiresAt)
	}

	claims, err := manager.Verify(token)
	if err != nil {
		t.Fatalf("verify token: %v", err)
	}
	id, err := claims.UserID()
	if err != nil {
		t.Fatalf("claims user id: %v", err)
	}
	if id != 7 || claims.Email != "ada@example.com" || claims.Name != "Ada" {
		t.Fatalf("unexpected claims: %#v", claims)
	}
}

func TestIssueRejectsEmptyIdentity(t *testing.T) {
	manager := NewJWTManager("secret", time.Hour, "issuer")
	if _, _, err := manager.Issue(0, "a@b.c", "A"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected invalid token error, got %v", err)
	}
	if _, _, err := manager.Issue(1, "", "A"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected invalid token error, got %v", err)
	}
}

func TestVerifyExpired(t *testing.T) {
	manager := NewJWTManager("secret", -time.Minute, "issuer")
	token, _, err := manager.Issue(1, "a@b.c", "A")
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	if _, err := manager.Verify(token); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected expired error, got %v", err)
	}
}

func TestVerifyWrongSecret(t *testing.T) {
	token, _, err := NewJWTManager("secret-a", time.Hour, "issuer").Issue(1, "a@b.c", "A")
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	if _, err := NewJWTManager("secret-b", time.Hour, "issuer").Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected invalid token error, got %v", err)
	}
}

func TestVerifyMissing(t *testing.T) {
	manager := NewJWTManager("secret", time.Hour, "issuer")
	if _, err := manager.Verify("  "); !errors.Is(err, ErrMissingToken) {
		t.Fatalf("expected missing token error, got %v", err)
	}
}

func TestDecodeIgnoresSignatureAndExpiry(t *testing.T) {
	manager := NewJWTManager("secret", -time.Minute, "issuer")
	token, _, err := manager.Issue(9, "z@example.com", "Zed")
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	claims, err := manager.Decode(token)
	if err != nil {
		t.Fatalf("decode token: %v", err)
	}
	id, err := claims.UserID()
	if err != nil {
		t.Fatalf("claims user id: %v", err)
	}
	if id != 9 {
		t.Fatalf("expected user id 9, got %d", id)
	}

	if _, err := manager.Decode("garbage"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected invalid token error, got %v", err)
	}
}

func TestTokenFromHeader(t *testing.T) {
	if _, err := TokenFromHeader("nope"); !errors.Is(err, ErrMissingToken) {
		t.Fatalf("expected missing token error, got %v", err)
	}
	if token, err := TokenFromHeader("Bearer token"); err != nil || token != "token" {
		t.Fatalf("expected token, got %s err %v", token, err)
	}
	if token, err := TokenFromHeader("bearer token"); err != nil || token != "token" {
		t.Fatalf("expected case-insensitive scheme, got %s err %v", token, err)
	}
}
