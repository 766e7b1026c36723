package auth

import (
	"testing"
	"time"
)

func TestTokenRoundtrip(t *testing.T) {
	Init("test-secret", time.Hour)

	signed, err := IssueToken("u1", "tasker")
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}

	claims, err := ParseToken(signed)
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}
	if claims.UserID != "u1" || claims.Role != "tasker" {
		t.Fatalf("claims = %+v", claims)
	}
	if claims.TokenID == "" {
		t.Fatal("token id missing")
	}
	if !claims.ExpiresAt.After(time.Now()) {
		t.Fatalf("expiry in the past: %v", claims.ExpiresAt)
	}
}

func TestTokenIDsAreUnique(t *testing.T) {
	Init("test-secret", time.Hour)

	a, _ := IssueToken("u1", "customer")
	b, _ := IssueToken("u1", "customer")
	ca, err := ParseToken(a)
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}
	cb, err := ParseToken(b)
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}
	if ca.TokenID == cb.TokenID {
		t.Fatal("two tokens share a jti")
	}
}

func TestParseTokenRejectsTampering(t *testing.T) {
	Init("test-secret", time.Hour)
	signed, err := IssueToken("u1", "customer")
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}

	Init("other-secret", time.Hour)
	if _, err := ParseToken(signed); err == nil {
		t.Fatal("token signed with a different secret must not parse")
	}

	Init("test-secret", time.Hour)
	if _, err := ParseToken(signed + "x"); err == nil {
		t.Fatal("mangled token must not parse")
	}
	if _, err := ParseToken("not-a-token"); err == nil {
		t.Fatal("garbage must not parse")
	}
}

func TestParseTokenRejectsExpired(t *testing.T) {
	Init("test-secret", time.Hour)
	tokenTTL = -time.Minute
	signed, err := IssueToken("u1", "customer")
	tokenTTL = time.Hour
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	if _, err := ParseToken(signed); err == nil {
		t.Fatal("expired token must not parse")
	}
}
