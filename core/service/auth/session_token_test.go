package auth

import (
	"testing"
	"time"

	"smartmail_server/core/domain"
)

func TestSignAndParse(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", 30*time.Minute)

	session := domain.Session{
		Email:        "user@example.com",
		Name:         "Test User",
		AccessToken:  "ya29.access",
		RefreshToken: "1//refresh",
	}

	signed, err := issuer.Sign(session)
	if err != nil {
		t.Fatalf("Sign() error = %v", err)
	}

	got, err := issuer.Parse(signed)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if got.Email != session.Email {
		t.Errorf("Email = %q, want %q", got.Email, session.Email)
	}
	if got.Name != session.Name {
		t.Errorf("Name = %q, want %q", got.Name, session.Name)
	}
	if got.AccessToken != session.AccessToken {
		t.Errorf("AccessToken = %q, want %q", got.AccessToken, session.AccessToken)
	}
	if got.RefreshToken != session.RefreshToken {
		t.Errorf("RefreshToken = %q, want %q", got.RefreshToken, session.RefreshToken)
	}
}

func TestParseRejectsWrongSecret(t *testing.T) {
	signed, err := NewTokenIssuer("secret-a", time.Minute).Sign(domain.Session{Email: "a@b.c"})
	if err != nil {
		t.Fatalf("Sign() error = %v", err)
	}

	if _, err := NewTokenIssuer("secret-b", time.Minute).Parse(signed); err == nil {
		t.Fatal("expected error for token signed with a different secret")
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	issuer := NewTokenIssuer("secret", time.Minute)
	if _, err := issuer.Parse("not.a.token"); err == nil {
		t.Fatal("expected error for malformed token")
	}
}

func TestDefaultTTL(t *testing.T) {
	issuer := NewTokenIssuer("secret", 0)
	if issuer.ttl != DefaultSessionTTL {
		t.Errorf("ttl = %v, want %v", issuer.ttl, DefaultSessionTTL)
	}
}
