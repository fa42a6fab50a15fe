package httpapi

import (
	"strings"
	"testing"
	"time"

	"barbearia/backend/internal/domain"
)

func TestTokenRoundTrip(t *testing.T) {
	tokens := NewTokenManager("roundtrip-secret-0123456789abcdef", time.Hour)

	resp, err := tokens.Issue(domain.Actor{Username: "ana", Role: "cashier"})
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	if resp.Role != "cashier" {
		t.Fatalf("expected cashier role in response, got %s", resp.Role)
	}

	actor, err := tokens.Parse(resp.AccessToken)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if actor.Username != "ana" || actor.Role != "cashier" {
		t.Fatalf("unexpected actor %+v", actor)
	}
}

func TestTokenRejectsWrongSecret(t *testing.T) {
	issuer := NewTokenManager("issuer-secret-0123456789abcdef00", time.Hour)
	verifier := NewTokenManager("other-secret-0123456789abcdef000", time.Hour)

	resp, err := issuer.Issue(domain.Actor{Username: "admin", Role: "admin"})
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	if _, err := verifier.Parse(resp.AccessToken); err == nil {
		t.Fatalf("expected token signed with another secret to be rejected")
	}
}

func TestTokenRejectsExpired(t *testing.T) {
	tokens := NewTokenManager("expired-secret-0123456789abcdef0", time.Hour)
	tokens.tokenTTL = -time.Hour

	resp, err := tokens.Issue(domain.Actor{Username: "admin", Role: "admin"})
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	if _, err := tokens.Parse(resp.AccessToken); err == nil {
		t.Fatalf("expected expired token to be rejected")
	}
}

func TestTokenRejectsGarbage(t *testing.T) {
	tokens := NewTokenManager("garbage-secret-0123456789abcdef0", time.Hour)

	for _, raw := range []string{"", "not-a-token", strings.Repeat("a.", 40)} {
		if _, err := tokens.Parse(raw); err == nil {
			t.Fatalf("expected %q to be rejected", raw)
		}
	}
}
