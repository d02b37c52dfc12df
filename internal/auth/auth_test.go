package auth

import (
	"errors"
	"testing"
	"time"

	"rest-polls/internal/domain"
)

func TestIssueAndVerify(t *testing.T) {
	m := newManager(t, "secret")

	token, err := m.Issue("admin", true)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	actor, err := m.Actor(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if actor.Subject != "admin" || !actor.Staff {
		t.Fatalf("unexpected actor %+v", actor)
	}
}

func TestRejectsForeignSignature(t *testing.T) {
	token, err := newManager(t, "one").Issue("admin", true)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := newManager(t, "two").Actor(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected invalid token, got %v", err)
	}
}

func TestGate(t *testing.T) {
	if !(Gate{}).CanWrite(domain.Actor{Staff: true}) {
		t.Fatalf("staff must be allowed to write")
	}
	if (Gate{}).CanWrite(domain.Actor{Subject: "visitor"}) {
		t.Fatalf("non-staff must not write")
	}
}

func TestNewManagerRequiresSecret(t *testing.T) {
	if _, err := NewManager("", time.Hour); !errors.Is(err, ErrMissingSecret) {
		t.Fatalf("expected missing secret error, got %v", err)
	}
}

func newManager(t *testing.T, secret string) *Manager {
	t.Helper()
	m, err := NewManager(secret, time.Hour)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	return m
}
