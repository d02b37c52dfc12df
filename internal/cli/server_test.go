package cli

import (
	"bytes"
	"context"
	"errors"
	"net"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"rest-polls/internal/auth"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"PORT", "DATABASE_URL", "REDIS_ADDR", "AUTH_SECRET"} {
		t.Setenv(k, "")
	}
}

func missingConfig(t *testing.T) string {
	return filepath.Join(t.TempDir(), "absent.yaml")
}

func TestRunServerRequiresSecret(t *testing.T) {
	clearEnv(t)
	err := runServer(context.Background(), missingConfig(t), "0")
	if !errors.Is(err, auth.ErrMissingSecret) {
		t.Fatalf("expected missing secret error, got %v", err)
	}
}

func TestRunServerReturnsListenError(t *testing.T) {
	clearEnv(t)
	t.Setenv("AUTH_SECRET", "test-secret")

	busy, err := net.Listen("tcp", ":0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer busy.Close()
	_, port, _ := net.SplitHostPort(busy.Addr().String())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err = runServer(ctx, missingConfig(t), port)
	if err == nil || !strings.Contains(err.Error(), "listen on :"+port) {
		t.Fatalf("expected listen error, got %v", err)
	}
}

func TestTokenCommandRequiresSecret(t *testing.T) {
	clearEnv(t)
	path := missingConfig(t)
	cmd := NewTokenCmd(&path)
	cmd.SetArgs([]string{"--staff"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	if err := cmd.Execute(); !errors.Is(err, auth.ErrMissingSecret) {
		t.Fatalf("expected missing secret error, got %v", err)
	}
}

func TestTokenCommandIssuesVerifiableToken(t *testing.T) {
	clearEnv(t)
	t.Setenv("AUTH_SECRET", "test-secret")
	path := missingConfig(t)
	cmd := NewTokenCmd(&path)
	var out bytes.Buffer
	cmd.SetArgs([]string{"--staff", "--subject", "ops"})
	cmd.SetOut(&out)
	if err := cmd.Execute(); err != nil {
		t.Fatalf("token: %v", err)
	}

	manager, err := auth.NewManager("test-secret", time.Hour)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	actor, err := manager.Actor(strings.TrimSpace(out.String()))
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if actor.Subject != "ops" || !actor.Staff {
		t.Fatalf("unexpected actor %+v", actor)
	}
}
