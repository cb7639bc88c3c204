package auth

import (
	"testing"
	"time"

	"bodacover-platform/internal/config"
)

func testManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(config.AuthConfig{
		JWTSecret:      "test-secret",
		JWTIssuer:      "bodacover",
		AccessTokenTTL: 15 * time.Minute,
	})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	return m
}

func TestIssueAndVerify(t *testing.T) {
	m := testManager(t)
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	tok, err := m.Issue(now, "admin-1", "finance")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	claims, err := m.Verify(tok, now.Add(time.Minute))
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.UserID != "admin-1" || claims.Role != "finance" {
		t.Fatalf("claims = %q/%q", claims.UserID, claims.Role)
	}
}

func TestVerify_RejectsExpired(t *testing.T) {
	m := testManager(t)
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	tok, err := m.Issue(now, "admin-1", "finance")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	if _, err := m.Verify(tok, now.Add(16*time.Minute)); err == nil {
		t.Fatalf("expected expiry error")
	}
}

func TestVerify_RejectsGarbage(t *testing.T) {
	m := testManager(t)
	if _, err := m.Verify("not-a-token", time.Now()); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestNewManager_RequiresSecret(t *testing.T) {
	if _, err := NewManager(config.AuthConfig{}); err == nil {
		t.Fatalf("expected error for empty secret")
	}
}
