package auth

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestIssueAndVerify(t *testing.T) {
	tokens := NewTokens("test-secret", time.Hour)

	signed, err := tokens.Issue("user-1", "Alice")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	ac, err := tokens.Verify(signed)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if ac.UserID != "user-1" {
		t.Errorf("user id = %q, want user-1", ac.UserID)
	}
	if ac.Name != "Alice" {
		t.Errorf("name = %q, want Alice", ac.Name)
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	signed, err := NewTokens("secret-a", time.Hour).Issue("user-1", "")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if _, err := NewTokens("secret-b", time.Hour).Verify(signed); err == nil {
		t.Error("expected verification failure with wrong secret")
	}
}

func TestVerifyRejectsExpired(t *testing.T) {
	tokens := NewTokens("test-secret", time.Millisecond)
	signed, err := tokens.Issue("user-1", "")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	time.Sleep(10 * time.Millisecond)
	if _, err := tokens.Verify(signed); err == nil {
		t.Error("expected verification failure for expired token")
	}
}

func TestVerifyRejectsGarbage(t *testing.T) {
	tokens := NewTokens("test-secret", time.Hour)
	for _, tok := range []string{"", "not.a.token", strings.Repeat("x", 200)} {
		if _, err := tokens.Verify(tok); err == nil {
			t.Errorf("expected failure for %q", tok)
		}
	}
}

func TestContextRoundTrip(t *testing.T) {
	ac := AuthContext{UserID: "user-7", Name: "Bob"}
	ctx := WithAuth(context.Background(), ac)

	got, ok := FromContext(ctx)
	if !ok {
		t.Fatal("expected AuthContext in context")
	}
	if got.UserID != "user-7" {
		t.Errorf("user id = %q", got.UserID)
	}
	if UserID(ctx) != "user-7" {
		t.Errorf("UserID = %q", UserID(ctx))
	}
}

func TestUserIDMissing(t *testing.T) {
	if UserID(context.Background()) != "" {
		t.Error("expected empty user id for missing context")
	}
}
