package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stafftrack/attendance/internal/config"
	"github.com/stafftrack/attendance/internal/models"
)

func TestSessionLifecycle(t *testing.T) {
	conn := openTestDB(t)
	ctx := context.Background()
	user := seedUser(t, conn, "user@example.com", "password-123")

	svc := NewSessionService(conn, config.JWTConfig{Secret: "test-secret", Expiry: time.Hour})
	session, token, errBegin := svc.Begin(ctx, "10.0.0.1", "test-agent")
	if errBegin != nil {
		t.Fatalf("begin: %v", errBegin)
	}
	if session.UserID != nil {
		t.Fatalf("expected session unbound before completion")
	}

	resolved, errResolve := svc.Resolve(ctx, token)
	if errResolve != nil {
		t.Fatalf("resolve: %v", errResolve)
	}
	if resolved.ID != session.ID {
		t.Fatalf("expected session %q, got %q", session.ID, resolved.ID)
	}

	if errComplete := svc.Complete(ctx, session, user.ID); errComplete != nil {
		t.Fatalf("complete: %v", errComplete)
	}
	resolved, errResolve = svc.Resolve(ctx, token)
	if errResolve != nil {
		t.Fatalf("resolve after complete: %v", errResolve)
	}
	if resolved.UserID == nil || *resolved.UserID != user.ID {
		t.Fatalf("expected session bound to user %d", user.ID)
	}

	if errDelete := svc.Delete(ctx, session.ID); errDelete != nil {
		t.Fatalf("delete: %v", errDelete)
	}
	if _, errResolve = svc.Resolve(ctx, token); !errors.Is(errResolve, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound after delete, got %v", errResolve)
	}
}

func TestSessionExpiryDeletesRow(t *testing.T) {
	conn := openTestDB(t)
	ctx := context.Background()

	svc := NewSessionService(conn, config.JWTConfig{Secret: "test-secret", Expiry: time.Hour})
	base := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)
	svc.nowFn = func() time.Time { return base }

	session, token, errBegin := svc.Begin(ctx, "10.0.0.1", "test-agent")
	if errBegin != nil {
		t.Fatalf("begin: %v", errBegin)
	}

	svc.nowFn = func() time.Time { return base.Add(61 * time.Minute) }
	if _, errResolve := svc.Resolve(ctx, token); !errors.Is(errResolve, ErrSessionExpired) {
		t.Fatalf("expected ErrSessionExpired, got %v", errResolve)
	}

	var count int64
	if errCount := conn.Model(&models.Session{}).Where("id = ?", session.ID).Count(&count).Error; errCount != nil {
		t.Fatalf("count sessions: %v", errCount)
	}
	if count != 0 {
		t.Fatalf("expected expired row deleted, got %d", count)
	}
}

func TestDeleteAllForUserRevokesTokens(t *testing.T) {
	conn := openTestDB(t)
	ctx := context.Background()
	user := seedUser(t, conn, "user@example.com", "password-123")

	svc := NewSessionService(conn, config.JWTConfig{Secret: "test-secret", Expiry: time.Hour})
	var tokens []string
	for i := 0; i < 3; i++ {
		session, token, errBegin := svc.Begin(ctx, "10.0.0.1", "test-agent")
		if errBegin != nil {
			t.Fatalf("begin: %v", errBegin)
		}
		if errComplete := svc.Complete(ctx, session, user.ID); errComplete != nil {
			t.Fatalf("complete: %v", errComplete)
		}
		tokens = append(tokens, token)
	}

	ids, errList := svc.UserIDsWithSessions(ctx)
	if errList != nil {
		t.Fatalf("list users: %v", errList)
	}
	if len(ids) != 1 || ids[0] != user.ID {
		t.Fatalf("expected one user with sessions, got %v", ids)
	}

	if errDelete := svc.DeleteAllForUser(ctx, user.ID); errDelete != nil {
		t.Fatalf("delete all: %v", errDelete)
	}
	for _, token := range tokens {
		if _, errResolve := svc.Resolve(ctx, token); !errors.Is(errResolve, ErrSessionNotFound) {
			t.Fatalf("expected token revoked, got %v", errResolve)
		}
	}
}
