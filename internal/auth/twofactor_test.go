package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stafftrack/attendance/internal/config"
	"github.com/stafftrack/attendance/internal/mailer"
	"github.com/stafftrack/attendance/internal/models"
)

type sentMail struct {
	to      string
	subject string
	body    string
}

func captureMailer(sent *[]sentMail) mailer.Mailer {
	return mailer.Func(func(_ context.Context, to, subject, body string) error {
		*sent = append(*sent, sentMail{to: to, subject: subject, body: body})
		return nil
	})
}

func beginSession(t *testing.T, svc *SessionService) *models.Session {
	t.Helper()
	session, _, errBegin := svc.Begin(context.Background(), "10.0.0.1", "test-agent")
	if errBegin != nil {
		t.Fatalf("begin session: %v", errBegin)
	}
	return session
}

func TestTwoFactorIssueAndVerify(t *testing.T) {
	conn := openTestDB(t)
	ctx := context.Background()
	user := seedUser(t, conn, "user@example.com", "password-123")
	sessions := NewSessionService(conn, config.JWTConfig{Secret: "test-secret", Expiry: time.Hour})
	session := beginSession(t, sessions)

	var sent []sentMail
	svc := NewTwoFactorService(conn, captureMailer(&sent))

	if errIssue := svc.Issue(ctx, session, user); errIssue != nil {
		t.Fatalf("issue: %v", errIssue)
	}
	if len(sent) != 1 || sent[0].to != "user@example.com" {
		t.Fatalf("expected one mail to the user, got %+v", sent)
	}
	if len(session.TwoFactorCode) != 6 {
		t.Fatalf("expected 6-digit code, got %q", session.TwoFactorCode)
	}
	if !strings.Contains(sent[0].body, session.TwoFactorCode) {
		t.Fatalf("expected mail body to carry the code")
	}

	if errVerify := svc.Verify(ctx, session, user, " "+session.TwoFactorCode+" "); errVerify != nil {
		t.Fatalf("verify: %v", errVerify)
	}
	if !session.TwoFactorVerified {
		t.Fatalf("expected session marked verified")
	}
}

func TestTwoFactorWrongCodeKeepsChallenge(t *testing.T) {
	conn := openTestDB(t)
	ctx := context.Background()
	user := seedUser(t, conn, "user@example.com", "password-123")
	sessions := NewSessionService(conn, config.JWTConfig{Secret: "test-secret", Expiry: time.Hour})
	session := beginSession(t, sessions)

	var sent []sentMail
	svc := NewTwoFactorService(conn, captureMailer(&sent))
	if errIssue := svc.Issue(ctx, session, user); errIssue != nil {
		t.Fatalf("issue: %v", errIssue)
	}
	code := session.TwoFactorCode

	wrong := "000000"
	if wrong == code {
		wrong = "000001"
	}
	if errVerify := svc.Verify(ctx, session, user, wrong); !errors.Is(errVerify, ErrCodeInvalid) {
		t.Fatalf("expected ErrCodeInvalid, got %v", errVerify)
	}
	if session.TwoFactorCode != code {
		t.Fatalf("expected challenge kept after a wrong code")
	}

	// The original code still works after a typo.
	if errVerify := svc.Verify(ctx, session, user, code); errVerify != nil {
		t.Fatalf("verify after typo: %v", errVerify)
	}
}

func TestTwoFactorExpiredCodeIsCleared(t *testing.T) {
	conn := openTestDB(t)
	ctx := context.Background()
	user := seedUser(t, conn, "user@example.com", "password-123")
	sessions := NewSessionService(conn, config.JWTConfig{Secret: "test-secret", Expiry: time.Hour})
	session := beginSession(t, sessions)

	var sent []sentMail
	svc := NewTwoFactorService(conn, captureMailer(&sent))

	base := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)
	svc.nowFn = func() time.Time { return base }
	if errIssue := svc.Issue(ctx, session, user); errIssue != nil {
		t.Fatalf("issue: %v", errIssue)
	}
	code := session.TwoFactorCode

	svc.nowFn = func() time.Time { return base.Add(6 * time.Minute) }
	if errVerify := svc.Verify(ctx, session, user, code); !errors.Is(errVerify, ErrCodeExpired) {
		t.Fatalf("expected ErrCodeExpired, got %v", errVerify)
	}
	if session.TwoFactorCode != "" {
		t.Fatalf("expected expired code to be cleared")
	}

	// The now-cleared challenge cannot be retried.
	if errVerify := svc.Verify(ctx, session, user, code); !errors.Is(errVerify, ErrNoChallenge) {
		t.Fatalf("expected ErrNoChallenge, got %v", errVerify)
	}
}

func TestTwoFactorReissueOverwrites(t *testing.T) {
	conn := openTestDB(t)
	ctx := context.Background()
	user := seedUser(t, conn, "user@example.com", "password-123")
	sessions := NewSessionService(conn, config.JWTConfig{Secret: "test-secret", Expiry: time.Hour})
	session := beginSession(t, sessions)

	var sent []sentMail
	svc := NewTwoFactorService(conn, captureMailer(&sent))
	if errIssue := svc.Issue(ctx, session, user); errIssue != nil {
		t.Fatalf("issue: %v", errIssue)
	}
	first := session.TwoFactorCode

	if errIssue := svc.Issue(ctx, session, user); errIssue != nil {
		t.Fatalf("reissue: %v", errIssue)
	}
	if len(sent) != 2 {
		t.Fatalf("expected two mails, got %d", len(sent))
	}

	if first != session.TwoFactorCode {
		if errVerify := svc.Verify(ctx, session, user, first); !errors.Is(errVerify, ErrCodeInvalid) {
			t.Fatalf("expected the first code to stop working, got %v", errVerify)
		}
	}
	if errVerify := svc.Verify(ctx, session, user, session.TwoFactorCode); errVerify != nil {
		t.Fatalf("verify latest code: %v", errVerify)
	}
}

func TestTwoFactorMailFailureAborts(t *testing.T) {
	conn := openTestDB(t)
	ctx := context.Background()
	user := seedUser(t, conn, "user@example.com", "password-123")
	sessions := NewSessionService(conn, config.JWTConfig{Secret: "test-secret", Expiry: time.Hour})
	session := beginSession(t, sessions)

	svc := NewTwoFactorService(conn, mailer.Func(func(context.Context, string, string, string) error {
		return fmt.Errorf("smtp unreachable")
	}))
	if errIssue := svc.Issue(ctx, session, user); errIssue == nil {
		t.Fatalf("expected issue to fail when mail cannot be sent")
	}
}
