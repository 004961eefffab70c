package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/stafftrack/attendance/internal/models"
	"github.com/stafftrack/attendance/internal/security"
	"gorm.io/gorm"
)

func seedUser(t *testing.T, conn *gorm.DB, email, password string) *models.User {
	t.Helper()
	hash, errHash := security.HashPassword(password)
	if errHash != nil {
		t.Fatalf("hash password: %v", errHash)
	}
	user := models.User{
		FirstName: "Test",
		LastName:  "User",
		Email:     email,
		Password:  hash,
		Role:      models.RoleZaposleni,
		Status:    models.StatusCheckedOut,
	}
	if errCreate := conn.Create(&user).Error; errCreate != nil {
		t.Fatalf("create user: %v", errCreate)
	}
	return &user
}

func TestAuthenticateSuccess(t *testing.T) {
	conn := openTestDB(t)
	ctx := context.Background()
	seedUser(t, conn, "user@example.com", "correct-password")

	svc := NewService(conn, NewLockoutService(conn))
	user, err := svc.Authenticate(ctx, " User@Example.com ", "correct-password", "10.0.0.1")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if user.Email != "user@example.com" {
		t.Fatalf("expected normalized email, got %q", user.Email)
	}
}

func TestAuthenticateGenericFailures(t *testing.T) {
	conn := openTestDB(t)
	ctx := context.Background()
	seedUser(t, conn, "user@example.com", "correct-password")

	svc := NewService(conn, NewLockoutService(conn))

	_, errUnknown := svc.Authenticate(ctx, "nobody@example.com", "whatever", "10.0.0.1")
	if !errors.Is(errUnknown, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown account, got %v", errUnknown)
	}
	_, errWrong := svc.Authenticate(ctx, "user@example.com", "wrong-password", "10.0.0.1")
	if !errors.Is(errWrong, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for wrong password, got %v", errWrong)
	}
}

func TestAuthenticateLockedOutRejectsCorrectPassword(t *testing.T) {
	conn := openTestDB(t)
	ctx := context.Background()
	seedUser(t, conn, "user@example.com", "correct-password")

	lockout := NewLockoutService(conn)
	svc := NewService(conn, lockout)

	for i := 0; i < 5; i++ {
		if _, errAuth := svc.Authenticate(ctx, "user@example.com", "wrong-password", "10.0.0.1"); !errors.Is(errAuth, ErrInvalidCredentials) {
			t.Fatalf("expected ErrInvalidCredentials, got %v", errAuth)
		}
	}

	// Locked out now; even the correct password fails, and the attempt is
	// still recorded.
	if _, errAuth := svc.Authenticate(ctx, "user@example.com", "correct-password", "10.0.0.1"); !errors.Is(errAuth, ErrInvalidCredentials) {
		t.Fatalf("expected lockout rejection, got %v", errAuth)
	}
	var count int64
	if errCount := conn.Model(&models.FailedLoginAttempt{}).Count(&count).Error; errCount != nil {
		t.Fatalf("count attempts: %v", errCount)
	}
	if count != 6 {
		t.Fatalf("expected 6 recorded attempts, got %d", count)
	}
}

func TestAuthenticateSuccessClearsEmailAttempts(t *testing.T) {
	conn := openTestDB(t)
	ctx := context.Background()
	seedUser(t, conn, "user@example.com", "correct-password")

	svc := NewService(conn, NewLockoutService(conn))
	for i := 0; i < 3; i++ {
		_, _ = svc.Authenticate(ctx, "user@example.com", "wrong-password", "10.0.0.1")
	}
	if _, errAuth := svc.Authenticate(ctx, "user@example.com", "correct-password", "10.0.0.1"); errAuth != nil {
		t.Fatalf("authenticate: %v", errAuth)
	}

	var count int64
	if errCount := conn.Model(&models.FailedLoginAttempt{}).
		Where("email = ?", "user@example.com").
		Count(&count).Error; errCount != nil {
		t.Fatalf("count attempts: %v", errCount)
	}
	if count != 0 {
		t.Fatalf("expected attempts cleared after success, got %d", count)
	}
}
