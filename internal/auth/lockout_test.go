package auth

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stafftrack/attendance/internal/db"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "att-test.db")
	conn, err := db.Open(dsn)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}
	return conn
}

func TestLockoutEmailThreshold(t *testing.T) {
	conn := openTestDB(t)
	ctx := context.Background()
	svc := NewLockoutService(conn)

	for i := 0; i < 4; i++ {
		if errRecord := svc.RecordFailure(ctx, "user@example.com", "10.0.0.1"); errRecord != nil {
			t.Fatalf("record failure: %v", errRecord)
		}
	}
	locked, err := svc.TooManyAttempts(ctx, "user@example.com", "10.0.0.1")
	if err != nil {
		t.Fatalf("too many attempts: %v", err)
	}
	if locked {
		t.Fatalf("expected not locked after 4 failures")
	}

	if errRecord := svc.RecordFailure(ctx, "USER@example.com", "10.0.0.1"); errRecord != nil {
		t.Fatalf("record failure: %v", errRecord)
	}
	locked, err = svc.TooManyAttempts(ctx, "user@example.com", "10.0.0.1")
	if err != nil {
		t.Fatalf("too many attempts: %v", err)
	}
	if !locked {
		t.Fatalf("expected locked after 5 failures")
	}

	// Other accounts from other addresses stay unaffected.
	locked, err = svc.TooManyAttempts(ctx, "other@example.com", "10.0.0.2")
	if err != nil {
		t.Fatalf("too many attempts: %v", err)
	}
	if locked {
		t.Fatalf("expected other account not locked")
	}
}

func TestLockoutIPThreshold(t *testing.T) {
	conn := openTestDB(t)
	ctx := context.Background()
	svc := NewLockoutService(conn)

	// Ten failures across different accounts from one address.
	emails := []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j"}
	for _, name := range emails {
		if errRecord := svc.RecordFailure(ctx, name+"@example.com", "10.0.0.9"); errRecord != nil {
			t.Fatalf("record failure: %v", errRecord)
		}
	}

	locked, err := svc.TooManyAttempts(ctx, "fresh@example.com", "10.0.0.9")
	if err != nil {
		t.Fatalf("too many attempts: %v", err)
	}
	if !locked {
		t.Fatalf("expected IP lockout after 10 failures")
	}

	locked, err = svc.TooManyAttempts(ctx, "fresh@example.com", "10.0.0.10")
	if err != nil {
		t.Fatalf("too many attempts: %v", err)
	}
	if locked {
		t.Fatalf("expected other address not locked")
	}
}

func TestClearAttemptsKeepsIPFailures(t *testing.T) {
	conn := openTestDB(t)
	ctx := context.Background()
	svc := NewLockoutService(conn)

	for i := 0; i < 5; i++ {
		if errRecord := svc.RecordFailure(ctx, "user@example.com", "10.0.0.5"); errRecord != nil {
			t.Fatalf("record failure: %v", errRecord)
		}
	}
	if errClear := svc.ClearAttempts(ctx, "user@example.com"); errClear != nil {
		t.Fatalf("clear attempts: %v", errClear)
	}

	locked, err := svc.TooManyAttempts(ctx, "user@example.com", "10.0.0.5")
	if err != nil {
		t.Fatalf("too many attempts: %v", err)
	}
	if locked {
		t.Fatalf("expected unlock after clearing email attempts")
	}
}

func TestLockoutWindowExpiry(t *testing.T) {
	conn := openTestDB(t)
	ctx := context.Background()

	base := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)
	svc := NewLockoutService(conn)
	svc.nowFn = func() time.Time { return base }

	for i := 0; i < 5; i++ {
		if errRecord := svc.RecordFailure(ctx, "user@example.com", "10.0.0.1"); errRecord != nil {
			t.Fatalf("record failure: %v", errRecord)
		}
	}
	locked, err := svc.TooManyAttempts(ctx, "user@example.com", "10.0.0.1")
	if err != nil {
		t.Fatalf("too many attempts: %v", err)
	}
	if !locked {
		t.Fatalf("expected lockout inside the window")
	}

	svc.nowFn = func() time.Time { return base.Add(16 * time.Minute) }
	locked, err = svc.TooManyAttempts(ctx, "user@example.com", "10.0.0.1")
	if err != nil {
		t.Fatalf("too many attempts: %v", err)
	}
	if locked {
		t.Fatalf("expected window to expire after 15 minutes")
	}

	purged, errCleanup := svc.CleanupExpired(ctx)
	if errCleanup != nil {
		t.Fatalf("cleanup: %v", errCleanup)
	}
	if purged != 5 {
		t.Fatalf("expected 5 purged attempts, got %d", purged)
	}
}

func TestUnlock(t *testing.T) {
	conn := openTestDB(t)
	ctx := context.Background()
	svc := NewLockoutService(conn)

	for i := 0; i < 6; i++ {
		if errRecord := svc.RecordFailure(ctx, "user@example.com", "10.0.0.1"); errRecord != nil {
			t.Fatalf("record failure: %v", errRecord)
		}
	}
	purged, err := svc.Unlock(ctx, "User@Example.com ")
	if err != nil {
		t.Fatalf("unlock: %v", err)
	}
	if purged != 6 {
		t.Fatalf("expected 6 purged attempts, got %d", purged)
	}
}
