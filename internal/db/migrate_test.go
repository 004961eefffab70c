package db

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stafftrack/attendance/internal/models"
	internalsettings "github.com/stafftrack/attendance/internal/settings"
)

func TestMigrateSeedsDefaultsAndIsIdempotent(t *testing.T) {
	dsn := "file:" + filepath.Join(t.TempDir(), "att-test.db")
	conn, err := Open(dsn)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}

	if errMigrate := Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}
	if errMigrate := Migrate(conn); errMigrate != nil {
		t.Fatalf("second migrate: %v", errMigrate)
	}

	var count int64
	if errCount := conn.Model(&models.Setting{}).Count(&count).Error; errCount != nil {
		t.Fatalf("count settings: %v", errCount)
	}
	if count == 0 {
		t.Fatalf("expected seeded settings")
	}

	for _, key := range []string{
		internalsettings.TwoFactorEnabledKey,
		internalsettings.AutoLogoutTimeKey,
		internalsettings.OvertimeWorkingDaysKey,
		internalsettings.TwoFactorMaxAttemptsKey,
	} {
		var setting models.Setting
		if errFind := conn.Where("key = ?", key).First(&setting).Error; errFind != nil {
			t.Fatalf("expected setting %s seeded: %v", key, errFind)
		}
	}

	// Numeric values must survive the round trip through the value column.
	// SQLite coerces bare numbers in a jsonb-typed column, so the column is
	// declared text; this catches a regression of that declaration.
	store := internalsettings.NewStore(conn)
	got := store.Int(context.Background(), internalsettings.OvertimePromptIntervalKey, -1)
	if got != internalsettings.DefaultOvertimePromptInterval {
		t.Fatalf("expected seeded interval %d, got %d", internalsettings.DefaultOvertimePromptInterval, got)
	}
}

func TestOpenEntryUniqueIndex(t *testing.T) {
	dsn := "file:" + filepath.Join(t.TempDir(), "att-test.db")
	conn, err := Open(dsn)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if errMigrate := Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}

	user := models.User{
		FirstName: "Test",
		LastName:  "User",
		Email:     "user@example.com",
		Password:  "irrelevant",
		Role:      models.RoleZaposleni,
		Status:    models.StatusCheckedOut,
	}
	if errCreate := conn.Create(&user).Error; errCreate != nil {
		t.Fatalf("create user: %v", errCreate)
	}

	first := models.TimeEntry{UserID: user.ID, CheckInIP: "10.0.0.1", CheckInBy: user.ID}
	if errCreate := conn.Create(&first).Error; errCreate != nil {
		t.Fatalf("create entry: %v", errCreate)
	}
	second := models.TimeEntry{UserID: user.ID, CheckInIP: "10.0.0.1", CheckInBy: user.ID}
	if errCreate := conn.Create(&second).Error; errCreate == nil {
		t.Fatalf("expected second open entry to violate the partial unique index")
	}
}

func TestDialectHelpers(t *testing.T) {
	dsn := "file:" + filepath.Join(t.TempDir(), "att-test.db")
	conn, err := Open(dsn)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}

	if !IsSQLite(conn) {
		t.Fatalf("expected sqlite dialect, got %q", DialectName(conn))
	}
	if got := CaseInsensitiveLikeExpr(conn, "email"); got != "LOWER(email) LIKE ?" {
		t.Fatalf("unexpected LIKE expression %q", got)
	}
	if got := NormalizeLikePattern(conn, "%Ana%"); got != "%ana%" {
		t.Fatalf("unexpected normalized pattern %q", got)
	}
}
