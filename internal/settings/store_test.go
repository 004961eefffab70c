package settings_test

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stafftrack/attendance/internal/db"
	"github.com/stafftrack/attendance/internal/settings"
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

func TestStoreSeededDefaults(t *testing.T) {
	conn := openTestDB(t)
	ctx := context.Background()
	store := settings.NewStore(conn)

	if !store.Bool(ctx, settings.TwoFactorEnabledKey, false) {
		t.Fatalf("expected seeded TWO_FACTOR_ENABLED=true")
	}
	if store.Bool(ctx, settings.AutoLogoutEnabledKey, true) {
		t.Fatalf("expected seeded AUTO_LOGOUT_ENABLED=false")
	}
	if got := store.String(ctx, settings.OvertimeCheckTimeKey, ""); got != settings.DefaultOvertimeCheckTime {
		t.Fatalf("expected %q, got %q", settings.DefaultOvertimeCheckTime, got)
	}
	if got := store.Int(ctx, settings.OvertimePromptTimeoutKey, 0); got != settings.DefaultOvertimePromptTimeout {
		t.Fatalf("expected %d, got %d", settings.DefaultOvertimePromptTimeout, got)
	}
}

func TestStoreMissingKeyFallsBack(t *testing.T) {
	conn := openTestDB(t)
	ctx := context.Background()
	store := settings.NewStore(conn)

	if got := store.Int(ctx, "NO_SUCH_KEY", 42); got != 42 {
		t.Fatalf("expected fallback 42, got %d", got)
	}
}

func TestStoreSetInvalidatesCache(t *testing.T) {
	conn := openTestDB(t)
	ctx := context.Background()
	store := settings.NewStore(conn)

	if got := store.String(ctx, settings.AutoLogoutTimeKey, ""); got != settings.DefaultAutoLogoutTime {
		t.Fatalf("expected %q, got %q", settings.DefaultAutoLogoutTime, got)
	}
	if errSet := store.Set(ctx, settings.AutoLogoutTimeKey, json.RawMessage(`"18:45"`)); errSet != nil {
		t.Fatalf("set: %v", errSet)
	}
	if got := store.String(ctx, settings.AutoLogoutTimeKey, ""); got != "18:45" {
		t.Fatalf("expected updated value, got %q", got)
	}
}

func TestStoreCacheTTL(t *testing.T) {
	conn := openTestDB(t)
	ctx := context.Background()

	base := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)
	now := base
	store := settings.NewStoreWithClock(conn, func() time.Time { return now })

	if !store.Bool(ctx, settings.TwoFactorEnabledKey, false) {
		t.Fatalf("expected TWO_FACTOR_ENABLED=true")
	}

	// Write behind the cache's back; the stale value survives inside the TTL.
	another := settings.NewStore(conn)
	if errSet := another.Set(ctx, settings.TwoFactorEnabledKey, json.RawMessage(`false`)); errSet != nil {
		t.Fatalf("set: %v", errSet)
	}
	if !store.Bool(ctx, settings.TwoFactorEnabledKey, false) {
		t.Fatalf("expected cached value inside TTL")
	}

	// Security toggles refresh after a minute.
	now = base.Add(61 * time.Second)
	if store.Bool(ctx, settings.TwoFactorEnabledKey, true) {
		t.Fatalf("expected refreshed value after TTL")
	}
}

func TestParseHelpers(t *testing.T) {
	if v, ok := settings.ParseBool(json.RawMessage(`true`)); !ok || !v {
		t.Fatalf("expected true, got %v ok=%v", v, ok)
	}
	if v, ok := settings.ParseBool(json.RawMessage(`"false"`)); !ok || v {
		t.Fatalf("expected quoted false to parse, got %v ok=%v", v, ok)
	}
	if v, ok := settings.ParseNonNegativeInt(json.RawMessage(`15`)); !ok || v != 15 {
		t.Fatalf("expected 15, got %v ok=%v", v, ok)
	}
	if _, ok := settings.ParseNonNegativeInt(json.RawMessage(`-3`)); ok {
		t.Fatalf("expected negative to fail")
	}
	if v, ok := settings.ParseString(json.RawMessage(`"15:30"`)); !ok || v != "15:30" {
		t.Fatalf("expected string, got %v ok=%v", v, ok)
	}
}
