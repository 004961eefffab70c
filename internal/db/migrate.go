package db

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/stafftrack/attendance/internal/models"
	internalsettings "github.com/stafftrack/attendance/internal/settings"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Migrate runs database migrations for the current dialect.
func Migrate(conn *gorm.DB) error {
	if conn == nil {
		return fmt.Errorf("db: nil connection")
	}
	switch DialectName(conn) {
	case DialectSQLite, DialectPostgres, "":
		return migrate(conn)
	default:
		return fmt.Errorf("db: unsupported dialect: %s", DialectName(conn))
	}
}

// migrate applies the schema, seed settings, and indexes.
// Both supported dialects understand the same DDL here, including the
// partial unique index that guards against two open entries per user.
func migrate(conn *gorm.DB) error {
	if errAutoMigrate := conn.AutoMigrate(
		&models.Sector{},
		&models.User{},
		&models.TimeEntry{},
		&models.Session{},
		&models.FailedLoginAttempt{},
		&models.Setting{},
		&models.AuditLog{},
	); errAutoMigrate != nil {
		return fmt.Errorf("db: migrate: %w", errAutoMigrate)
	}

	if errSeed := ensureDefaultSettings(conn); errSeed != nil {
		return errSeed
	}

	// ddl defines an index or DDL statement to apply.
	type ddl struct {
		name string // Human-readable name for error reporting.
		sql  string // SQL to execute.
	}
	ddls := []ddl{
		{
			name: "idx_time_entries_active_user",
			sql: `
				CREATE UNIQUE INDEX IF NOT EXISTS idx_time_entries_active_user
				ON time_entries (user_id)
				WHERE check_out_at IS NULL
			`,
		},
		{
			name: "idx_time_entries_user_work_date",
			sql: `
				CREATE INDEX IF NOT EXISTS idx_time_entries_user_work_date
				ON time_entries (user_id, work_date DESC)
			`,
		},
		{
			name: "idx_failed_login_attempts_email_attempted_at",
			sql: `
				CREATE INDEX IF NOT EXISTS idx_failed_login_attempts_email_attempted_at
				ON failed_login_attempts (email, attempted_at DESC)
			`,
		},
		{
			name: "idx_failed_login_attempts_ip_attempted_at",
			sql: `
				CREATE INDEX IF NOT EXISTS idx_failed_login_attempts_ip_attempted_at
				ON failed_login_attempts (ip, attempted_at DESC)
			`,
		},
		{
			name: "idx_audit_logs_event_created_at",
			sql: `
				CREATE INDEX IF NOT EXISTS idx_audit_logs_event_created_at
				ON audit_logs (event, created_at DESC)
			`,
		},
		{
			name: "idx_sessions_user_id_expires_at",
			sql: `
				CREATE INDEX IF NOT EXISTS idx_sessions_user_id_expires_at
				ON sessions (user_id, expires_at)
			`,
		},
	}
	for _, item := range ddls {
		if errDDL := conn.Exec(item.sql).Error; errDDL != nil {
			return fmt.Errorf("db: create index %s: %w", item.name, errDDL)
		}
	}

	return nil
}

// ensureDefaultSettings seeds settings rows that drive the schedulers.
func ensureDefaultSettings(conn *gorm.DB) error {
	if errEnsure := ensureBoolSetting(conn, internalsettings.TwoFactorEnabledKey, internalsettings.DefaultTwoFactorEnabled); errEnsure != nil {
		return errEnsure
	}
	if errEnsure := ensureBoolSetting(conn, internalsettings.AutoLogoutEnabledKey, internalsettings.DefaultAutoLogoutEnabled); errEnsure != nil {
		return errEnsure
	}
	if errEnsure := ensureStringSetting(conn, internalsettings.AutoLogoutTimeKey, internalsettings.DefaultAutoLogoutTime); errEnsure != nil {
		return errEnsure
	}
	if errEnsure := ensureBoolSetting(conn, internalsettings.SilentAutoLogoutKey, internalsettings.DefaultSilentAutoLogout); errEnsure != nil {
		return errEnsure
	}
	if errEnsure := ensureBoolSetting(conn, internalsettings.ReminderEnabledKey, internalsettings.DefaultReminderEnabled); errEnsure != nil {
		return errEnsure
	}
	if errEnsure := ensureStringSetting(conn, internalsettings.ReminderCheckInTimeKey, internalsettings.DefaultReminderCheckInTime); errEnsure != nil {
		return errEnsure
	}
	if errEnsure := ensureStringSetting(conn, internalsettings.ReminderCheckOutTimeKey, internalsettings.DefaultReminderCheckOutTime); errEnsure != nil {
		return errEnsure
	}
	if errEnsure := ensureStringSetting(conn, internalsettings.OvertimeCheckTimeKey, internalsettings.DefaultOvertimeCheckTime); errEnsure != nil {
		return errEnsure
	}
	if errEnsure := ensureStringSetting(conn, internalsettings.OvertimeWorkingDaysKey, internalsettings.DefaultOvertimeWorkingDays); errEnsure != nil {
		return errEnsure
	}
	if errEnsure := ensureIntSetting(conn, internalsettings.OvertimePromptIntervalKey, internalsettings.DefaultOvertimePromptInterval); errEnsure != nil {
		return errEnsure
	}
	if errEnsure := ensureIntSetting(conn, internalsettings.OvertimePromptTimeoutKey, internalsettings.DefaultOvertimePromptTimeout); errEnsure != nil {
		return errEnsure
	}
	if errEnsure := ensureIntSetting(conn, internalsettings.TwoFactorMaxAttemptsKey, internalsettings.DefaultTwoFactorMaxAttempts); errEnsure != nil {
		return errEnsure
	}
	if errEnsure := ensureIntSetting(conn, internalsettings.LoginMaxRequestsKey, internalsettings.DefaultLoginMaxRequests); errEnsure != nil {
		return errEnsure
	}
	return nil
}

// ensureIntSetting ensures an integer setting exists and defaults when empty.
func ensureIntSetting(conn *gorm.DB, key string, value int) error {
	payload, errMarshal := json.Marshal(value)
	if errMarshal != nil {
		return fmt.Errorf("db: marshal %s setting: %w", key, errMarshal)
	}
	return ensureSetting(conn, key, payload)
}

// ensureBoolSetting ensures a boolean setting exists and defaults when empty.
func ensureBoolSetting(conn *gorm.DB, key string, value bool) error {
	payload, errMarshal := json.Marshal(value)
	if errMarshal != nil {
		return fmt.Errorf("db: marshal %s setting: %w", key, errMarshal)
	}
	return ensureSetting(conn, key, payload)
}

// ensureStringSetting ensures a string setting exists and defaults when empty.
func ensureStringSetting(conn *gorm.DB, key string, value string) error {
	payload, errMarshal := json.Marshal(value)
	if errMarshal != nil {
		return fmt.Errorf("db: marshal %s setting: %w", key, errMarshal)
	}
	return ensureSetting(conn, key, payload)
}

// ensureSetting inserts a setting when missing, or repairs an empty value.
func ensureSetting(conn *gorm.DB, key string, payload []byte) error {
	rawValue := datatypes.JSON(payload)

	var existing models.Setting
	if errFind := conn.Where("key = ?", key).First(&existing).Error; errFind == nil {
		trimmed := strings.TrimSpace(string(existing.Value))
		if len(existing.Value) == 0 || trimmed == "" || trimmed == "null" {
			if errUpdate := conn.Model(&existing).Updates(map[string]any{
				"value":      rawValue,
				"updated_at": time.Now().UTC(),
			}).Error; errUpdate != nil {
				return fmt.Errorf("db: update %s setting: %w", key, errUpdate)
			}
		}
		return nil
	} else if !errors.Is(errFind, gorm.ErrRecordNotFound) {
		return fmt.Errorf("db: query %s setting: %w", key, errFind)
	}

	setting := models.Setting{
		Key:       key,
		Value:     rawValue,
		UpdatedAt: time.Now().UTC(),
	}
	if errCreate := conn.Create(&setting).Error; errCreate != nil {
		return fmt.Errorf("db: create %s setting: %w", key, errCreate)
	}
	return nil
}
