package models

import (
	"time"

	"gorm.io/datatypes"
)

// Audit event names recorded by the audit writer.
const (
	AuditFailedLogin     = "failed_login"
	AuditSuccessfulLogin = "successful_login"
	AuditLogout          = "logout"
	AuditPasswordChange  = "password_change"
	AuditUserCreated     = "user_created"
	AuditUserUpdated     = "user_updated"
	AuditUserDeleted     = "user_deleted"
	AuditForcedCheckIn   = "forced_check_in"
	AuditForcedCheckOut  = "forced_check_out"
)

// AuditLog is one append-only security event record.
// Emails and IPs inside Metadata are stored masked.
type AuditLog struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Event   string  `gorm:"type:text;not null;index"` // Event name.
	ActorID *uint64 `gorm:"index"`                    // Acting user ID, nil for anonymous events.

	IP        string `gorm:"type:text"` // Client IP.
	UserAgent string `gorm:"type:text"` // Client user agent.

	Description string         `gorm:"type:text"`  // Human-readable summary.
	Metadata    datatypes.JSON `gorm:"type:jsonb"` // Masked structured context.

	CreatedAt time.Time `gorm:"not null;autoCreateTime;index"` // Creation timestamp.
}
