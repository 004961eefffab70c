package models

import (
	"strings"
	"time"
)

// Role identifies the access level of a user account.
type Role string

// Roles ordered from highest to lowest privilege.
const (
	RoleSuperAdmin  Role = "SuperAdmin"
	RoleAdmin       Role = "Admin"
	RoleKadrovik    Role = "Kadrovik"
	RoleRukovodilac Role = "Rukovodilac"
	RoleZaposleni   Role = "Zaposleni"
)

// IsStaffAdmin reports whether the role may manage other users' attendance.
func (r Role) IsStaffAdmin() bool {
	return r == RoleSuperAdmin || r == RoleAdmin || r == RoleKadrovik
}

// Status is the cached attendance state of a user.
type Status string

// Attendance statuses.
const (
	StatusCheckedIn  Status = "CheckedIn"
	StatusCheckedOut Status = "CheckedOut"
)

// RootUserID is the seeded root account. It can never be updated or deleted.
const RootUserID uint64 = 1

// User represents an employee account stored in the database.
type User struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	FirstName string `gorm:"type:text;not null"`             // Given name.
	LastName  string `gorm:"type:text;not null"`             // Family name.
	Email     string `gorm:"type:text;not null;uniqueIndex"` // Login email, stored lowercased.
	Password  string `gorm:"type:text;not null"`             // Bcrypt password hash.

	Role Role `gorm:"type:text;not null;default:Zaposleni"` // Access role.

	SectorID *uint64 `gorm:"index"`                // Assigned sector ID.
	Sector   *Sector `gorm:"foreignKey:SectorID"`  // Assigned sector.

	Status Status `gorm:"type:text;not null;default:CheckedOut"` // Cached attendance status.

	PasswordNeedsChange bool   `gorm:"not null;default:false"` // Forces a password change before any other action.
	TOTPSecret          string `gorm:"type:text"`              // Optional authenticator app secret.

	LastActivityAt        *time.Time // Last confirmed activity.
	OvertimePromptShownAt *time.Time // When the overtime prompt was last shown.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}

// FullName returns the display name for the user.
func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// IsRoot reports whether this is the protected root account.
func (u *User) IsRoot() bool {
	return u.ID == RootUserID
}
