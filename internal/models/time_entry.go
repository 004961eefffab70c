package models

import "time"

// TimeEntry records one attendance interval for a user.
//
// An entry with a nil CheckOutAt is open. At most one open entry may exist
// per user at any time; a partial unique index enforces this at the schema
// level in addition to the transactional checks.
type TimeEntry struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	UserID uint64 `gorm:"not null;index"`    // Owning user ID.
	User   *User  `gorm:"foreignKey:UserID"` // Owning user.

	WorkDate   time.Time  `gorm:"type:date;not null;index"` // Calendar date the entry belongs to.
	CheckInAt  time.Time  `gorm:"not null"`                 // Check-in timestamp.
	CheckOutAt *time.Time `gorm:"index"`                    // Check-out timestamp, nil while open.

	CheckInIP  string `gorm:"type:text"` // Client IP at check-in, or a server marker.
	CheckOutIP string `gorm:"type:text"` // Client IP at check-out, or a server marker.

	CheckInReason  string `gorm:"type:text"` // Declared reason for the check-in.
	CheckOutReason string `gorm:"type:text"` // Declared reason for the check-out.

	Notes string `gorm:"type:text"` // Packed notes, "checkin;checkout".

	CheckInBy  uint64  `gorm:"not null"` // User who performed the check-in.
	CheckOutBy *uint64 // User who performed the check-out, nil while open.

	OvertimeAutoCheckout bool   `gorm:"not null;default:false"` // Set when closed by the overtime monitor.
	OvertimeNotes        string `gorm:"type:text"`              // Context written by the overtime monitor.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}

// IsOpen reports whether the entry has not been checked out yet.
func (e *TimeEntry) IsOpen() bool {
	return e.CheckOutAt == nil
}
