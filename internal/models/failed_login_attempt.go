package models

import "time"

// FailedLoginAttempt records one rejected login for lockout accounting.
// Rows are append-only and pruned once they age past the lockout window.
type FailedLoginAttempt struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Email string `gorm:"type:text;not null;index"` // Attempted email, lowercased.
	IP    string `gorm:"type:text;not null;index"` // Client IP.

	AttemptedAt time.Time `gorm:"not null;index"` // When the attempt happened.
}
