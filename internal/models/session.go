package models

import "time"

// Session is a server-side login session.
//
// Issued tokens carry only the session ID, so deleting the row revokes every
// token that references it. Before two-factor verification completes the
// session holds the pending challenge and PendingUserID; UserID stays nil
// until login finishes.
type Session struct {
	ID string `gorm:"type:text;primaryKey"` // Random session identifier.

	UserID        *uint64 `gorm:"index"` // Bound user once login completes.
	PendingUserID *uint64 // User awaiting two-factor verification.

	TwoFactorCode      string     `gorm:"type:text"`              // Pending emailed code, empty when none.
	TwoFactorExpiresAt *time.Time // Expiry recorded when the code was issued.
	TwoFactorVerified  bool       `gorm:"not null;default:false"` // Set after a successful verification.

	IP        string `gorm:"type:text"` // Client IP at login.
	UserAgent string `gorm:"type:text"` // Client user agent at login.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	ExpiresAt time.Time `gorm:"not null;index"`          // Hard session expiry.
}
