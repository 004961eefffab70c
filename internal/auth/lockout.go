package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/stafftrack/attendance/internal/models"
	"gorm.io/gorm"
)

// Lockout thresholds. Failures are counted over a rolling window; either
// threshold locks the attempt out.
const (
	maxEmailAttempts = 5
	maxIPAttempts    = 10
	lockoutWindow    = 15 * time.Minute
)

// LockoutService tracks failed logins and enforces the lockout policy.
type LockoutService struct {
	db    *gorm.DB
	nowFn func() time.Time
}

// NewLockoutService constructs a LockoutService.
func NewLockoutService(db *gorm.DB) *LockoutService {
	return &LockoutService{db: db, nowFn: time.Now}
}

// RecordFailure stores a failed attempt for the email and IP.
func (s *LockoutService) RecordFailure(ctx context.Context, email, ip string) error {
	attempt := models.FailedLoginAttempt{
		Email:       normalizeEmail(email),
		IP:          strings.TrimSpace(ip),
		AttemptedAt: s.nowFn().UTC(),
	}
	if errCreate := s.db.WithContext(ctx).Create(&attempt).Error; errCreate != nil {
		return fmt.Errorf("auth: record failed attempt: %w", errCreate)
	}
	return nil
}

// TooManyAttempts reports whether the email or IP is currently locked out.
func (s *LockoutService) TooManyAttempts(ctx context.Context, email, ip string) (bool, error) {
	cutoff := s.nowFn().UTC().Add(-lockoutWindow)

	var emailCount int64
	if errCount := s.db.WithContext(ctx).Model(&models.FailedLoginAttempt{}).
		Where("email = ? AND attempted_at > ?", normalizeEmail(email), cutoff).
		Count(&emailCount).Error; errCount != nil {
		return false, fmt.Errorf("auth: count email attempts: %w", errCount)
	}
	if emailCount >= maxEmailAttempts {
		return true, nil
	}

	ip = strings.TrimSpace(ip)
	if ip == "" {
		return false, nil
	}
	var ipCount int64
	if errCount := s.db.WithContext(ctx).Model(&models.FailedLoginAttempt{}).
		Where("ip = ? AND attempted_at > ?", ip, cutoff).
		Count(&ipCount).Error; errCount != nil {
		return false, fmt.Errorf("auth: count ip attempts: %w", errCount)
	}
	return ipCount >= maxIPAttempts, nil
}

// ClearAttempts removes all recorded failures for an email. Intentionally
// keyed by email only: IP-keyed failures keep counting toward the IP limit.
func (s *LockoutService) ClearAttempts(ctx context.Context, email string) error {
	if errDelete := s.db.WithContext(ctx).
		Where("email = ?", normalizeEmail(email)).
		Delete(&models.FailedLoginAttempt{}).Error; errDelete != nil {
		return fmt.Errorf("auth: clear attempts: %w", errDelete)
	}
	return nil
}

// CleanupExpired prunes attempts older than the lockout window.
func (s *LockoutService) CleanupExpired(ctx context.Context) (int64, error) {
	cutoff := s.nowFn().UTC().Add(-lockoutWindow)
	res := s.db.WithContext(ctx).
		Where("attempted_at <= ?", cutoff).
		Delete(&models.FailedLoginAttempt{})
	if res.Error != nil {
		return 0, fmt.Errorf("auth: cleanup attempts: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// Unlock removes all failures for an email and reports how many were purged.
func (s *LockoutService) Unlock(ctx context.Context, email string) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("email = ?", normalizeEmail(email)).
		Delete(&models.FailedLoginAttempt{})
	if res.Error != nil {
		return 0, fmt.Errorf("auth: unlock: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// normalizeEmail lowercases and trims an email for storage and comparison.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
