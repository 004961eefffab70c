package auth

import (
	"context"
	"errors"
	"time"

	"github.com/stafftrack/attendance/internal/models"
	"github.com/stafftrack/attendance/internal/security"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ErrInvalidCredentials is returned for every credential failure mode,
// including lockout, so responses never reveal whether an account exists.
var ErrInvalidCredentials = errors.New("auth: invalid credentials")

// Service verifies credentials behind the lockout guard.
type Service struct {
	db      *gorm.DB
	lockout *LockoutService
}

// NewService constructs an authentication Service.
func NewService(db *gorm.DB, lockout *LockoutService) *Service {
	return &Service{db: db, lockout: lockout}
}

// Authenticate checks credentials for the email and returns the user.
//
// A locked-out attempt still records a failure before rejecting, and a
// successful login clears only the email-keyed failures.
func (s *Service) Authenticate(ctx context.Context, email, password, ip string) (*models.User, error) {
	email = normalizeEmail(email)

	locked, errLocked := s.lockout.TooManyAttempts(ctx, email, ip)
	if errLocked != nil {
		return nil, errLocked
	}
	if locked {
		if errRecord := s.lockout.RecordFailure(ctx, email, ip); errRecord != nil {
			log.WithError(errRecord).Warn("auth: record attempt during lockout")
		}
		return nil, ErrInvalidCredentials
	}

	var user models.User
	if errFind := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; errFind != nil {
		if !errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, errFind
		}
		if errRecord := s.lockout.RecordFailure(ctx, email, ip); errRecord != nil {
			log.WithError(errRecord).Warn("auth: record failed attempt")
		}
		return nil, ErrInvalidCredentials
	}

	if !security.CheckPassword(user.Password, password) {
		if errRecord := s.lockout.RecordFailure(ctx, email, ip); errRecord != nil {
			log.WithError(errRecord).Warn("auth: record failed attempt")
		}
		log.WithFields(log.Fields{
			"email": security.MaskEmail(email),
			"ip":    security.MaskIP(ip),
		}).Info("auth: rejected login")
		return nil, ErrInvalidCredentials
	}

	if errClear := s.lockout.ClearAttempts(ctx, email); errClear != nil {
		log.WithError(errClear).Warn("auth: clear attempts after login")
	}
	return &user, nil
}

// TouchActivity stamps the user's last activity time.
func (s *Service) TouchActivity(ctx context.Context, userID uint64, at time.Time) error {
	return s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		Update("last_activity_at", at.UTC()).Error
}
