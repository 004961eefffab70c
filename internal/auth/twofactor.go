package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/stafftrack/attendance/internal/mailer"
	"github.com/stafftrack/attendance/internal/models"
	"github.com/stafftrack/attendance/internal/security"
	"gorm.io/gorm"
)

const (
	twoFactorCodeLength = 6
	twoFactorCodeTTL    = 5 * time.Minute
)

// Two-factor verification failures.
var (
	ErrNoChallenge = errors.New("auth: no pending two-factor challenge")
	ErrCodeExpired = errors.New("auth: two-factor code expired")
	ErrCodeInvalid = errors.New("auth: two-factor code invalid")
)

// TwoFactorService manages the emailed-code challenge bound to a session.
type TwoFactorService struct {
	db     *gorm.DB
	mailer mailer.Mailer
	nowFn  func() time.Time
}

// NewTwoFactorService constructs a TwoFactorService.
func NewTwoFactorService(db *gorm.DB, m mailer.Mailer) *TwoFactorService {
	return &TwoFactorService{db: db, mailer: m, nowFn: time.Now}
}

// Issue generates a fresh code for the session and emails it to the user.
// Re-issuing overwrites any previous challenge. A mail failure is returned
// to the caller because without the code the login cannot proceed.
func (s *TwoFactorService) Issue(ctx context.Context, session *models.Session, user *models.User) error {
	code, errCode := security.GenerateNumericCode(twoFactorCodeLength)
	if errCode != nil {
		return errCode
	}
	expiresAt := s.nowFn().UTC().Add(twoFactorCodeTTL)

	if errUpdate := s.db.WithContext(ctx).Model(session).Updates(map[string]any{
		"two_factor_code":       code,
		"two_factor_expires_at": expiresAt,
		"two_factor_verified":   false,
		"pending_user_id":       user.ID,
	}).Error; errUpdate != nil {
		return fmt.Errorf("auth: store two-factor challenge: %w", errUpdate)
	}
	session.TwoFactorCode = code
	session.TwoFactorExpiresAt = &expiresAt
	session.TwoFactorVerified = false
	session.PendingUserID = &user.ID

	subject := "Your verification code"
	body := fmt.Sprintf("Hello %s,\n\nYour verification code is %s. It expires in 5 minutes.\n", user.FullName(), code)
	if errSend := s.mailer.Send(ctx, user.Email, subject, body); errSend != nil {
		return fmt.Errorf("auth: send two-factor code: %w", errSend)
	}
	return nil
}

// Verify checks a submitted code against the session's pending challenge.
//
// An expired code is cleared so it cannot be retried; a mismatched code is
// kept so the user may correct a typo. When the pending user has a TOTP
// secret enrolled, a valid authenticator code is accepted as well.
func (s *TwoFactorService) Verify(ctx context.Context, session *models.Session, user *models.User, submitted string) error {
	submitted = strings.TrimSpace(submitted)
	if session.TwoFactorCode == "" || session.TwoFactorExpiresAt == nil {
		return ErrNoChallenge
	}

	if s.nowFn().UTC().After(*session.TwoFactorExpiresAt) {
		if errClear := s.db.WithContext(ctx).Model(session).Updates(map[string]any{
			"two_factor_code":       "",
			"two_factor_expires_at": nil,
		}).Error; errClear != nil {
			return fmt.Errorf("auth: clear expired code: %w", errClear)
		}
		session.TwoFactorCode = ""
		session.TwoFactorExpiresAt = nil
		return ErrCodeExpired
	}

	matched := submitted == session.TwoFactorCode
	if !matched && user != nil && user.TOTPSecret != "" {
		matched = totp.Validate(submitted, user.TOTPSecret)
	}
	if !matched {
		return ErrCodeInvalid
	}

	if errUpdate := s.db.WithContext(ctx).Model(session).
		Update("two_factor_verified", true).Error; errUpdate != nil {
		return fmt.Errorf("auth: mark verified: %w", errUpdate)
	}
	session.TwoFactorVerified = true
	return nil
}

// Clear wipes every challenge field on the session after login completes.
func (s *TwoFactorService) Clear(ctx context.Context, session *models.Session) error {
	if errUpdate := s.db.WithContext(ctx).Model(session).Updates(map[string]any{
		"two_factor_code":       "",
		"two_factor_expires_at": nil,
		"two_factor_verified":   false,
		"pending_user_id":       nil,
	}).Error; errUpdate != nil {
		return fmt.Errorf("auth: clear challenge: %w", errUpdate)
	}
	session.TwoFactorCode = ""
	session.TwoFactorExpiresAt = nil
	session.TwoFactorVerified = false
	session.PendingUserID = nil
	return nil
}
