package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/stafftrack/attendance/internal/config"
	"github.com/stafftrack/attendance/internal/models"
	"github.com/stafftrack/attendance/internal/security"
	"gorm.io/gorm"
)

// Session resolution failures.
var (
	ErrSessionNotFound = errors.New("auth: session not found")
	ErrSessionExpired  = errors.New("auth: session expired")
)

// SessionService manages server-side sessions and their bearer tokens.
type SessionService struct {
	db     *gorm.DB
	jwtCfg config.JWTConfig
	nowFn  func() time.Time
}

// NewSessionService constructs a SessionService.
func NewSessionService(db *gorm.DB, jwtCfg config.JWTConfig) *SessionService {
	return &SessionService{db: db, jwtCfg: jwtCfg, nowFn: time.Now}
}

// Begin creates a session row and issues the token that names it.
// For two-factor logins the session starts unbound; Complete attaches the
// user once verification succeeds.
func (s *SessionService) Begin(ctx context.Context, ip, userAgent string) (*models.Session, string, error) {
	id, errID := security.NewSessionID()
	if errID != nil {
		return nil, "", errID
	}
	now := s.nowFn().UTC()
	session := models.Session{
		ID:        id,
		IP:        ip,
		UserAgent: userAgent,
		CreatedAt: now,
		ExpiresAt: now.Add(s.jwtCfg.Expiry),
	}
	if errCreate := s.db.WithContext(ctx).Create(&session).Error; errCreate != nil {
		return nil, "", fmt.Errorf("auth: create session: %w", errCreate)
	}

	token, errSign := security.SignSessionToken(s.jwtCfg.Secret, session.ID, s.jwtCfg.Expiry)
	if errSign != nil {
		return nil, "", errSign
	}
	return &session, token, nil
}

// Complete binds a verified user to the session.
func (s *SessionService) Complete(ctx context.Context, session *models.Session, userID uint64) error {
	if errUpdate := s.db.WithContext(ctx).Model(session).
		Update("user_id", userID).Error; errUpdate != nil {
		return fmt.Errorf("auth: complete session: %w", errUpdate)
	}
	session.UserID = &userID
	return nil
}

// Resolve validates a bearer token and loads its session row.
// Expired rows are deleted on sight.
func (s *SessionService) Resolve(ctx context.Context, token string) (*models.Session, error) {
	claims, errParse := security.ParseSessionToken(s.jwtCfg.Secret, token)
	if errParse != nil {
		return nil, ErrSessionNotFound
	}

	var session models.Session
	if errFind := s.db.WithContext(ctx).Where("id = ?", claims.SessionID).First(&session).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("auth: load session: %w", errFind)
	}

	if s.nowFn().UTC().After(session.ExpiresAt) {
		_ = s.db.WithContext(ctx).Delete(&session).Error
		return nil, ErrSessionExpired
	}
	return &session, nil
}

// Delete removes one session.
func (s *SessionService) Delete(ctx context.Context, id string) error {
	if errDelete := s.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Session{}).Error; errDelete != nil {
		return fmt.Errorf("auth: delete session: %w", errDelete)
	}
	return nil
}

// DeleteAllForUser removes every session bound to the user, revoking all
// outstanding tokens at once.
func (s *SessionService) DeleteAllForUser(ctx context.Context, userID uint64) error {
	if errDelete := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&models.Session{}).Error; errDelete != nil {
		return fmt.Errorf("auth: delete user sessions: %w", errDelete)
	}
	return nil
}

// UserIDsWithSessions lists distinct users currently holding a session.
func (s *SessionService) UserIDsWithSessions(ctx context.Context) ([]uint64, error) {
	var ids []uint64
	if errFind := s.db.WithContext(ctx).Model(&models.Session{}).
		Where("user_id IS NOT NULL").
		Distinct("user_id").
		Pluck("user_id", &ids).Error; errFind != nil {
		return nil, fmt.Errorf("auth: list session users: %w", errFind)
	}
	return ids, nil
}
