package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/stafftrack/attendance/internal/audit"
	internalauth "github.com/stafftrack/attendance/internal/auth"
	"github.com/stafftrack/attendance/internal/models"
	"github.com/stafftrack/attendance/internal/ratelimit"
	"github.com/stafftrack/attendance/internal/security"
	internalsettings "github.com/stafftrack/attendance/internal/settings"
	"gorm.io/gorm"
)

// AuthHandler serves login, two-factor, logout, and password endpoints.
type AuthHandler struct {
	db        *gorm.DB
	settings  *internalsettings.Store
	auth      *internalauth.Service
	sessions  *internalauth.SessionService
	twoFactor *internalauth.TwoFactorService
	audit     *audit.Recorder
	limiter   *ratelimit.Manager
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(db *gorm.DB, settings *internalsettings.Store, auth *internalauth.Service, sessions *internalauth.SessionService, twoFactor *internalauth.TwoFactorService, recorder *audit.Recorder, limiter *ratelimit.Manager) *AuthHandler {
	return &AuthHandler{
		db:        db,
		settings:  settings,
		auth:      auth,
		sessions:  sessions,
		twoFactor: twoFactor,
		audit:     recorder,
		limiter:   limiter,
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login verifies credentials and opens a session. When the two-factor step
// is enabled the session stays unbound until the code is verified.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if errBind := c.ShouldBindJSON(&req); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email and password are required"})
		return
	}

	ctx := c.Request.Context()
	ip := c.ClientIP()

	if h.limiter != nil {
		limit := h.settings.Int(ctx, internalsettings.LoginMaxRequestsKey, internalsettings.DefaultLoginMaxRequests)
		result, errAllow := h.limiter.Allow(ctx, ratelimit.KeyForLogin(ip), limit, time.Minute)
		if errAllow != nil {
			log.WithError(errAllow).Warn("login rate limit check failed")
		} else if !result.Allowed {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
			return
		}
	}

	user, errAuth := h.auth.Authenticate(ctx, req.Email, req.Password, ip)
	if errAuth != nil {
		if errors.Is(errAuth, internalauth.ErrInvalidCredentials) {
			h.audit.Record(ctx, models.AuditFailedLogin, nil, ip, c.Request.UserAgent(),
				"login rejected", audit.MaskedMeta(req.Email, ip))
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
		return
	}

	session, token, errBegin := h.sessions.Begin(ctx, ip, c.Request.UserAgent())
	if errBegin != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
		return
	}

	if h.settings.Bool(ctx, internalsettings.TwoFactorEnabledKey, internalsettings.DefaultTwoFactorEnabled) {
		if errIssue := h.twoFactor.Issue(ctx, session, user); errIssue != nil {
			log.WithError(errIssue).WithField("email", security.MaskEmail(user.Email)).Error("failed to send verification code")
			_ = h.sessions.Delete(ctx, session.ID)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not send the verification code"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"token":               token,
			"two_factor_required": true,
		})
		return
	}

	if errComplete := h.sessions.Complete(ctx, session, user.ID); errComplete != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
		return
	}
	h.audit.Record(ctx, models.AuditSuccessfulLogin, &user.ID, ip, c.Request.UserAgent(),
		"login", nil)
	c.JSON(http.StatusOK, gin.H{
		"token":                 token,
		"two_factor_required":   false,
		"password_needs_change": user.PasswordNeedsChange,
		"user":                  userPayload(user),
	})
}

type verifyRequest struct {
	Code string `json:"code"`
}

// VerifyTwoFactor checks the submitted code and binds the user to the session.
func (h *AuthHandler) VerifyTwoFactor(c *gin.Context) {
	session, ok := h.pendingSession(c)
	if !ok {
		return
	}

	var req verifyRequest
	if errBind := c.ShouldBindJSON(&req); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	ctx := c.Request.Context()
	if h.limiter != nil {
		limit := h.settings.Int(ctx, internalsettings.TwoFactorMaxAttemptsKey, internalsettings.DefaultTwoFactorMaxAttempts)
		result, errAllow := h.limiter.Allow(ctx, ratelimit.KeyForTwoFactor(session.ID), limit, time.Minute)
		if errAllow != nil {
			log.WithError(errAllow).Warn("two-factor rate limit check failed")
		} else if !result.Allowed {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many attempts"})
			return
		}
	}

	if session.PendingUserID == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no pending verification"})
		return
	}
	var user models.User
	if errFind := h.db.WithContext(ctx).First(&user, *session.PendingUserID).Error; errFind != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid session"})
		return
	}

	if errVerify := h.twoFactor.Verify(ctx, session, &user, req.Code); errVerify != nil {
		switch {
		case errors.Is(errVerify, internalauth.ErrNoChallenge):
			c.JSON(http.StatusBadRequest, gin.H{"error": "no pending verification"})
		case errors.Is(errVerify, internalauth.ErrCodeExpired):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "verification code expired"})
		case errors.Is(errVerify, internalauth.ErrCodeInvalid):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid verification code"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "verification failed"})
		}
		return
	}

	if errComplete := h.sessions.Complete(ctx, session, user.ID); errComplete != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "verification failed"})
		return
	}
	if errClear := h.twoFactor.Clear(ctx, session); errClear != nil {
		log.WithError(errClear).Warn("failed to clear verification challenge")
	}
	h.audit.Record(ctx, models.AuditSuccessfulLogin, &user.ID, c.ClientIP(), c.Request.UserAgent(),
		"login verified", nil)
	c.JSON(http.StatusOK, gin.H{
		"password_needs_change": user.PasswordNeedsChange,
		"user":                  userPayload(&user),
	})
}

// ResendTwoFactor issues a fresh code, replacing the previous one.
func (h *AuthHandler) ResendTwoFactor(c *gin.Context) {
	session, ok := h.pendingSession(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	if session.PendingUserID == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no pending verification"})
		return
	}
	var user models.User
	if errFind := h.db.WithContext(ctx).First(&user, *session.PendingUserID).Error; errFind != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid session"})
		return
	}

	if errIssue := h.twoFactor.Issue(ctx, session, &user); errIssue != nil {
		log.WithError(errIssue).WithField("email", security.MaskEmail(user.Email)).Error("failed to resend verification code")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not send the verification code"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"sent": true})
}

// Logout deletes the caller's session.
func (h *AuthHandler) Logout(c *gin.Context) {
	user := CurrentUser(c)
	session := CurrentSession(c)
	if user == nil || session == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid session"})
		return
	}
	ctx := c.Request.Context()
	if errDelete := h.sessions.Delete(ctx, session.ID); errDelete != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "logout failed"})
		return
	}
	h.audit.Record(ctx, models.AuditLogout, &user.ID, c.ClientIP(), c.Request.UserAgent(), "logout", nil)
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type adminLogoutRequest struct {
	UserID uint64 `json:"user_id"`
}

// AdminLogout revokes every session of the named user. Their attendance
// state is left untouched.
func (h *AuthHandler) AdminLogout(c *gin.Context) {
	actor := CurrentUser(c)
	var req adminLogoutRequest
	if errBind := c.ShouldBindJSON(&req); errBind != nil || req.UserID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
		return
	}
	ctx := c.Request.Context()
	if errDelete := h.sessions.DeleteAllForUser(ctx, req.UserID); errDelete != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "logout failed"})
		return
	}
	h.audit.Record(ctx, models.AuditLogout, &actor.ID, c.ClientIP(), c.Request.UserAgent(),
		"admin forced logout", map[string]any{"target_user_id": req.UserID})
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// ChangePassword updates the caller's password and clears the forced-change
// flag. Other sessions of the user are revoked.
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	user := CurrentUser(c)
	session := CurrentSession(c)
	if user == nil || session == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid session"})
		return
	}

	forced := user.PasswordNeedsChange

	var req changePasswordRequest
	if errBind := c.ShouldBindJSON(&req); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if len(req.NewPassword) < 8 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "password must be at least 8 characters"})
		return
	}
	if !security.CheckPassword(user.Password, req.CurrentPassword) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "current password is incorrect"})
		return
	}

	hash, errHash := security.HashPassword(req.NewPassword)
	if errHash != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "password change failed"})
		return
	}

	ctx := c.Request.Context()
	if errUpdate := h.db.WithContext(ctx).Model(user).Updates(map[string]any{
		"password":              hash,
		"password_needs_change": false,
	}).Error; errUpdate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "password change failed"})
		return
	}

	// Revoke every other session so a stolen token dies with the old password.
	if errRevoke := h.db.WithContext(ctx).
		Where("user_id = ? AND id <> ?", user.ID, session.ID).
		Delete(&models.Session{}).Error; errRevoke != nil {
		log.WithError(errRevoke).Warn("failed to revoke other sessions")
	}

	h.audit.Record(ctx, models.AuditPasswordChange, &user.ID, c.ClientIP(), c.Request.UserAgent(),
		"password changed", map[string]any{"forced": forced})
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// pendingSession resolves the bearer token for endpoints that run before the
// session is bound to a user.
func (h *AuthHandler) pendingSession(c *gin.Context) (*models.Session, bool) {
	authHeader := c.GetHeader("Authorization")
	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	if authHeader == "" || token == authHeader || token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing authorization header"})
		return nil, false
	}
	session, errResolve := h.sessions.Resolve(c.Request.Context(), token)
	if errResolve != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid session"})
		return nil, false
	}
	return session, true
}

func userPayload(user *models.User) gin.H {
	return gin.H{
		"id":         user.ID,
		"first_name": user.FirstName,
		"last_name":  user.LastName,
		"email":      user.Email,
		"role":       user.Role,
		"sector_id":  user.SectorID,
		"status":     user.Status,
	}
}
