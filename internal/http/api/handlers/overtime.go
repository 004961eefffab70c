package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/stafftrack/attendance/internal/attendance"
	internalauth "github.com/stafftrack/attendance/internal/auth"
	"github.com/stafftrack/attendance/internal/models"
	"github.com/stafftrack/attendance/internal/overtime"
	internalsettings "github.com/stafftrack/attendance/internal/settings"
	"gorm.io/gorm"
)

// OvertimeHandler serves the overtime presence prompt endpoints.
type OvertimeHandler struct {
	db         *gorm.DB
	settings   *internalsettings.Store
	attendance *attendance.Service
	sessions   *internalauth.SessionService
}

// NewOvertimeHandler constructs an OvertimeHandler.
func NewOvertimeHandler(db *gorm.DB, settings *internalsettings.Store, service *attendance.Service, sessions *internalauth.SessionService) *OvertimeHandler {
	return &OvertimeHandler{db: db, settings: settings, attendance: service, sessions: sessions}
}

// Poll tells the client whether a presence prompt is due. When it is, the
// prompt time is stamped so the next poll debounces against it.
func (h *OvertimeHandler) Poll(c *gin.Context) {
	user := CurrentUser(c)
	ctx := c.Request.Context()
	now := time.Now()

	if user.Status != models.StatusCheckedIn {
		c.JSON(http.StatusOK, gin.H{"prompt": false})
		return
	}

	cfg := overtime.LoadConfig(ctx, h.settings)
	decision := overtime.Decide(now, cfg, user.OvertimePromptShownAt)
	if !decision.PromptDue {
		resp := gin.H{"prompt": false}
		if decision.NextCheckAt != nil {
			resp["next_check_at"] = decision.NextCheckAt
		}
		c.JSON(http.StatusOK, resp)
		return
	}

	stamped := now.UTC()
	if errStamp := h.db.WithContext(ctx).Model(user).
		Update("overtime_prompt_shown_at", stamped).Error; errStamp != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to record prompt"})
		return
	}
	user.OvertimePromptShownAt = &stamped

	c.JSON(http.StatusOK, gin.H{
		"prompt":          true,
		"timeout_minutes": decision.TimeoutMinutes,
	})
}

// Confirm records that the user acknowledged the presence prompt. Both
// timestamps move to now: the activity stamp cancels the pending timeout and
// the prompt stamp restarts the debounce interval, so the next prompt waits a
// full interval instead of firing on the next poll.
func (h *OvertimeHandler) Confirm(c *gin.Context) {
	user := CurrentUser(c)
	ctx := c.Request.Context()
	now := time.Now().UTC()

	if errUpdate := h.db.WithContext(ctx).Model(user).Updates(map[string]any{
		"last_activity_at":         now,
		"overtime_prompt_shown_at": now,
	}).Error; errUpdate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to confirm presence"})
		return
	}
	user.LastActivityAt = &now
	user.OvertimePromptShownAt = &now
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// AutoCheckout is called by a client whose prompt timed out. The server
// re-checks the deadline itself; a stale client cannot force a checkout.
func (h *OvertimeHandler) AutoCheckout(c *gin.Context) {
	user := CurrentUser(c)
	session := CurrentSession(c)
	ctx := c.Request.Context()
	now := time.Now()

	cfg := overtime.LoadConfig(ctx, h.settings)
	if !overtime.AutoCheckoutDue(now, cfg, user.OvertimePromptShownAt, user.LastActivityAt) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "auto-checkout is not due"})
		return
	}

	closed, errClose := h.attendance.AutoCheckOut(ctx, user.ID, attendance.ReasonOvertimeAutoLogout, true, "")
	if errClose != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "auto-checkout failed"})
		return
	}
	if errSession := h.sessions.Delete(ctx, session.ID); errSession != nil {
		log.WithError(errSession).Warn("failed to delete session after auto-checkout")
	}
	c.JSON(http.StatusOK, gin.H{"checked_out": closed, "logged_out": true})
}
