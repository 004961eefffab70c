package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stafftrack/attendance/internal/attendance"
	"github.com/stafftrack/attendance/internal/audit"
	internalauth "github.com/stafftrack/attendance/internal/auth"
	"github.com/stafftrack/attendance/internal/models"
	"gorm.io/gorm"
)

// AttendanceHandler serves the check-in, check-out, and time entry endpoints.
type AttendanceHandler struct {
	db         *gorm.DB
	attendance *attendance.Service
	audit      *audit.Recorder
}

// NewAttendanceHandler constructs an AttendanceHandler.
func NewAttendanceHandler(db *gorm.DB, service *attendance.Service, recorder *audit.Recorder) *AttendanceHandler {
	return &AttendanceHandler{db: db, attendance: service, audit: recorder}
}

type checkRequest struct {
	Reason string `json:"reason"`
	Note   string `json:"note"`
}

// CheckIn opens a new time entry for the caller.
func (h *AttendanceHandler) CheckIn(c *gin.Context) {
	user := CurrentUser(c)
	var req checkRequest
	_ = c.ShouldBindJSON(&req)

	entry, errCheck := h.attendance.CheckIn(c.Request.Context(), user.ID, c.ClientIP(), req.Reason, req.Note)
	if errCheck != nil {
		respondAttendanceError(c, errCheck)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entry": entryPayload(entry), "status": models.StatusCheckedIn})
}

// CheckOut closes the caller's open time entry.
func (h *AttendanceHandler) CheckOut(c *gin.Context) {
	user := CurrentUser(c)
	var req checkRequest
	_ = c.ShouldBindJSON(&req)

	entry, errCheck := h.attendance.CheckOut(c.Request.Context(), user.ID, c.ClientIP(), req.Reason, req.Note)
	if errCheck != nil {
		respondAttendanceError(c, errCheck)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entry": entryPayload(entry), "status": models.StatusCheckedOut})
}

type forceRequest struct {
	UserID uint64 `json:"user_id"`
	Reason string `json:"reason"`
}

// ForceCheckIn checks in another user on their behalf.
func (h *AttendanceHandler) ForceCheckIn(c *gin.Context) {
	actor := CurrentUser(c)
	req, target, ok := h.forceTarget(c)
	if !ok {
		return
	}

	entry, errForce := h.attendance.ForceCheckIn(c.Request.Context(), actor, target, req.Reason)
	if errForce != nil {
		respondAttendanceError(c, errForce)
		return
	}
	h.audit.Record(c.Request.Context(), models.AuditForcedCheckIn, &actor.ID, c.ClientIP(), c.Request.UserAgent(),
		"forced check-in", map[string]any{"target_user_id": target.ID})
	c.JSON(http.StatusOK, gin.H{"entry": entryPayload(entry)})
}

// ForceCheckOut checks out another user on their behalf.
func (h *AttendanceHandler) ForceCheckOut(c *gin.Context) {
	actor := CurrentUser(c)
	req, target, ok := h.forceTarget(c)
	if !ok {
		return
	}

	entry, errForce := h.attendance.ForceCheckOut(c.Request.Context(), actor, target, req.Reason)
	if errForce != nil {
		respondAttendanceError(c, errForce)
		return
	}
	h.audit.Record(c.Request.Context(), models.AuditForcedCheckOut, &actor.ID, c.ClientIP(), c.Request.UserAgent(),
		"forced check-out", map[string]any{"target_user_id": target.ID})
	c.JSON(http.StatusOK, gin.H{"entry": entryPayload(entry)})
}

type scheduledRequest struct {
	UserID  uint64    `json:"user_id"`
	StartAt time.Time `json:"start_at"`
	EndAt   time.Time `json:"end_at"`
	Reason  string    `json:"reason"`
	Note    string    `json:"note"`
}

// CreateScheduled records a fully closed entry for a planned absence.
func (h *AttendanceHandler) CreateScheduled(c *gin.Context) {
	actor := CurrentUser(c)
	var req scheduledRequest
	if errBind := c.ShouldBindJSON(&req); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if strings.TrimSpace(req.Reason) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "reason is required"})
		return
	}

	targetID := req.UserID
	if targetID == 0 {
		targetID = actor.ID
	}
	target, ok := h.loadUser(c, targetID)
	if !ok {
		return
	}

	entry, errCreate := h.attendance.CreateScheduledEntry(c.Request.Context(), actor, target, req.StartAt, req.EndAt, req.Reason, req.Note)
	if errCreate != nil {
		respondAttendanceError(c, errCreate)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"entry": entryPayload(entry)})
}

type updateEntryRequest struct {
	StartAt time.Time `json:"start_at"`
	EndAt   time.Time `json:"end_at"`
	Reason  string    `json:"reason"`
	Note    string    `json:"note"`
}

// UpdateEntry edits a scheduled entry the caller created.
func (h *AttendanceHandler) UpdateEntry(c *gin.Context) {
	actor := CurrentUser(c)
	entryID, ok := pathID(c)
	if !ok {
		return
	}
	var req updateEntryRequest
	if errBind := c.ShouldBindJSON(&req); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	entry, errUpdate := h.attendance.UpdateEntry(c.Request.Context(), actor, entryID, req.StartAt, req.EndAt, req.Reason, req.Note)
	if errUpdate != nil {
		respondAttendanceError(c, errUpdate)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entry": entryPayload(entry)})
}

// DeleteEntry removes a scheduled entry the caller created.
func (h *AttendanceHandler) DeleteEntry(c *gin.Context) {
	actor := CurrentUser(c)
	entryID, ok := pathID(c)
	if !ok {
		return
	}
	if errDelete := h.attendance.DeleteEntry(c.Request.Context(), actor, entryID); errDelete != nil {
		respondAttendanceError(c, errDelete)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// ListEntries returns the caller's recent time entries.
func (h *AttendanceHandler) ListEntries(c *gin.Context) {
	user := CurrentUser(c)
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, errParse := strconv.Atoi(raw)
		if errParse != nil || parsed < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = parsed
	}

	entries, errList := h.attendance.ListEntries(c.Request.Context(), user.ID, limit)
	if errList != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list entries"})
		return
	}
	payload := make([]gin.H, 0, len(entries))
	for i := range entries {
		payload = append(payload, entryPayload(&entries[i]))
	}
	c.JSON(http.StatusOK, gin.H{"entries": payload})
}

// Status reports the caller's current attendance state.
func (h *AttendanceHandler) Status(c *gin.Context) {
	user := CurrentUser(c)
	status, errStatus := h.attendance.CurrentStatus(c.Request.Context(), user)
	if errStatus != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to resolve status"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": status})
}

// StatusPoll is the unauthenticated-group variant of Status. Clients poll it
// to notice a revoked session, so a bad token must yield a plain 401.
func (h *AttendanceHandler) StatusPoll(sessions *internalauth.SessionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		if authHeader == "" || token == authHeader || token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing authorization header"})
			return
		}
		session, errResolve := sessions.Resolve(c.Request.Context(), token)
		if errResolve != nil || session.UserID == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid session"})
			return
		}
		var user models.User
		if errFind := h.db.WithContext(c.Request.Context()).First(&user, *session.UserID).Error; errFind != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid session"})
			return
		}
		status, errStatus := h.attendance.CurrentStatus(c.Request.Context(), &user)
		if errStatus != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to resolve status"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": status})
	}
}

func (h *AttendanceHandler) forceTarget(c *gin.Context) (forceRequest, *models.User, bool) {
	var req forceRequest
	if errBind := c.ShouldBindJSON(&req); errBind != nil || req.UserID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
		return req, nil, false
	}
	target, ok := h.loadUser(c, req.UserID)
	return req, target, ok
}

func (h *AttendanceHandler) loadUser(c *gin.Context, id uint64) (*models.User, bool) {
	var user models.User
	if errFind := h.db.WithContext(c.Request.Context()).First(&user, id).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load user"})
		}
		return nil, false
	}
	return &user, true
}

func pathID(c *gin.Context) (uint64, bool) {
	id, errParse := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if errParse != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

func entryPayload(entry *models.TimeEntry) gin.H {
	return gin.H{
		"id":               entry.ID,
		"user_id":          entry.UserID,
		"work_date":        entry.WorkDate.Format("2006-01-02"),
		"check_in_at":      entry.CheckInAt,
		"check_out_at":     entry.CheckOutAt,
		"check_in_reason":  entry.CheckInReason,
		"check_out_reason": entry.CheckOutReason,
		"notes":            entry.Notes,
	}
}

func respondAttendanceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, attendance.ErrAlreadyCheckedIn),
		errors.Is(err, attendance.ErrNotCheckedIn),
		errors.Is(err, attendance.ErrReservedReason),
		errors.Is(err, attendance.ErrInvalidRange),
		errors.Is(err, attendance.ErrCheckOutInPast),
		errors.Is(err, attendance.ErrEntryOpen),
		errors.Is(err, attendance.ErrEntryInPast),
		errors.Is(err, attendance.ErrSelfTarget):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, attendance.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, attendance.ErrEntryNotFound),
		errors.Is(err, attendance.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, attendance.ErrNoOpenEntry):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "attendance operation failed"})
	}
}
