package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/stafftrack/attendance/internal/models"
	"github.com/stafftrack/attendance/internal/overtime"
	internalsettings "github.com/stafftrack/attendance/internal/settings"
	"gorm.io/gorm"
)

// SettingHandler serves the runtime settings endpoints.
type SettingHandler struct {
	db       *gorm.DB
	settings *internalsettings.Store
}

// NewSettingHandler constructs a SettingHandler.
func NewSettingHandler(db *gorm.DB, settings *internalsettings.Store) *SettingHandler {
	return &SettingHandler{db: db, settings: settings}
}

// List returns every stored setting.
func (h *SettingHandler) List(c *gin.Context) {
	var rows []models.Setting
	if errFind := h.db.WithContext(c.Request.Context()).
		Order("key").Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list settings"})
		return
	}
	payload := make(map[string]json.RawMessage, len(rows))
	for _, row := range rows {
		payload[row.Key] = json.RawMessage(row.Value)
	}
	c.JSON(http.StatusOK, gin.H{"settings": payload})
}

type updateSettingRequest struct {
	Value json.RawMessage `json:"value"`
}

// Update validates and stores one setting value.
func (h *SettingHandler) Update(c *gin.Context) {
	key := strings.TrimSpace(c.Param("key"))
	var req updateSettingRequest
	if errBind := c.ShouldBindJSON(&req); errBind != nil || len(req.Value) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "value is required"})
		return
	}
	if errValidate := validateSetting(key, req.Value); errValidate != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": errValidate})
		return
	}
	if errSet := h.settings.Set(c.Request.Context(), key, req.Value); errSet != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store setting"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// ClientSettings returns the subset of settings the desktop client needs
// to drive its polling and prompts.
func (h *SettingHandler) ClientSettings(c *gin.Context) {
	ctx := c.Request.Context()
	c.JSON(http.StatusOK, gin.H{
		"two_factor_enabled":               h.settings.Bool(ctx, internalsettings.TwoFactorEnabledKey, internalsettings.DefaultTwoFactorEnabled),
		"auto_logout_enabled":              h.settings.Bool(ctx, internalsettings.AutoLogoutEnabledKey, internalsettings.DefaultAutoLogoutEnabled),
		"auto_logout_time":                 h.settings.String(ctx, internalsettings.AutoLogoutTimeKey, internalsettings.DefaultAutoLogoutTime),
		"overtime_check_time":              h.settings.String(ctx, internalsettings.OvertimeCheckTimeKey, internalsettings.DefaultOvertimeCheckTime),
		"overtime_prompt_interval_minutes": h.settings.Int(ctx, internalsettings.OvertimePromptIntervalKey, internalsettings.DefaultOvertimePromptInterval),
		"overtime_prompt_timeout_minutes":  h.settings.Int(ctx, internalsettings.OvertimePromptTimeoutKey, internalsettings.DefaultOvertimePromptTimeout),
	})
}

// validateSetting returns an error message for a bad value, or "".
func validateSetting(key string, value json.RawMessage) string {
	switch key {
	case internalsettings.TwoFactorEnabledKey,
		internalsettings.AutoLogoutEnabledKey,
		internalsettings.SilentAutoLogoutKey,
		internalsettings.ReminderEnabledKey,
		internalsettings.RateLimitRedisEnabledKey:
		if _, ok := internalsettings.ParseBool(value); !ok {
			return "value must be a boolean"
		}
	case internalsettings.AutoLogoutTimeKey,
		internalsettings.ReminderCheckInTimeKey,
		internalsettings.ReminderCheckOutTimeKey,
		internalsettings.OvertimeCheckTimeKey:
		raw, ok := internalsettings.ParseString(value)
		if !ok {
			return "value must be a string"
		}
		if _, _, okClock := overtime.ParseClock(raw); !okClock {
			return "value must be a time in HH:MM form"
		}
	case internalsettings.OvertimeWorkingDaysKey:
		raw, ok := internalsettings.ParseString(value)
		if !ok {
			return "value must be a string"
		}
		if len(overtime.ParseWorkingDays(raw)) == 0 {
			return "value must list at least one working day"
		}
	case internalsettings.OvertimePromptIntervalKey,
		internalsettings.OvertimePromptTimeoutKey:
		minutes, ok := internalsettings.ParseNonNegativeInt(value)
		if !ok || minutes < 1 || minutes > 480 {
			return "value must be between 1 and 480 minutes"
		}
	case internalsettings.TwoFactorMaxAttemptsKey,
		internalsettings.LoginMaxRequestsKey:
		limit, ok := internalsettings.ParseNonNegativeInt(value)
		if !ok || limit < 1 || limit > 1000 {
			return "value must be between 1 and 1000"
		}
	case internalsettings.RateLimitRedisDBKey:
		if _, ok := internalsettings.ParseNonNegativeInt(value); !ok {
			return "value must be a non-negative integer"
		}
	case internalsettings.RateLimitRedisAddrKey,
		internalsettings.RateLimitRedisPasswordKey,
		internalsettings.RateLimitRedisPrefixKey:
		if _, ok := internalsettings.ParseString(value); !ok {
			return "value must be a string"
		}
	default:
		return "unknown setting"
	}
	return ""
}
