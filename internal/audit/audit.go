package audit

import (
	"context"
	"encoding/json"

	"github.com/stafftrack/attendance/internal/models"
	"github.com/stafftrack/attendance/internal/security"
	log "github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Recorder appends security events to the audit log.
// A failed write is logged and swallowed: auditing must never turn a
// successful operation into a failed one.
type Recorder struct {
	db *gorm.DB
}

// NewRecorder constructs a Recorder.
func NewRecorder(db *gorm.DB) *Recorder {
	return &Recorder{db: db}
}

// Record appends one event. Metadata values are stored as given; callers
// pass emails and IPs through MaskedMeta first.
func (r *Recorder) Record(ctx context.Context, event string, actorID *uint64, ip, userAgent, description string, metadata map[string]any) {
	var payload datatypes.JSON
	if len(metadata) > 0 {
		raw, errMarshal := json.Marshal(metadata)
		if errMarshal != nil {
			log.WithError(errMarshal).Warn("audit: marshal metadata")
		} else {
			payload = datatypes.JSON(raw)
		}
	}

	entry := models.AuditLog{
		Event:       event,
		ActorID:     actorID,
		IP:          ip,
		UserAgent:   userAgent,
		Description: description,
		Metadata:    payload,
	}
	if errCreate := r.db.WithContext(ctx).Create(&entry).Error; errCreate != nil {
		log.WithError(errCreate).WithField("event", event).Warn("audit: write failed")
	}
}

// MaskedMeta builds metadata with the email and IP masked.
func MaskedMeta(email, ip string) map[string]any {
	meta := make(map[string]any, 2)
	if email != "" {
		meta["email"] = security.MaskEmail(email)
	}
	if ip != "" {
		meta["ip"] = security.MaskIP(ip)
	}
	return meta
}
