package attendance

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/stafftrack/attendance/internal/models"
	"gorm.io/gorm"
)

// Reasons and markers recorded on entries.
const (
	// ReasonRegularCheckIn is the default reason for a live check-in. It is
	// reserved: scheduled entries must never carry it.
	ReasonRegularCheckIn = "Dolazak na posao"
	// ReasonAutoLogout is recorded when the global auto-logout closes an entry.
	ReasonAutoLogout = "Automatska odjava"
	// ReasonOvertimeAutoLogout is recorded when the overtime monitor closes an entry.
	ReasonOvertimeAutoLogout = "Automatska odjava (isteklo vreme za potvrdu prisustva)"

	// IPMarkerForced marks entries created or closed by a staff admin.
	IPMarkerForced = "AUTO"
	// IPMarkerServer marks entries closed by a scheduled job.
	IPMarkerServer = "SERVER"

	maxNoteLength = 500
)

// reservedReasons are rejected for scheduled entries in either script.
var reservedReasons = map[string]struct{}{
	"dolazak na posao":  {},
	"долазак на посао": {},
}

// Domain failures. Handlers map these onto HTTP status codes.
var (
	ErrAlreadyCheckedIn = errors.New("attendance: already checked in")
	ErrUserNotFound     = errors.New("attendance: user not found")
	ErrNotCheckedIn     = errors.New("attendance: not checked in")
	ErrNoOpenEntry      = errors.New("attendance: checked in but no open entry found")
	ErrSelfTarget       = errors.New("attendance: cannot target own attendance")
	ErrForbidden        = errors.New("attendance: not allowed")
	ErrReservedReason   = errors.New("attendance: reason is reserved for live check-ins")
	ErrEntryNotFound    = errors.New("attendance: entry not found")
	ErrEntryOpen        = errors.New("attendance: entry is still open")
	ErrEntryInPast      = errors.New("attendance: entry already ended")
	ErrInvalidRange     = errors.New("attendance: check-out must be after check-in")
	ErrCheckOutInPast   = errors.New("attendance: check-out must not be in the past")
)

// Service implements the attendance state machine.
// Every mutation runs in a single transaction; the one-open-entry rule is
// re-checked inside the transaction and backstopped by a partial unique
// index on open entries.
type Service struct {
	db    *gorm.DB
	nowFn func() time.Time
}

// NewService constructs an attendance Service.
func NewService(db *gorm.DB) *Service {
	return &Service{db: db, nowFn: time.Now}
}

// NewServiceWithClock constructs a Service with an injected clock for tests.
func NewServiceWithClock(db *gorm.DB, nowFn func() time.Time) *Service {
	s := NewService(db)
	if nowFn != nil {
		s.nowFn = nowFn
	}
	return s
}

// CheckIn opens a new entry for the user.
func (s *Service) CheckIn(ctx context.Context, userID uint64, ip, reason, note string) (*models.TimeEntry, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = ReasonRegularCheckIn
	}
	note = truncateNote(note)
	now := s.nowFn().UTC()

	var entry models.TimeEntry
	errTx := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, errUser := lockUser(tx, userID)
		if errUser != nil {
			return errUser
		}
		if user.Status == models.StatusCheckedIn {
			return ErrAlreadyCheckedIn
		}
		var openCount int64
		if errCount := tx.Model(&models.TimeEntry{}).
			Where("user_id = ? AND check_out_at IS NULL", userID).
			Count(&openCount).Error; errCount != nil {
			return fmt.Errorf("attendance: count open entries: %w", errCount)
		}
		if openCount > 0 {
			return ErrAlreadyCheckedIn
		}

		entry = models.TimeEntry{
			UserID:        userID,
			WorkDate:      dateOf(now),
			CheckInAt:     now,
			CheckInIP:     ip,
			CheckInReason: reason,
			Notes:         note,
			CheckInBy:     userID,
		}
		if errCreate := tx.Create(&entry).Error; errCreate != nil {
			return fmt.Errorf("attendance: create entry: %w", errCreate)
		}
		if errStatus := setStatus(tx, userID, models.StatusCheckedIn); errStatus != nil {
			return errStatus
		}
		return nil
	})
	if errTx != nil {
		return nil, errTx
	}
	return &entry, nil
}

// CheckOut closes the user's open entry.
func (s *Service) CheckOut(ctx context.Context, userID uint64, ip, reason, note string) (*models.TimeEntry, error) {
	reason = strings.TrimSpace(reason)
	note = truncateNote(note)
	now := s.nowFn().UTC()

	var entry models.TimeEntry
	errTx := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, errUser := lockUser(tx, userID)
		if errUser != nil {
			return errUser
		}
		if user.Status != models.StatusCheckedIn {
			return ErrNotCheckedIn
		}

		if errFind := tx.Where("user_id = ? AND check_out_at IS NULL", userID).
			First(&entry).Error; errFind != nil {
			if errors.Is(errFind, gorm.ErrRecordNotFound) {
				// Status said CheckedIn but no open entry exists. Surface it
				// as a distinct consistency failure instead of pretending a
				// normal state violation happened.
				return ErrNoOpenEntry
			}
			return fmt.Errorf("attendance: find open entry: %w", errFind)
		}

		if errClose := closeEntry(tx, &entry, now, ip, reason, note, userID); errClose != nil {
			return errClose
		}
		if errStatus := setStatus(tx, userID, models.StatusCheckedOut); errStatus != nil {
			return errStatus
		}
		return nil
	})
	if errTx != nil {
		return nil, errTx
	}
	return &entry, nil
}

// ForceCheckIn opens an entry for the target on behalf of a staff admin.
func (s *Service) ForceCheckIn(ctx context.Context, actor, target *models.User, reason string) (*models.TimeEntry, error) {
	if errPolicy := CanForce(actor, target); errPolicy != nil {
		return nil, errPolicy
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = ReasonRegularCheckIn
	}
	now := s.nowFn().UTC()

	var entry models.TimeEntry
	errTx := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, errUser := lockUser(tx, target.ID)
		if errUser != nil {
			return errUser
		}
		if user.Status == models.StatusCheckedIn {
			return ErrAlreadyCheckedIn
		}
		entry = models.TimeEntry{
			UserID:        target.ID,
			WorkDate:      dateOf(now),
			CheckInAt:     now,
			CheckInIP:     IPMarkerForced,
			CheckInReason: reason,
			CheckInBy:     actor.ID,
		}
		if errCreate := tx.Create(&entry).Error; errCreate != nil {
			return fmt.Errorf("attendance: create entry: %w", errCreate)
		}
		return setStatus(tx, target.ID, models.StatusCheckedIn)
	})
	if errTx != nil {
		return nil, errTx
	}
	return &entry, nil
}

// ForceCheckOut closes the target's open entry on behalf of a staff admin.
func (s *Service) ForceCheckOut(ctx context.Context, actor, target *models.User, reason string) (*models.TimeEntry, error) {
	if errPolicy := CanForce(actor, target); errPolicy != nil {
		return nil, errPolicy
	}
	reason = strings.TrimSpace(reason)
	now := s.nowFn().UTC()

	var entry models.TimeEntry
	errTx := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, errUser := lockUser(tx, target.ID)
		if errUser != nil {
			return errUser
		}
		if user.Status != models.StatusCheckedIn {
			return ErrNotCheckedIn
		}
		if errFind := tx.Where("user_id = ? AND check_out_at IS NULL", target.ID).
			First(&entry).Error; errFind != nil {
			if errors.Is(errFind, gorm.ErrRecordNotFound) {
				return ErrNoOpenEntry
			}
			return fmt.Errorf("attendance: find open entry: %w", errFind)
		}
		if errClose := closeEntry(tx, &entry, now, IPMarkerForced, reason, "", actor.ID); errClose != nil {
			return errClose
		}
		return setStatus(tx, target.ID, models.StatusCheckedOut)
	})
	if errTx != nil {
		return nil, errTx
	}
	return &entry, nil
}

// AutoCheckOut closes the user's open entry from a scheduled job. It never
// fails when the user has no open entry; the job still clears the status.
// The overtime flag and notes are set when the overtime monitor triggered
// the closure.
func (s *Service) AutoCheckOut(ctx context.Context, userID uint64, reason string, overtime bool, overtimeNotes string) (bool, error) {
	now := s.nowFn().UTC()
	closed := false

	errTx := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var entry models.TimeEntry
		errFind := tx.Where("user_id = ? AND check_out_at IS NULL", userID).First(&entry).Error
		if errFind != nil && !errors.Is(errFind, gorm.ErrRecordNotFound) {
			return fmt.Errorf("attendance: find open entry: %w", errFind)
		}
		if errFind == nil {
			updates := map[string]any{
				"check_out_at":     now,
				"check_out_ip":     IPMarkerServer,
				"check_out_reason": reason,
				"check_out_by":     userID,
				"updated_at":       now,
			}
			if overtime {
				updates["overtime_auto_checkout"] = true
				updates["overtime_notes"] = truncateNote(overtimeNotes)
			}
			if errUpdate := tx.Model(&entry).Updates(updates).Error; errUpdate != nil {
				return fmt.Errorf("attendance: close entry: %w", errUpdate)
			}
			closed = true
		}
		return setStatus(tx, userID, models.StatusCheckedOut)
	})
	if errTx != nil {
		return false, errTx
	}
	return closed, nil
}

// CreateScheduledEntry records a fully closed entry for a planned absence
// or past interval. It never touches the user's live status.
func (s *Service) CreateScheduledEntry(ctx context.Context, actor, target *models.User, start, end time.Time, reason, note string) (*models.TimeEntry, error) {
	if errPolicy := CanSchedule(actor, target); errPolicy != nil {
		return nil, errPolicy
	}
	reason = strings.TrimSpace(reason)
	if isReservedReason(reason) {
		return nil, ErrReservedReason
	}
	if !end.After(start) {
		return nil, ErrInvalidRange
	}

	start = start.UTC()
	end = end.UTC()
	endAt := end
	entry := models.TimeEntry{
		UserID:        target.ID,
		WorkDate:      dateOf(start),
		CheckInAt:     start,
		CheckOutAt:    &endAt,
		CheckInIP:     IPMarkerForced,
		CheckOutIP:    IPMarkerForced,
		CheckInReason: reason,
		Notes:         truncateNote(note),
		CheckInBy:     actor.ID,
		CheckOutBy:    &actor.ID,
	}
	if errCreate := s.db.WithContext(ctx).Create(&entry).Error; errCreate != nil {
		return nil, fmt.Errorf("attendance: create scheduled entry: %w", errCreate)
	}
	return &entry, nil
}

// UpdateEntry rewrites the interval of a scheduled entry. Only the creator
// may edit it, only while it has not ended, and never while it is open.
func (s *Service) UpdateEntry(ctx context.Context, actor *models.User, entryID uint64, start, end time.Time, reason, note string) (*models.TimeEntry, error) {
	reason = strings.TrimSpace(reason)
	if isReservedReason(reason) {
		return nil, ErrReservedReason
	}
	if !end.After(start) {
		return nil, ErrInvalidRange
	}
	now := s.nowFn().UTC()
	if end.UTC().Before(now) {
		return nil, ErrCheckOutInPast
	}

	var entry models.TimeEntry
	errTx := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if errGuard := s.loadEditableEntry(tx, actor, entryID, &entry); errGuard != nil {
			return errGuard
		}
		endAt := end.UTC()
		updates := map[string]any{
			"work_date":       dateOf(start.UTC()),
			"check_in_at":     start.UTC(),
			"check_out_at":    endAt,
			"check_in_reason": reason,
			"notes":           truncateNote(note),
			"updated_at":      now,
		}
		if errUpdate := tx.Model(&entry).Updates(updates).Error; errUpdate != nil {
			return fmt.Errorf("attendance: update entry: %w", errUpdate)
		}
		entry.CheckInAt = start.UTC()
		entry.CheckOutAt = &endAt
		entry.CheckInReason = reason
		return nil
	})
	if errTx != nil {
		return nil, errTx
	}
	return &entry, nil
}

// DeleteEntry removes a scheduled entry under the same guards as UpdateEntry.
func (s *Service) DeleteEntry(ctx context.Context, actor *models.User, entryID uint64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var entry models.TimeEntry
		if errGuard := s.loadEditableEntry(tx, actor, entryID, &entry); errGuard != nil {
			return errGuard
		}
		if errDelete := tx.Delete(&entry).Error; errDelete != nil {
			return fmt.Errorf("attendance: delete entry: %w", errDelete)
		}
		return nil
	})
}

// loadEditableEntry loads an entry and applies the shared edit guards:
// creator only, not open, not already ended.
func (s *Service) loadEditableEntry(tx *gorm.DB, actor *models.User, entryID uint64, entry *models.TimeEntry) error {
	if errFind := tx.Where("id = ?", entryID).First(entry).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return ErrEntryNotFound
		}
		return fmt.Errorf("attendance: find entry: %w", errFind)
	}
	if entry.CheckInBy != actor.ID {
		return ErrForbidden
	}
	if entry.IsOpen() {
		return ErrEntryOpen
	}
	if entry.CheckOutAt.Before(s.nowFn().UTC()) {
		return ErrEntryInPast
	}
	return nil
}

// CurrentStatus derives the user-facing status string. A user whose cached
// status is CheckedOut but whose clock time falls inside a closed entry is
// reported as being on a scheduled absence. Read-only; never used in guards.
func (s *Service) CurrentStatus(ctx context.Context, user *models.User) (string, error) {
	if user.Status == models.StatusCheckedIn {
		return string(models.StatusCheckedIn), nil
	}
	now := s.nowFn().UTC()
	var count int64
	if errCount := s.db.WithContext(ctx).Model(&models.TimeEntry{}).
		Where("user_id = ? AND check_in_at <= ? AND check_out_at IS NOT NULL AND check_out_at > ?", user.ID, now, now).
		Count(&count).Error; errCount != nil {
		return "", fmt.Errorf("attendance: scheduled absence lookup: %w", errCount)
	}
	if count > 0 {
		return "on scheduled absence", nil
	}
	return string(models.StatusCheckedOut), nil
}

// ListEntries returns the entries for a user, newest first.
func (s *Service) ListEntries(ctx context.Context, userID uint64, limit int) ([]models.TimeEntry, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var rows []models.TimeEntry
	if errFind := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("check_in_at DESC").
		Limit(limit).
		Find(&rows).Error; errFind != nil {
		return nil, fmt.Errorf("attendance: list entries: %w", errFind)
	}
	return rows, nil
}

// OpenEntry returns the user's open entry, or nil when none exists.
func (s *Service) OpenEntry(ctx context.Context, userID uint64) (*models.TimeEntry, error) {
	var entry models.TimeEntry
	errFind := s.db.WithContext(ctx).
		Where("user_id = ? AND check_out_at IS NULL", userID).
		First(&entry).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("attendance: find open entry: %w", errFind)
	}
	return &entry, nil
}

// closeEntry writes the check-out fields and merges the second note segment.
func closeEntry(tx *gorm.DB, entry *models.TimeEntry, now time.Time, ip, reason, note string, by uint64) error {
	notes := entry.Notes
	if note != "" {
		notes = truncateNote(notes + ";" + note)
	}
	checkOutAt := now
	updates := map[string]any{
		"check_out_at":     checkOutAt,
		"check_out_ip":     ip,
		"check_out_reason": reason,
		"check_out_by":     by,
		"notes":            notes,
		"updated_at":       now,
	}
	if errUpdate := tx.Model(entry).Updates(updates).Error; errUpdate != nil {
		return fmt.Errorf("attendance: close entry: %w", errUpdate)
	}
	entry.CheckOutAt = &checkOutAt
	entry.CheckOutIP = ip
	entry.CheckOutReason = reason
	entry.CheckOutBy = &by
	entry.Notes = notes
	return nil
}

// lockUser reloads the user row inside the transaction.
func lockUser(tx *gorm.DB, userID uint64) (*models.User, error) {
	var user models.User
	if errFind := tx.Where("id = ?", userID).First(&user).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("attendance: load user: %w", errFind)
	}
	return &user, nil
}

// setStatus writes the cached status column.
func setStatus(tx *gorm.DB, userID uint64, status models.Status) error {
	if errUpdate := tx.Model(&models.User{}).
		Where("id = ?", userID).
		Update("status", status).Error; errUpdate != nil {
		return fmt.Errorf("attendance: update status: %w", errUpdate)
	}
	return nil
}

// isReservedReason reports whether the reason is reserved for live check-ins.
func isReservedReason(reason string) bool {
	_, ok := reservedReasons[strings.ToLower(strings.TrimSpace(reason))]
	return ok
}

// truncateNote caps note length at the storage limit. The cut falls on a
// rune boundary so a Cyrillic note is never left with a torn final rune.
func truncateNote(note string) string {
	note = strings.TrimSpace(note)
	if len(note) <= maxNoteLength {
		return note
	}
	cut := maxNoteLength
	for cut > 0 && !utf8.RuneStart(note[cut]) {
		cut--
	}
	return note[:cut]
}

// dateOf strips the time component.
func dateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
