package jobs

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/stafftrack/attendance/internal/attendance"
	internalauth "github.com/stafftrack/attendance/internal/auth"
	"github.com/stafftrack/attendance/internal/mailer"
	"github.com/stafftrack/attendance/internal/models"
	"github.com/stafftrack/attendance/internal/overtime"
	internalsettings "github.com/stafftrack/attendance/internal/settings"
	"gorm.io/gorm"
)

// Deps bundles the services the scheduled jobs operate on.
type Deps struct {
	DB         *gorm.DB
	Settings   *internalsettings.Store
	Attendance *attendance.Service
	Sessions   *internalauth.SessionService
	Lockout    *internalauth.LockoutService
	Mail       *mailer.Queue
}

// RunAutoLogout closes the day for every logged-in user once the configured
// auto-logout time arrives. When force is true the time gate is skipped, as
// for the one-shot CLI invocation.
func RunAutoLogout(ctx context.Context, d Deps, now time.Time, force bool) error {
	if !force {
		if !d.Settings.Bool(ctx, internalsettings.AutoLogoutEnabledKey, internalsettings.DefaultAutoLogoutEnabled) {
			return nil
		}
		configured := d.Settings.String(ctx, internalsettings.AutoLogoutTimeKey, internalsettings.DefaultAutoLogoutTime)
		hour, minute, ok := overtime.ParseClock(configured)
		if !ok {
			return fmt.Errorf("jobs: bad auto-logout time %q", configured)
		}
		if now.Hour() != hour || now.Minute() != minute {
			return nil
		}
	}

	ids, errList := d.Sessions.UserIDsWithSessions(ctx)
	if errList != nil {
		return errList
	}

	var closed, failed int
	for _, userID := range ids {
		wasOpen, errClose := d.Attendance.AutoCheckOut(ctx, userID, attendance.ReasonAutoLogout, false, "")
		if errClose != nil {
			failed++
			log.WithError(errClose).WithField("user_id", userID).Warn("auto-logout: check-out failed")
			continue
		}
		if wasOpen {
			closed++
		}
		if errSessions := d.Sessions.DeleteAllForUser(ctx, userID); errSessions != nil {
			log.WithError(errSessions).WithField("user_id", userID).Warn("auto-logout: session cleanup failed")
		}
	}

	if !d.Settings.Bool(ctx, internalsettings.SilentAutoLogoutKey, internalsettings.DefaultSilentAutoLogout) {
		log.WithFields(log.Fields{
			"users":  len(ids),
			"closed": closed,
			"failed": failed,
		}).Info("auto-logout run finished")
	}
	return nil
}

// RunOvertimeAutoLogout checks every checked-in user with an unanswered
// presence prompt and closes their entry once the prompt timeout elapses.
// This is the server-side backstop for clients that died mid-prompt.
func RunOvertimeAutoLogout(ctx context.Context, d Deps, now time.Time) error {
	cfg := overtime.LoadConfig(ctx, d.Settings)

	var users []models.User
	if errFind := d.DB.WithContext(ctx).
		Where("status = ?", models.StatusCheckedIn).
		Where("overtime_prompt_shown_at IS NOT NULL").
		Find(&users).Error; errFind != nil {
		return fmt.Errorf("jobs: list prompted users: %w", errFind)
	}

	var closed int
	for i := range users {
		user := &users[i]
		if !overtime.AutoCheckoutDue(now, cfg, user.OvertimePromptShownAt, user.LastActivityAt) {
			continue
		}
		wasOpen, errClose := d.Attendance.AutoCheckOut(ctx, user.ID, attendance.ReasonOvertimeAutoLogout, true,
			fmt.Sprintf("prompt shown %s, no response", user.OvertimePromptShownAt.Format("15:04")))
		if errClose != nil {
			log.WithError(errClose).WithField("user_id", user.ID).Warn("overtime auto-logout: check-out failed")
			continue
		}
		if wasOpen {
			closed++
		}
		if errSessions := d.Sessions.DeleteAllForUser(ctx, user.ID); errSessions != nil {
			log.WithError(errSessions).WithField("user_id", user.ID).Warn("overtime auto-logout: session cleanup failed")
		}
	}

	if closed > 0 {
		log.WithField("closed", closed).Info("overtime auto-logout run finished")
	}
	return nil
}

// RunReminders emails users who have not checked in by the morning reminder
// time, and users still checked in at the afternoon one. When force is true
// both reminders fire regardless of the clock.
func RunReminders(ctx context.Context, d Deps, now time.Time, force bool) error {
	if !force && !d.Settings.Bool(ctx, internalsettings.ReminderEnabledKey, internalsettings.DefaultReminderEnabled) {
		return nil
	}

	checkIn := clockMatches(now, d.Settings.String(ctx, internalsettings.ReminderCheckInTimeKey, internalsettings.DefaultReminderCheckInTime))
	checkOut := clockMatches(now, d.Settings.String(ctx, internalsettings.ReminderCheckOutTimeKey, internalsettings.DefaultReminderCheckOutTime))
	if force {
		checkIn, checkOut = true, true
	}
	if !checkIn && !checkOut {
		return nil
	}

	if checkIn {
		if errSend := d.sendReminder(ctx, models.StatusCheckedOut,
			"Check-in reminder", "Good morning,\n\nYou have not checked in yet. Please check in when you arrive.\n"); errSend != nil {
			return errSend
		}
	}
	if checkOut {
		if errSend := d.sendReminder(ctx, models.StatusCheckedIn,
			"Check-out reminder", "Hello,\n\nYou are still checked in. Please check out when you leave.\n"); errSend != nil {
			return errSend
		}
	}
	return nil
}

func (d Deps) sendReminder(ctx context.Context, status models.Status, subject, body string) error {
	var users []models.User
	if errFind := d.DB.WithContext(ctx).
		Where("status = ?", status).
		Where("email <> ''").
		Find(&users).Error; errFind != nil {
		return fmt.Errorf("jobs: list users for reminder: %w", errFind)
	}
	var queued int
	for i := range users {
		if d.Mail.Enqueue(users[i].Email, subject, body) {
			queued++
		}
	}
	log.WithFields(log.Fields{
		"status": string(status),
		"queued": queued,
	}).Info("reminder emails queued")
	return nil
}

// RunLockoutCleanup purges failed login attempts older than the lockout
// window so the table does not grow without bound.
func RunLockoutCleanup(ctx context.Context, d Deps) error {
	purged, errCleanup := d.Lockout.CleanupExpired(ctx)
	if errCleanup != nil {
		return errCleanup
	}
	if purged > 0 {
		log.WithField("purged", purged).Debug("expired login attempts purged")
	}
	return nil
}

func clockMatches(now time.Time, configured string) bool {
	hour, minute, ok := overtime.ParseClock(configured)
	if !ok {
		return false
	}
	return now.Hour() == hour && now.Minute() == minute
}
