package overtime

import (
	"context"
	"strconv"
	"strings"
	"time"

	internalsettings "github.com/stafftrack/attendance/internal/settings"
)

// Config drives the overtime prompt monitor. Times are wall-clock HH:MM in
// server local time; working days use abbreviated English weekday names.
type Config struct {
	CheckHour      int
	CheckMinute    int
	WorkingDays    map[time.Weekday]struct{}
	PromptInterval int // Minimum minutes between prompts.
	PromptTimeout  int // Minutes a prompt waits before auto-checkout.
}

// Decision is the outcome of evaluating one user at one instant.
type Decision struct {
	PromptDue      bool
	TimeoutMinutes int
	NextCheckAt    *time.Time
}

// LoadConfig reads the overtime settings through the cache.
func LoadConfig(ctx context.Context, store *internalsettings.Store) Config {
	cfg := Config{
		PromptInterval: store.Int(ctx, internalsettings.OvertimePromptIntervalKey, internalsettings.DefaultOvertimePromptInterval),
		PromptTimeout:  store.Int(ctx, internalsettings.OvertimePromptTimeoutKey, internalsettings.DefaultOvertimePromptTimeout),
	}
	checkTime := store.String(ctx, internalsettings.OvertimeCheckTimeKey, internalsettings.DefaultOvertimeCheckTime)
	hour, minute, ok := ParseClock(checkTime)
	if !ok {
		hour, minute, _ = ParseClock(internalsettings.DefaultOvertimeCheckTime)
	}
	cfg.CheckHour = hour
	cfg.CheckMinute = minute

	days := store.String(ctx, internalsettings.OvertimeWorkingDaysKey, internalsettings.DefaultOvertimeWorkingDays)
	cfg.WorkingDays = ParseWorkingDays(days)
	if len(cfg.WorkingDays) == 0 {
		cfg.WorkingDays = ParseWorkingDays(internalsettings.DefaultOvertimeWorkingDays)
	}
	if cfg.PromptInterval <= 0 {
		cfg.PromptInterval = internalsettings.DefaultOvertimePromptInterval
	}
	if cfg.PromptTimeout <= 0 {
		cfg.PromptTimeout = internalsettings.DefaultOvertimePromptTimeout
	}
	return cfg
}

// Decide evaluates whether an overtime prompt is due for a checked-in user.
//
// Ordering matters: the check-time gate runs first so that before the check
// time the response carries the next evaluation time; non-working days never
// prompt; a prompt shown within the debounce interval defers to the next
// prompt slot.
func Decide(now time.Time, cfg Config, promptShownAt *time.Time) Decision {
	checkAt := time.Date(now.Year(), now.Month(), now.Day(), cfg.CheckHour, cfg.CheckMinute, 0, 0, now.Location())

	if _, working := cfg.WorkingDays[now.Weekday()]; !working {
		return Decision{}
	}
	if now.Before(checkAt) {
		return Decision{NextCheckAt: &checkAt}
	}
	if promptShownAt != nil {
		sincePrompt := now.Sub(*promptShownAt)
		interval := time.Duration(cfg.PromptInterval) * time.Minute
		if sincePrompt < interval {
			next := promptShownAt.Add(interval)
			return Decision{NextCheckAt: &next}
		}
	}
	return Decision{PromptDue: true, TimeoutMinutes: cfg.PromptTimeout}
}

// AutoCheckoutDue reports whether a user who was shown the prompt should be
// checked out automatically: the timeout must have elapsed since the prompt
// and no activity may have been confirmed after it was shown.
func AutoCheckoutDue(now time.Time, cfg Config, promptShownAt, lastActivityAt *time.Time) bool {
	if promptShownAt == nil {
		return false
	}
	timeout := time.Duration(cfg.PromptTimeout) * time.Minute
	if now.Sub(*promptShownAt) <= timeout {
		return false
	}
	if lastActivityAt == nil {
		return true
	}
	return !lastActivityAt.After(*promptShownAt)
}

// ParseClock parses an HH:MM string.
func ParseClock(value string) (hour, minute int, ok bool) {
	value = strings.TrimSpace(value)
	// Tolerate HH:MM:SS by dropping the seconds.
	if parts := strings.Split(value, ":"); len(parts) >= 2 {
		h, errH := strconv.Atoi(strings.TrimSpace(parts[0]))
		m, errM := strconv.Atoi(strings.TrimSpace(parts[1]))
		if errH == nil && errM == nil && h >= 0 && h < 24 && m >= 0 && m < 60 {
			return h, m, true
		}
	}
	return 0, 0, false
}

// ParseWorkingDays parses a comma-separated list of abbreviated day names.
func ParseWorkingDays(value string) map[time.Weekday]struct{} {
	byName := map[string]time.Weekday{
		"sun": time.Sunday,
		"mon": time.Monday,
		"tue": time.Tuesday,
		"wed": time.Wednesday,
		"thu": time.Thursday,
		"fri": time.Friday,
		"sat": time.Saturday,
	}
	days := make(map[time.Weekday]struct{})
	for _, part := range strings.Split(value, ",") {
		name := strings.ToLower(strings.TrimSpace(part))
		if len(name) > 3 {
			name = name[:3]
		}
		if day, ok := byName[name]; ok {
			days[day] = struct{}{}
		}
	}
	return days
}
