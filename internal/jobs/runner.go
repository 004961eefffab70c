package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

// Runner drives the recurring jobs off a minute-granularity cron schedule.
type Runner struct {
	deps Deps
	cron *cron.Cron
}

// NewRunner constructs a Runner over the given dependencies.
func NewRunner(deps Deps) *Runner {
	return &Runner{deps: deps, cron: cron.New()}
}

// Start registers the schedules and launches the cron loop. The loop stops
// when ctx is cancelled.
func (r *Runner) Start(ctx context.Context) error {
	// Time-gated jobs run every minute and decide internally whether their
	// configured HH:MM has arrived, so setting changes apply without restart.
	if _, errAdd := r.cron.AddFunc("* * * * *", func() {
		now := time.Now()
		if errRun := RunAutoLogout(ctx, r.deps, now, false); errRun != nil {
			log.WithError(errRun).Warn("auto-logout job failed")
		}
		if errRun := RunReminders(ctx, r.deps, now, false); errRun != nil {
			log.WithError(errRun).Warn("reminder job failed")
		}
		if errRun := RunOvertimeAutoLogout(ctx, r.deps, now); errRun != nil {
			log.WithError(errRun).Warn("overtime auto-logout job failed")
		}
	}); errAdd != nil {
		return errAdd
	}

	if _, errAdd := r.cron.AddFunc("*/30 * * * *", func() {
		if errRun := RunLockoutCleanup(ctx, r.deps); errRun != nil {
			log.WithError(errRun).Warn("lockout cleanup job failed")
		}
	}); errAdd != nil {
		return errAdd
	}

	r.cron.Start()
	go func() {
		<-ctx.Done()
		stopCtx := r.cron.Stop()
		<-stopCtx.Done()
	}()
	return nil
}
