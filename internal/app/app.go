package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/stafftrack/attendance/internal/attendance"
	"github.com/stafftrack/attendance/internal/audit"
	internalauth "github.com/stafftrack/attendance/internal/auth"
	"github.com/stafftrack/attendance/internal/config"
	"github.com/stafftrack/attendance/internal/db"
	"github.com/stafftrack/attendance/internal/http/api"
	"github.com/stafftrack/attendance/internal/jobs"
	"github.com/stafftrack/attendance/internal/mailer"
	"github.com/stafftrack/attendance/internal/ratelimit"
	internalsettings "github.com/stafftrack/attendance/internal/settings"
	"gorm.io/gorm"
)

// EnvRootPassword seeds the root account password on first migration.
const EnvRootPassword = "ATTENDANCE_ROOT_PASSWORD"

// EnvRootEmail overrides the root account email on first migration.
const EnvRootEmail = "ATTENDANCE_ROOT_EMAIL"

// Migrate opens the database and runs migrations.
func Migrate(ctx context.Context, cfg config.AppConfig) error {
	configPath := config.ResolveConfigPath(cfg.ConfigPath)
	dsn, err := config.LoadDatabaseDSN(configPath)
	if err != nil {
		return err
	}
	conn, err := db.Open(dsn)
	if err != nil {
		return err
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		return errMigrate
	}
	return ensureRootUser(ctx, conn)
}

// services groups everything built on top of an open database connection.
type services struct {
	conn       *gorm.DB
	settings   *internalsettings.Store
	lockout    *internalauth.LockoutService
	auth       *internalauth.Service
	sessions   *internalauth.SessionService
	twoFactor  *internalauth.TwoFactorService
	attendance *attendance.Service
	audit      *audit.Recorder
	mailQueue  *mailer.Queue
	limiter    *ratelimit.Manager
}

// buildServices opens the database, migrates, and wires up the service graph.
func buildServices(ctx context.Context, cfg config.AppConfig) (*services, error) {
	configPath := config.ResolveConfigPath(cfg.ConfigPath)
	dsn, err := config.LoadDatabaseDSN(configPath)
	if err != nil {
		return nil, err
	}
	conn, err := db.Open(dsn)
	if err != nil {
		return nil, err
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		return nil, errMigrate
	}
	if errRoot := ensureRootUser(ctx, conn); errRoot != nil {
		return nil, errRoot
	}

	jwtConfig, _ := config.LoadJWTConfig(configPath)
	if strings.TrimSpace(jwtConfig.Secret) == "" {
		return nil, errors.New("jwt secret is not configured (set `jwt.secret` or JWT_SECRET)")
	}

	smtpConfig, _ := config.LoadSMTPConfig(configPath)
	var outbound mailer.Mailer
	if smtpConfig.Configured() {
		outbound = mailer.NewSMTPMailer(smtpConfig)
	} else {
		log.Warn("smtp is not configured, outgoing mail will only be logged")
		outbound = mailer.Func(func(_ context.Context, to, subject, _ string) error {
			log.WithFields(log.Fields{"to": to, "subject": subject}).Info("mail (not sent)")
			return nil
		})
	}

	settingsStore := internalsettings.NewStore(conn)
	lockout := internalauth.NewLockoutService(conn)
	sessions := internalauth.NewSessionService(conn, jwtConfig)
	limiter := ratelimit.NewManager(func(ctx context.Context) ratelimit.SettingsConfig {
		return ratelimit.LoadSettingsConfig(ctx, settingsStore)
	}, time.Now, nil)

	svc := &services{
		conn:       conn,
		settings:   settingsStore,
		lockout:    lockout,
		auth:       internalauth.NewService(conn, lockout),
		sessions:   sessions,
		twoFactor:  internalauth.NewTwoFactorService(conn, outbound),
		attendance: attendance.NewService(conn),
		audit:      audit.NewRecorder(conn),
		mailQueue:  mailer.NewQueue(outbound),
		limiter:    limiter,
	}
	return svc, nil
}

func (s *services) jobDeps() jobs.Deps {
	return jobs.Deps{
		DB:         s.conn,
		Settings:   s.settings,
		Attendance: s.attendance,
		Sessions:   s.sessions,
		Lockout:    s.lockout,
		Mail:       s.mailQueue,
	}
}

// RunServer boots the HTTP API together with the scheduled jobs.
func RunServer(ctx context.Context, cfg config.AppConfig, defaultPort int) error {
	svc, errBuild := buildServices(ctx, cfg)
	if errBuild != nil {
		return errBuild
	}
	svc.mailQueue.Start(ctx)

	runner := jobs.NewRunner(svc.jobDeps())
	if errStart := runner.Start(ctx); errStart != nil {
		return errStart
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	api.RegisterRoutes(engine, api.Deps{
		DB:          svc.conn,
		Settings:    svc.settings,
		Auth:        svc.auth,
		Sessions:    svc.sessions,
		TwoFactor:   svc.twoFactor,
		Attendance:  svc.attendance,
		Audit:       svc.audit,
		RateLimiter: svc.limiter,
	})

	if defaultPort <= 0 {
		defaultPort = 8318
	}
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", defaultPort),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()
	log.Infof("listening on %s", server.Addr)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case errServe := <-errCh:
		if errors.Is(errServe, http.ErrServerClosed) {
			return nil
		}
		return errServe
	}
}

// RunAutoLogout closes the day for every logged-in user immediately.
func RunAutoLogout(ctx context.Context, cfg config.AppConfig) error {
	svc, errBuild := buildServices(ctx, cfg)
	if errBuild != nil {
		return errBuild
	}
	return jobs.RunAutoLogout(ctx, svc.jobDeps(), time.Now(), true)
}

// RunOvertimeAutoLogout closes entries whose presence prompt timed out.
func RunOvertimeAutoLogout(ctx context.Context, cfg config.AppConfig) error {
	svc, errBuild := buildServices(ctx, cfg)
	if errBuild != nil {
		return errBuild
	}
	return jobs.RunOvertimeAutoLogout(ctx, svc.jobDeps(), time.Now())
}

// RunSendReminders queues both reminder emails immediately.
func RunSendReminders(ctx context.Context, cfg config.AppConfig) error {
	svc, errBuild := buildServices(ctx, cfg)
	if errBuild != nil {
		return errBuild
	}
	svc.mailQueue.Start(ctx)
	if errRun := jobs.RunReminders(ctx, svc.jobDeps(), time.Now(), true); errRun != nil {
		return errRun
	}
	// Give the queue a moment to drain before the process exits.
	time.Sleep(2 * time.Second)
	return nil
}

// RunUnlock clears the failed login attempts of one account.
func RunUnlock(ctx context.Context, cfg config.AppConfig, email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return errors.New("email is required")
	}
	svc, errBuild := buildServices(ctx, cfg)
	if errBuild != nil {
		return errBuild
	}
	purged, errUnlock := svc.lockout.Unlock(ctx, email)
	if errUnlock != nil {
		return errUnlock
	}
	log.WithField("purged", purged).Info("account unlocked")
	return nil
}
