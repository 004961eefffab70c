package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/stafftrack/attendance/internal/attendance"
	internalauth "github.com/stafftrack/attendance/internal/auth"
	"github.com/stafftrack/attendance/internal/audit"
	"github.com/stafftrack/attendance/internal/http/api/handlers"
	"github.com/stafftrack/attendance/internal/models"
	"github.com/stafftrack/attendance/internal/ratelimit"
	internalsettings "github.com/stafftrack/attendance/internal/settings"
	"gorm.io/gorm"
)

// Deps bundles the services the HTTP layer depends on.
type Deps struct {
	DB          *gorm.DB
	Settings    *internalsettings.Store
	Auth        *internalauth.Service
	Sessions    *internalauth.SessionService
	TwoFactor   *internalauth.TwoFactorService
	Attendance  *attendance.Service
	Audit       *audit.Recorder
	RateLimiter *ratelimit.Manager
}

// RegisterRoutes registers all routes, middleware, and handlers.
func RegisterRoutes(r *gin.Engine, d Deps) {
	if r == nil || d.DB == nil {
		return
	}

	healthHandler := handlers.NewHealthHandler(d.DB)
	r.GET("/healthz", healthHandler.Healthz)

	v1 := r.Group("/v1")

	authHandler := handlers.NewAuthHandler(d.DB, d.Settings, d.Auth, d.Sessions, d.TwoFactor, d.Audit, d.RateLimiter)
	v1.POST("/auth/login", authHandler.Login)
	v1.POST("/auth/2fa/verify", authHandler.VerifyTwoFactor)
	v1.POST("/auth/2fa/resend", authHandler.ResendTwoFactor)

	attendanceHandler := handlers.NewAttendanceHandler(d.DB, d.Attendance, d.Audit)
	// Outside the auth group on purpose: clients poll this to detect a dead
	// session and must receive a plain 401 instead of a redirect.
	v1.GET("/attendance/status/poll", attendanceHandler.StatusPoll(d.Sessions))

	authed := v1.Group("")
	authed.Use(sessionAuthMiddleware(d.Sessions, d.DB))
	authed.Use(passwordChangeGuard())

	authed.POST("/auth/logout", authHandler.Logout)
	authed.POST("/auth/admin-logout", requireSuperAdmin(), authHandler.AdminLogout)
	authed.PUT("/auth/password", authHandler.ChangePassword)

	authed.GET("/attendance/status", attendanceHandler.Status)
	authed.GET("/attendance/entries", attendanceHandler.ListEntries)
	authed.POST("/attendance/check-in", attendanceHandler.CheckIn)
	authed.POST("/attendance/check-out", attendanceHandler.CheckOut)
	authed.POST("/attendance/force-check-in", requireStaffAdmin(), attendanceHandler.ForceCheckIn)
	authed.POST("/attendance/force-check-out", requireStaffAdmin(), attendanceHandler.ForceCheckOut)
	authed.POST("/attendance/scheduled", attendanceHandler.CreateScheduled)
	authed.PUT("/attendance/entries/:id", attendanceHandler.UpdateEntry)
	authed.DELETE("/attendance/entries/:id", attendanceHandler.DeleteEntry)

	overtimeHandler := handlers.NewOvertimeHandler(d.DB, d.Settings, d.Attendance, d.Sessions)
	authed.GET("/overtime/poll", overtimeHandler.Poll)
	authed.POST("/overtime/confirm", overtimeHandler.Confirm)
	authed.POST("/overtime/auto-checkout", overtimeHandler.AutoCheckout)

	settingHandler := handlers.NewSettingHandler(d.DB, d.Settings)
	authed.GET("/settings/client", settingHandler.ClientSettings)
	authed.GET("/settings", requireSuperAdmin(), settingHandler.List)
	authed.PUT("/settings/:key", requireSuperAdmin(), settingHandler.Update)

	userHandler := handlers.NewUserHandler(d.DB, d.Audit, d.Sessions)
	admins := authed.Group("", requireAdmin())
	admins.POST("/users", userHandler.Create)
	admins.GET("/users", userHandler.List)
	admins.GET("/users/:id", userHandler.Get)
	admins.PUT("/users/:id", userHandler.Update)
	admins.DELETE("/users/:id", userHandler.Delete)

	sectorHandler := handlers.NewSectorHandler(d.DB)
	admins.GET("/sectors", sectorHandler.List)
	admins.POST("/sectors", sectorHandler.Create)
}

// sessionAuthMiddleware validates bearer tokens and loads the session user.
func sessionAuthMiddleware(sessions *internalauth.SessionService, db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization header"})
			return
		}

		session, errResolve := sessions.Resolve(c.Request.Context(), token)
		if errResolve != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid session"})
			return
		}
		if session.UserID == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "login not completed"})
			return
		}

		var user models.User
		if errFind := db.WithContext(c.Request.Context()).First(&user, *session.UserID).Error; errFind != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
			return
		}

		c.Set(handlers.ContextUser, &user)
		c.Set(handlers.ContextSession, session)
		c.Next()
	}
}

// passwordChangeGuard blocks every route except the password change while
// the user is flagged for a forced password change.
func passwordChangeGuard() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := handlers.CurrentUser(c)
		if user == nil || !user.PasswordNeedsChange {
			c.Next()
			return
		}
		path := c.Request.URL.Path
		if path == "/v1/auth/password" || path == "/v1/auth/logout" {
			c.Next()
			return
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"error": "password change required",
			"code":  "password_change_required",
		})
	}
}

// requireSuperAdmin rejects everyone below SuperAdmin.
func requireSuperAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := handlers.CurrentUser(c)
		if user == nil || user.Role != models.RoleSuperAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		c.Next()
	}
}

// requireAdmin rejects everyone below Admin.
func requireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := handlers.CurrentUser(c)
		if user == nil || (user.Role != models.RoleSuperAdmin && user.Role != models.RoleAdmin) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		c.Next()
	}
}

// requireStaffAdmin rejects everyone below Kadrovik.
func requireStaffAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := handlers.CurrentUser(c)
		if user == nil || !user.Role.IsStaffAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		c.Next()
	}
}

// bearerToken extracts the bearer token from the Authorization header.
func bearerToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return "", false
	}
	token := strings.TrimPrefix(authHeader, "Bearer ")
	if token == authHeader {
		return "", false
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", false
	}
	return token, true
}
