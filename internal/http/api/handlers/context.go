package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/stafftrack/attendance/internal/models"
)

// Context keys set by the session middleware.
const (
	ContextUser    = "attendance.user"
	ContextSession = "attendance.session"
)

// CurrentUser returns the authenticated user from the request context, or nil.
func CurrentUser(c *gin.Context) *models.User {
	value, exists := c.Get(ContextUser)
	if !exists {
		return nil
	}
	user, ok := value.(*models.User)
	if !ok {
		return nil
	}
	return user
}

// CurrentSession returns the resolved session from the request context, or nil.
func CurrentSession(c *gin.Context) *models.Session {
	value, exists := c.Get(ContextSession)
	if !exists {
		return nil
	}
	session, ok := value.(*models.Session)
	if !ok {
		return nil
	}
	return session
}
