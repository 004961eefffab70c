package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/stafftrack/attendance/internal/audit"
	internalauth "github.com/stafftrack/attendance/internal/auth"
	internaldb "github.com/stafftrack/attendance/internal/db"
	"github.com/stafftrack/attendance/internal/models"
	"github.com/stafftrack/attendance/internal/security"
	"gorm.io/gorm"
)

// UserHandler serves the user management endpoints.
type UserHandler struct {
	db       *gorm.DB
	audit    *audit.Recorder
	sessions *internalauth.SessionService
}

// NewUserHandler constructs a UserHandler.
func NewUserHandler(db *gorm.DB, recorder *audit.Recorder, sessions *internalauth.SessionService) *UserHandler {
	return &UserHandler{db: db, audit: recorder, sessions: sessions}
}

type createUserRequest struct {
	FirstName string  `json:"first_name"`
	LastName  string  `json:"last_name"`
	Email     string  `json:"email"`
	Password  string  `json:"password"`
	Role      string  `json:"role"`
	SectorID  *uint64 `json:"sector_id"`
}

// Create adds a new user. The account starts with a forced password change
// so the initial password never outlives the first login.
func (h *UserHandler) Create(c *gin.Context) {
	actor := CurrentUser(c)
	var req createUserRequest
	if errBind := c.ShouldBindJSON(&req); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.FirstName == "" || req.LastName == "" || req.Email == "" || req.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "first_name, last_name, email and password are required"})
		return
	}
	role, ok := parseRole(req.Role)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid role"})
		return
	}
	if role == models.RoleSuperAdmin && actor.Role != models.RoleSuperAdmin {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}
	if len(req.Password) < 8 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "password must be at least 8 characters"})
		return
	}

	hash, errHash := security.HashPassword(req.Password)
	if errHash != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create user"})
		return
	}

	ctx := c.Request.Context()
	user := models.User{
		FirstName:           req.FirstName,
		LastName:            req.LastName,
		Email:               req.Email,
		Password:            hash,
		Role:                role,
		SectorID:            req.SectorID,
		Status:              models.StatusCheckedOut,
		PasswordNeedsChange: true,
	}
	if errCreate := h.db.WithContext(ctx).Create(&user).Error; errCreate != nil {
		if isUniqueViolation(errCreate) {
			c.JSON(http.StatusConflict, gin.H{"error": "email already in use"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create user"})
		return
	}

	h.audit.Record(ctx, models.AuditUserCreated, &actor.ID, c.ClientIP(), c.Request.UserAgent(),
		"user created", map[string]any{"target_user_id": user.ID})
	c.JSON(http.StatusCreated, gin.H{"user": userPayload(&user)})
}

// List returns users with optional name, email, role, and sector filters.
func (h *UserHandler) List(c *gin.Context) {
	ctx := c.Request.Context()
	query := h.db.WithContext(ctx).Model(&models.User{})

	if search := strings.TrimSpace(c.Query("q")); search != "" {
		pattern := internaldb.NormalizeLikePattern(h.db, "%"+search+"%")
		query = query.Where(
			h.db.Where(internaldb.CaseInsensitiveLikeExpr(h.db, "first_name"), pattern).
				Or(internaldb.CaseInsensitiveLikeExpr(h.db, "last_name"), pattern).
				Or(internaldb.CaseInsensitiveLikeExpr(h.db, "email"), pattern),
		)
	}
	if role := strings.TrimSpace(c.Query("role")); role != "" {
		parsed, ok := parseRole(role)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid role"})
			return
		}
		query = query.Where("role = ?", parsed)
	}
	if sector := strings.TrimSpace(c.Query("sector_id")); sector != "" {
		sectorID, errParse := strconv.ParseUint(sector, 10, 64)
		if errParse != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid sector_id"})
			return
		}
		query = query.Where("sector_id = ?", sectorID)
	}

	var users []models.User
	if errFind := query.Order("last_name, first_name").Find(&users).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list users"})
		return
	}
	payload := make([]gin.H, 0, len(users))
	for i := range users {
		payload = append(payload, userPayload(&users[i]))
	}
	c.JSON(http.StatusOK, gin.H{"users": payload})
}

// Get returns a single user.
func (h *UserHandler) Get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var user models.User
	if errFind := h.db.WithContext(c.Request.Context()).First(&user, id).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load user"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": userPayload(&user)})
}

type updateUserRequest struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Email     *string `json:"email"`
	Password  *string `json:"password"`
	Role      *string `json:"role"`
	SectorID  *uint64 `json:"sector_id"`
}

// Update edits a user. The root account cannot be modified.
func (h *UserHandler) Update(c *gin.Context) {
	actor := CurrentUser(c)
	id, ok := pathID(c)
	if !ok {
		return
	}
	if id == models.RootUserID {
		c.JSON(http.StatusForbidden, gin.H{"error": "the root account cannot be modified"})
		return
	}

	var req updateUserRequest
	if errBind := c.ShouldBindJSON(&req); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	ctx := c.Request.Context()
	var user models.User
	if errFind := h.db.WithContext(ctx).First(&user, id).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load user"})
		return
	}

	updates := map[string]any{}
	if req.FirstName != nil {
		name := strings.TrimSpace(*req.FirstName)
		if name == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "first_name must not be empty"})
			return
		}
		updates["first_name"] = name
	}
	if req.LastName != nil {
		name := strings.TrimSpace(*req.LastName)
		if name == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "last_name must not be empty"})
			return
		}
		updates["last_name"] = name
	}
	if req.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*req.Email))
		if email == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "email must not be empty"})
			return
		}
		updates["email"] = email
	}
	if req.Role != nil {
		role, okRole := parseRole(*req.Role)
		if !okRole {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid role"})
			return
		}
		if (role == models.RoleSuperAdmin || user.Role == models.RoleSuperAdmin) && actor.Role != models.RoleSuperAdmin {
			c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		updates["role"] = role
	}
	if req.SectorID != nil {
		updates["sector_id"] = *req.SectorID
	}
	if req.Password != nil {
		if len(*req.Password) < 8 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "password must be at least 8 characters"})
			return
		}
		hash, errHash := security.HashPassword(*req.Password)
		if errHash != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update user"})
			return
		}
		updates["password"] = hash
		updates["password_needs_change"] = true
	}
	if len(updates) == 0 {
		c.JSON(http.StatusOK, gin.H{"user": userPayload(&user)})
		return
	}

	if errUpdate := h.db.WithContext(ctx).Model(&user).Updates(updates).Error; errUpdate != nil {
		if isUniqueViolation(errUpdate) {
			c.JSON(http.StatusConflict, gin.H{"error": "email already in use"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update user"})
		return
	}

	h.audit.Record(ctx, models.AuditUserUpdated, &actor.ID, c.ClientIP(), c.Request.UserAgent(),
		"user updated", map[string]any{"target_user_id": user.ID})
	c.JSON(http.StatusOK, gin.H{"user": userPayload(&user)})
}

// Delete removes a user along with their sessions. The root account and
// the caller's own account are protected.
func (h *UserHandler) Delete(c *gin.Context) {
	actor := CurrentUser(c)
	id, ok := pathID(c)
	if !ok {
		return
	}
	if id == models.RootUserID {
		c.JSON(http.StatusForbidden, gin.H{"error": "the root account cannot be deleted"})
		return
	}
	if id == actor.ID {
		c.JSON(http.StatusForbidden, gin.H{"error": "cannot delete own account"})
		return
	}

	ctx := c.Request.Context()
	var user models.User
	if errFind := h.db.WithContext(ctx).First(&user, id).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load user"})
		return
	}
	if user.Role == models.RoleSuperAdmin && actor.Role != models.RoleSuperAdmin {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}

	if errDelete := h.db.WithContext(ctx).Delete(&user).Error; errDelete != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete user"})
		return
	}
	if errSessions := h.sessions.DeleteAllForUser(ctx, user.ID); errSessions != nil {
		log.WithError(errSessions).Warn("failed to delete sessions of removed user")
	}

	h.audit.Record(ctx, models.AuditUserDeleted, &actor.ID, c.ClientIP(), c.Request.UserAgent(),
		"user deleted", map[string]any{"target_user_id": user.ID})
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func parseRole(value string) (models.Role, bool) {
	role := models.Role(strings.TrimSpace(value))
	switch role {
	case models.RoleSuperAdmin, models.RoleAdmin, models.RoleKadrovik, models.RoleRukovodilac, models.RoleZaposleni:
		return role, true
	}
	return "", false
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate")
}
