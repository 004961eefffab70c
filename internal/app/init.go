package app

import (
	"context"
	"fmt"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/stafftrack/attendance/internal/models"
	"github.com/stafftrack/attendance/internal/security"
	"gorm.io/gorm"
)

// defaultRootEmail is used when no root email override is provided.
const defaultRootEmail = "root@localhost"

// ensureRootUser seeds the root account on an empty users table.
//
// Seeding requires ATTENDANCE_ROOT_PASSWORD so a default credential never
// reaches a deployment by accident. Without it the gap is only logged.
func ensureRootUser(ctx context.Context, conn *gorm.DB) error {
	var count int64
	if errCount := conn.WithContext(ctx).Model(&models.User{}).Count(&count).Error; errCount != nil {
		return fmt.Errorf("app: count users: %w", errCount)
	}
	if count > 0 {
		return nil
	}

	password := os.Getenv(EnvRootPassword)
	if strings.TrimSpace(password) == "" {
		log.Warnf("no users exist and %s is not set, skipping root account seed", EnvRootPassword)
		return nil
	}

	email := strings.ToLower(strings.TrimSpace(os.Getenv(EnvRootEmail)))
	if email == "" {
		email = defaultRootEmail
	}

	hash, errHash := security.HashPassword(password)
	if errHash != nil {
		return fmt.Errorf("app: hash root password: %w", errHash)
	}

	root := models.User{
		ID:        models.RootUserID,
		FirstName: "Root",
		LastName:  "Administrator",
		Email:     email,
		Password:  hash,
		Role:      models.RoleSuperAdmin,
		Status:    models.StatusCheckedOut,
	}
	if errCreate := conn.WithContext(ctx).Create(&root).Error; errCreate != nil {
		return fmt.Errorf("app: create root account: %w", errCreate)
	}
	log.WithField("email", security.MaskEmail(email)).Info("root account seeded")
	return nil
}
