package db

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/glebarez/sqlite"
	_ "github.com/jackc/pgx/v5/stdlib"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open connects to the database identified by the DSN.
//
// DSNs starting with postgres:// or postgresql:// use the pgx driver;
// everything else is treated as a SQLite path.
func Open(dsn string) (*gorm.DB, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, fmt.Errorf("db: empty dsn")
	}

	gormCfg := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}

	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		sqlDB, errOpen := sql.Open("pgx", dsn)
		if errOpen != nil {
			return nil, fmt.Errorf("db: open postgres: %w", errOpen)
		}
		conn, errGorm := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), gormCfg)
		if errGorm != nil {
			_ = sqlDB.Close()
			return nil, fmt.Errorf("db: init postgres: %w", errGorm)
		}
		return conn, nil
	}

	conn, errGorm := gorm.Open(sqlite.Open(dsn), gormCfg)
	if errGorm != nil {
		return nil, fmt.Errorf("db: open sqlite: %w", errGorm)
	}
	return conn, nil
}
