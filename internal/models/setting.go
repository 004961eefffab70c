package models

import (
	"time"

	"gorm.io/datatypes"
)

// Setting is a single runtime configuration value keyed by name.
type Setting struct {
	// Value is declared text rather than jsonb: SQLite gives a "jsonb"
	// column NUMERIC affinity, which turns bare JSON numbers into integers
	// and breaks the scan back into datatypes.JSON.
	Key   string         `gorm:"type:text;primaryKey"` // Setting key.
	Value datatypes.JSON `gorm:"type:text"`            // JSON value payload.

	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
