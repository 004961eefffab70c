package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/stafftrack/attendance/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Cache TTLs. Security-sensitive toggles refresh quickly so that flipping
// them takes effect within a minute; everything else is effectively static.
const (
	securityKeyTTL = 60 * time.Second
	defaultKeyTTL  = time.Hour
)

var securityKeys = map[string]struct{}{
	TwoFactorEnabledKey:  {},
	AutoLogoutEnabledKey: {},
}

// Store reads settings through a process-wide TTL cache.
type Store struct {
	db    *gorm.DB
	nowFn func() time.Time

	mu      sync.Mutex
	entries map[string]cacheEntry
}

type cacheEntry struct {
	value   json.RawMessage
	found   bool
	expires time.Time
}

// NewStore constructs a settings store backed by the given connection.
func NewStore(db *gorm.DB) *Store {
	return &Store{
		db:      db,
		nowFn:   time.Now,
		entries: make(map[string]cacheEntry),
	}
}

// NewStoreWithClock constructs a store with an injected clock for tests.
func NewStoreWithClock(db *gorm.DB, nowFn func() time.Time) *Store {
	s := NewStore(db)
	if nowFn != nil {
		s.nowFn = nowFn
	}
	return s
}

// Raw returns the raw JSON value for a key, reading through the cache.
// The second result reports whether the key exists in the database.
func (s *Store) Raw(ctx context.Context, key string) (json.RawMessage, bool) {
	now := s.nowFn()

	s.mu.Lock()
	if entry, ok := s.entries[key]; ok && now.Before(entry.expires) {
		s.mu.Unlock()
		return entry.value, entry.found
	}
	s.mu.Unlock()

	var row models.Setting
	found := true
	errFind := s.db.WithContext(ctx).Where("key = ?", key).First(&row).Error
	if errFind != nil {
		if !errors.Is(errFind, gorm.ErrRecordNotFound) {
			// Do not cache transient read failures.
			return nil, false
		}
		found = false
	}

	entry := cacheEntry{
		value:   json.RawMessage(row.Value),
		found:   found,
		expires: now.Add(ttlForKey(key)),
	}
	s.mu.Lock()
	s.entries[key] = entry
	s.mu.Unlock()
	return entry.value, entry.found
}

// Bool returns a boolean setting, falling back to def.
func (s *Store) Bool(ctx context.Context, key string, def bool) bool {
	raw, ok := s.Raw(ctx, key)
	if !ok {
		return def
	}
	if value, okParse := ParseBool(raw); okParse {
		return value
	}
	return def
}

// Int returns a non-negative integer setting, falling back to def.
func (s *Store) Int(ctx context.Context, key string, def int) int {
	raw, ok := s.Raw(ctx, key)
	if !ok {
		return def
	}
	if value, okParse := ParseNonNegativeInt(raw); okParse {
		return value
	}
	return def
}

// String returns a string setting, falling back to def.
func (s *Store) String(ctx context.Context, key string, def string) string {
	raw, ok := s.Raw(ctx, key)
	if !ok {
		return def
	}
	if value, okParse := ParseString(raw); okParse && value != "" {
		return value
	}
	return def
}

// Set upserts a setting value and invalidates its cache entry.
func (s *Store) Set(ctx context.Context, key string, value json.RawMessage) error {
	var existing models.Setting
	errFind := s.db.WithContext(ctx).Where("key = ?", key).First(&existing).Error
	if errFind == nil {
		if errUpdate := s.db.WithContext(ctx).Model(&existing).Updates(map[string]any{
			"value":      datatypes.JSON(value),
			"updated_at": s.nowFn().UTC(),
		}).Error; errUpdate != nil {
			return fmt.Errorf("settings: update %s: %w", key, errUpdate)
		}
	} else if errors.Is(errFind, gorm.ErrRecordNotFound) {
		row := models.Setting{Key: key, Value: datatypes.JSON(value), UpdatedAt: s.nowFn().UTC()}
		if errCreate := s.db.WithContext(ctx).Create(&row).Error; errCreate != nil {
			return fmt.Errorf("settings: create %s: %w", key, errCreate)
		}
	} else {
		return fmt.Errorf("settings: query %s: %w", key, errFind)
	}

	s.Invalidate(key)
	return nil
}

// Invalidate drops the cached value for a key.
func (s *Store) Invalidate(key string) {
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
}

// ttlForKey returns the cache TTL for a settings key.
func ttlForKey(key string) time.Duration {
	if _, ok := securityKeys[key]; ok {
		return securityKeyTTL
	}
	return defaultKeyTTL
}
