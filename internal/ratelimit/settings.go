package ratelimit

import (
	"context"
	"strings"

	internalsettings "github.com/stafftrack/attendance/internal/settings"
)

// SettingsConfig captures rate limit settings stored in DB config.
type SettingsConfig struct {
	TwoFactorMaxAttempts int
	LoginMaxRequests     int
	RedisEnabled         bool
	RedisAddr            string
	RedisPassword        string
	RedisDB              int
	RedisPrefix          string
}

// LoadSettingsConfig reads the current rate limit settings from the store.
func LoadSettingsConfig(ctx context.Context, store *internalsettings.Store) SettingsConfig {
	cfg := SettingsConfig{
		TwoFactorMaxAttempts: store.Int(ctx, internalsettings.TwoFactorMaxAttemptsKey, internalsettings.DefaultTwoFactorMaxAttempts),
		LoginMaxRequests:     store.Int(ctx, internalsettings.LoginMaxRequestsKey, internalsettings.DefaultLoginMaxRequests),
		RedisEnabled:         store.Bool(ctx, internalsettings.RateLimitRedisEnabledKey, false),
		RedisAddr:            store.String(ctx, internalsettings.RateLimitRedisAddrKey, ""),
		RedisPassword:        store.String(ctx, internalsettings.RateLimitRedisPasswordKey, ""),
		RedisDB:              store.Int(ctx, internalsettings.RateLimitRedisDBKey, 0),
		RedisPrefix:          store.String(ctx, internalsettings.RateLimitRedisPrefixKey, internalsettings.DefaultRateLimitRedisPrefix),
	}
	cfg.RedisAddr = strings.TrimSpace(cfg.RedisAddr)
	cfg.RedisPrefix = strings.TrimSpace(cfg.RedisPrefix)
	if cfg.RedisPrefix == "" {
		cfg.RedisPrefix = internalsettings.DefaultRateLimitRedisPrefix
	}
	if cfg.RedisDB < 0 {
		cfg.RedisDB = 0
	}
	if cfg.TwoFactorMaxAttempts < 0 {
		cfg.TwoFactorMaxAttempts = 0
	}
	if cfg.LoginMaxRequests < 0 {
		cfg.LoginMaxRequests = 0
	}
	return cfg
}
