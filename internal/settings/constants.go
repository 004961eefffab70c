package settings

// DB config keys and defaults for settings.
const (
	// TwoFactorEnabledKey toggles the emailed two-factor step at login.
	TwoFactorEnabledKey = "TWO_FACTOR_ENABLED"
	// AutoLogoutEnabledKey toggles the global scheduled auto-logout.
	AutoLogoutEnabledKey = "AUTO_LOGOUT_ENABLED"
	// AutoLogoutTimeKey is the HH:MM time of the global auto-logout.
	AutoLogoutTimeKey = "AUTO_LOGOUT_TIME"
	// SilentAutoLogoutKey suppresses audit noise for scheduled logouts.
	SilentAutoLogoutKey = "SILENT_AUTO_LOGOUT"
	// ReminderEnabledKey toggles check-in/check-out reminder emails.
	ReminderEnabledKey = "REMINDER_ENABLED"
	// ReminderCheckInTimeKey is the HH:MM time of the check-in reminder.
	ReminderCheckInTimeKey = "REMINDER_CHECK_IN_TIME"
	// ReminderCheckOutTimeKey is the HH:MM time of the check-out reminder.
	ReminderCheckOutTimeKey = "REMINDER_CHECK_OUT_TIME"
	// OvertimeCheckTimeKey is the HH:MM time after which overtime prompts start.
	OvertimeCheckTimeKey = "OVERTIME_CHECK_TIME"
	// OvertimeWorkingDaysKey lists working days as abbreviated names.
	OvertimeWorkingDaysKey = "OVERTIME_WORKING_DAYS"
	// OvertimePromptIntervalKey is the minimum minutes between overtime prompts.
	OvertimePromptIntervalKey = "OVERTIME_PROMPT_INTERVAL_MINUTES"
	// OvertimePromptTimeoutKey is the minutes a prompt waits before auto-checkout.
	OvertimePromptTimeoutKey = "OVERTIME_PROMPT_TIMEOUT_MINUTES"
	// TwoFactorMaxAttemptsKey caps two-factor verification attempts per minute.
	TwoFactorMaxAttemptsKey = "TWO_FACTOR_MAX_ATTEMPTS_PER_MINUTE"
	// LoginMaxRequestsKey caps login requests per minute per IP.
	LoginMaxRequestsKey = "LOGIN_MAX_REQUESTS_PER_MINUTE"
	// RateLimitRedisEnabledKey toggles Redis-backed rate limiting.
	RateLimitRedisEnabledKey = "RATE_LIMIT_REDIS_ENABLED"
	// RateLimitRedisAddrKey defines the Redis address for rate limiting.
	RateLimitRedisAddrKey = "RATE_LIMIT_REDIS_ADDR"
	// RateLimitRedisPasswordKey defines the Redis password for rate limiting.
	RateLimitRedisPasswordKey = "RATE_LIMIT_REDIS_PASSWORD"
	// RateLimitRedisDBKey defines the Redis DB index for rate limiting.
	RateLimitRedisDBKey = "RATE_LIMIT_REDIS_DB"
	// RateLimitRedisPrefixKey defines the Redis key prefix for rate limiting.
	RateLimitRedisPrefixKey = "RATE_LIMIT_REDIS_PREFIX"

	// DefaultTwoFactorEnabled enables the emailed code step by default.
	DefaultTwoFactorEnabled = true
	// DefaultAutoLogoutEnabled disables the global auto-logout by default.
	DefaultAutoLogoutEnabled = false
	// DefaultAutoLogoutTime is the fallback global auto-logout time.
	DefaultAutoLogoutTime = "17:00"
	// DefaultSilentAutoLogout keeps scheduled logouts audited by default.
	DefaultSilentAutoLogout = false
	// DefaultReminderEnabled disables reminder emails by default.
	DefaultReminderEnabled = false
	// DefaultReminderCheckInTime is the fallback check-in reminder time.
	DefaultReminderCheckInTime = "07:25"
	// DefaultReminderCheckOutTime is the fallback check-out reminder time.
	DefaultReminderCheckOutTime = "15:25"
	// DefaultOvertimeCheckTime is the fallback overtime check time.
	DefaultOvertimeCheckTime = "15:30"
	// DefaultOvertimeWorkingDays is the fallback working day list.
	DefaultOvertimeWorkingDays = "Mon,Tue,Wed,Thu,Fri"
	// DefaultOvertimePromptInterval is the fallback prompt debounce in minutes.
	DefaultOvertimePromptInterval = 15
	// DefaultOvertimePromptTimeout is the fallback prompt timeout in minutes.
	DefaultOvertimePromptTimeout = 10
	// DefaultTwoFactorMaxAttempts is the fallback verification attempt cap.
	DefaultTwoFactorMaxAttempts = 5
	// DefaultLoginMaxRequests is the fallback login request cap.
	DefaultLoginMaxRequests = 30
	// DefaultRateLimitRedisPrefix is the fallback Redis key prefix.
	DefaultRateLimitRedisPrefix = "att:rl"
)
