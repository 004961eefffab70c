package ratelimit

import "strings"

// KeyForTwoFactor builds the limiter key for two-factor verification
// attempts on one session.
func KeyForTwoFactor(sessionID string) string {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return ""
	}
	return "2fa:" + sessionID
}

// KeyForLogin builds the limiter key for login requests from one IP.
func KeyForLogin(ip string) string {
	ip = strings.TrimSpace(ip)
	if ip == "" {
		return ""
	}
	return "login:" + ip
}
