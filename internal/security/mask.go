package security

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// MaskEmail obscures an email address for logs and audit metadata.
// "john@example.com" becomes "j***@e***.com".
func MaskEmail(email string) string {
	email = strings.TrimSpace(email)
	at := strings.Index(email, "@")
	if at <= 0 || at == len(email)-1 {
		return "***"
	}
	local := email[:at]
	domain := email[at+1:]

	maskedLocal := local[:1] + "***"
	dot := strings.LastIndex(domain, ".")
	if dot <= 0 {
		return maskedLocal + "@***"
	}
	return maskedLocal + "@" + domain[:1] + "***" + domain[dot:]
}

// MaskIP obscures the host portion of an IP address for logs.
// IPv4 keeps the first two octets, IPv6 the first two segments.
func MaskIP(ip string) string {
	ip = strings.TrimSpace(ip)
	if ip == "" {
		return "***"
	}
	if strings.Contains(ip, ":") {
		parts := strings.Split(ip, ":")
		if len(parts) < 2 {
			return "***"
		}
		return parts[0] + ":" + parts[1] + ":*"
	}
	parts := strings.Split(ip, ".")
	if len(parts) != 4 {
		return "***"
	}
	return parts[0] + "." + parts[1] + ".*.*"
}

// HashForLogging returns a short stable digest of a sensitive value so log
// lines can be correlated without exposing the value itself.
func HashForLogging(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])[:16] + "..."
}
