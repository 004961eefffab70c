package security

import (
	"strings"
	"testing"
	"time"
)

func TestMaskEmail(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"john@example.com", "j***@e***.com"},
		{"a@b.org", "a***@b***.org"},
		{"not-an-email", "***"},
		{"", "***"},
	}
	for _, tc := range cases {
		if got := MaskEmail(tc.in); got != tc.want {
			t.Fatalf("MaskEmail(%q): expected %q, got %q", tc.in, tc.want, got)
		}
	}
}

func TestMaskIP(t *testing.T) {
	if got := MaskIP("192.168.10.42"); got != "192.168.*.*" {
		t.Fatalf("expected masked IPv4, got %q", got)
	}
	if got := MaskIP("2001:db8:1:2:3:4:5:6"); got != "2001:db8:*" {
		t.Fatalf("expected masked IPv6, got %q", got)
	}
}

func TestPasswordHashRoundTrip(t *testing.T) {
	hash, err := HashPassword("s3cret-password")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	if !CheckPassword(hash, "s3cret-password") {
		t.Fatalf("expected password to verify")
	}
	if CheckPassword(hash, "wrong-password") {
		t.Fatalf("expected wrong password to fail")
	}
}

func TestGenerateNumericCode(t *testing.T) {
	code, err := GenerateNumericCode(6)
	if err != nil {
		t.Fatalf("generate code: %v", err)
	}
	if len(code) != 6 {
		t.Fatalf("expected 6 digits, got %q", code)
	}
	if strings.Trim(code, "0123456789") != "" {
		t.Fatalf("expected only digits, got %q", code)
	}
}

func TestSessionTokenRoundTrip(t *testing.T) {
	token, err := SignSessionToken("test-secret", "session-123", time.Hour)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	claims, err := ParseSessionToken("test-secret", token)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if claims.SessionID != "session-123" {
		t.Fatalf("expected session id %q, got %q", "session-123", claims.SessionID)
	}

	if _, errParse := ParseSessionToken("other-secret", token); errParse == nil {
		t.Fatalf("expected parse failure with wrong secret")
	}
	if _, errParse := ParseSessionToken("test-secret", token+"x"); errParse == nil {
		t.Fatalf("expected parse failure with tampered token")
	}
}

func TestSignSessionTokenExpired(t *testing.T) {
	token, err := SignSessionToken("test-secret", "session-123", -time.Minute)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	if _, errParse := ParseSessionToken("test-secret", token); errParse == nil {
		t.Fatalf("expected parse failure for expired token")
	}
}
