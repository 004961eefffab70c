package security

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"fmt"
)

// GenerateNumericCode returns a zero-padded numeric code of the given length.
func GenerateNumericCode(length int) (string, error) {
	if length <= 0 || length > 18 {
		return "", fmt.Errorf("security: invalid code length: %d", length)
	}
	var buf [8]byte
	if _, errRead := rand.Read(buf[:]); errRead != nil {
		return "", fmt.Errorf("security: generate code: %w", errRead)
	}
	max := uint64(1)
	for i := 0; i < length; i++ {
		max *= 10
	}
	value := binary.BigEndian.Uint64(buf[:]) % max
	return fmt.Sprintf("%0*d", length, value), nil
}

// NewSessionID returns a random 128-bit session identifier in hex.
func NewSessionID() (string, error) {
	var buf [16]byte
	if _, errRead := rand.Read(buf[:]); errRead != nil {
		return "", fmt.Errorf("security: generate session id: %w", errRead)
	}
	return hex.EncodeToString(buf[:]), nil
}
