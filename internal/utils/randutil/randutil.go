package randutil

import (
	"crypto/rand"
	"encoding/base64"
	"strings"
)

const APIKeyPrefix = "csk_"

func RandomString(length int) (string, error) {
	key := make([]byte, length)

	if _, err := rand.Read(key); err != nil {
		return "", err
	}

	return base64.RawURLEncoding.EncodeToString(key), nil
}

// NewAPIKey returns a prefixed random key built from length random bytes.
func NewAPIKey(length int) (string, error) {
	key, err := RandomString(length)
	if err != nil {
		return "", err
	}

	return APIKeyPrefix + key, nil
}

func MaskString(key string, visibleStart, visibleEnd int) string {
	if len(key) <= visibleStart+visibleEnd {
		return key
	}

	start := key[:visibleStart]
	end := key[len(key)-visibleEnd:]
	return start + strings.Repeat("*", len(key)-(visibleStart+visibleEnd)) + end
}
