package crypto

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const (
	// DefaultCost is the default bcrypt cost
	DefaultCost = 12

	// APIKeyPrefix marks keys issued by this service.
	APIKeyPrefix = "pw_"
)

var (
	bcryptGenerateFromPassword = bcrypt.GenerateFromPassword
	randomRead                 = rand.Read
)

// GenerateAPIKey returns a new random key of the form pw_<48 hex chars>.
// Only the bcrypt hash of the full key is ever stored.
func GenerateAPIKey() (string, error) {
	token, err := GenerateRandomToken(24)
	if err != nil {
		return "", err
	}
	return APIKeyPrefix + token, nil
}

// HashAPIKey hashes an API key using bcrypt
func HashAPIKey(key string) (string, error) {
	bytes, err := bcryptGenerateFromPassword([]byte(key), DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash api key: %w", err)
	}
	return string(bytes), nil
}

// CheckAPIKey compares an API key with a stored hash
func CheckAPIKey(key, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(key))
	return err == nil
}

// HasKeyPrefix reports whether the presented credential looks like one of
// our keys. Used to reject junk before paying the bcrypt cost.
func HasKeyPrefix(key string) bool {
	return strings.HasPrefix(key, APIKeyPrefix)
}

// GenerateRandomToken generates a random token of specified length
func GenerateRandomToken(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := randomRead(bytes); err != nil {
		return "", fmt.Errorf("failed to generate random token: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}
