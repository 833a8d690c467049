package common

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
)

const defaultSecretSalt = "wabridge-secret-salt"

// GetSecretSalt returns the password hashing salt, overridable by env.
func GetSecretSalt() string {
	if v := os.Getenv("WABRIDGE_SECRET_SALT"); v != "" {
		return v
	}
	return defaultSecretSalt
}

// Sha256HashWithSalt hashes value+salt and returns the hex digest.
func Sha256HashWithSalt(value, salt string) string {
	sum := sha256.Sum256([]byte(value + salt))
	return hex.EncodeToString(sum[:])
}
