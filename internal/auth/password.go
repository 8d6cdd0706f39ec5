package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"regexp"

	"golang.org/x/crypto/bcrypt"
)

var legacyHash = regexp.MustCompile(`^[0-9a-f]{64}$`)

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword reports whether password matches hash. Unsalted SHA-256 hex
// digests from older installs are still accepted; needsRehash is true for
// those so the caller can upgrade them after a successful login.
func VerifyPassword(hash, password string) (ok bool, needsRehash bool) {
	if IsLegacyHash(hash) {
		sum := sha256.Sum256([]byte(password))
		digest := hex.EncodeToString(sum[:])
		match := subtle.ConstantTimeCompare([]byte(digest), []byte(hash)) == 1
		return match, match
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil, false
}

func IsLegacyHash(hash string) bool {
	return legacyHash.MatchString(hash)
}
