// Package identity derives organization identifiers and issues API keys.
package identity

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/oklog/ulid/v2"
)

// Namespace seeds name-based organization ids. Changing it changes every id.
var Namespace = uuid.MustParse("6f1b7c52-3a9e-5d0f-9c61-2b8e4d7a1c30")

const apiKeyPrefix = "cf"

// DeriveOrgID returns the same id for the same (trimmed) name.
func DeriveOrgID(name string) string {
	return uuid.NewSHA1(Namespace, []byte(strings.TrimSpace(name))).String()
}

// GenerateAPIKey returns a fresh key of the form cf_<ULID>_<64 hex>.
func GenerateAPIKey() (string, error) {
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}
	return fmt.Sprintf("%s_%s_%s", apiKeyPrefix, ulid.Make().String(), hex.EncodeToString(secret)), nil
}

// Slug returns a file and URL safe form of name, or "org" when nothing survives.
func Slug(name string) string {
	s := slug.Make(strings.TrimSpace(name))
	if s == "" {
		return "org"
	}
	return s
}
