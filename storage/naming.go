package storage

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	hashFragmentLen = 8
	maxBaseLen      = 40
)

// GenerateStorageName builds a collision-resistant storage filename from a
// sanitized base, a content-hash fragment and a timestamp. The raw original
// name is never reused, which closes both path-injection and collision
// holes.
//
// Example: villa-front_3a91bc04_1719410622810412345.jpg
func GenerateStorageName(originalName, contentHash string) string {
	ext := strings.ToLower(filepath.Ext(originalName))
	base := sanitizeBase(strings.TrimSuffix(filepath.Base(originalName), filepath.Ext(originalName)))

	fragment := contentHash
	if len(fragment) > hashFragmentLen {
		fragment = fragment[:hashFragmentLen]
	}
	if fragment == "" {
		fragment = uuid.New().String()[:hashFragmentLen]
	}

	return fmt.Sprintf("%s_%s_%d%s", base, fragment, time.Now().UnixNano(), ext)
}

// sanitizeBase keeps only characters safe in every backend's key space.
func sanitizeBase(base string) string {
	var b strings.Builder
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '-' || r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('-')
		}
	}
	out := strings.Trim(b.String(), "-_")
	if out == "" {
		out = "file"
	}
	if len(out) > maxBaseLen {
		out = out[:maxBaseLen]
	}
	return strings.ToLower(out)
}
