package storage

import (
	"net/url"
	"strings"
)

// Fixed first-level logical directories. Every provider exposes the same
// set so descriptors stay portable across backends.
const (
	DirImages     = "images"
	DirDocuments  = "documents"
	DirProperties = "properties"
	DirProfiles   = "profiles"
	DirGeneral    = "general"
	DirTemp       = "temp"
)

// KnownDirs lists the fixed first-level directories in creation order.
var KnownDirs = []string{DirImages, DirDocuments, DirProperties, DirProfiles, DirGeneral, DirTemp}

// entityDirs maps related-entity types to their home directory.
var entityDirs = map[string]string{
	"property":   DirProperties,
	"investment": DirDocuments,
	"user":       DirProfiles,
	"plan":       DirDocuments,
}

// ResolveDir picks the logical directory for a new object with a fixed
// fallback chain: explicit metadata directory, MIME-type category, related
// entity type, default bucket.
func ResolveDir(meta PutMeta) string {
	if d := normalizeDir(meta.Directory); d != "" {
		return d
	}

	switch {
	case strings.HasPrefix(meta.ContentType, "image/"):
		return DirImages
	case strings.HasPrefix(meta.ContentType, "application/pdf"),
		strings.HasPrefix(meta.ContentType, "application/msword"),
		strings.HasPrefix(meta.ContentType, "application/vnd."),
		strings.HasPrefix(meta.ContentType, "text/"):
		return DirDocuments
	}

	if d, ok := entityDirs[strings.ToLower(meta.RelatedEntityType)]; ok {
		return d
	}

	return DirGeneral
}

// ResolveDirFromURL re-derives the logical directory from a descriptor's
// public URL. Metadata and physical layout can drift after manual
// migrations; callers use this as a second attempt before reporting an
// object as missing.
func ResolveDirFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	// Expect .../<directory>/<filename>; the directory is the segment
	// right before the object name.
	if len(segments) < 2 {
		return ""
	}
	return normalizeDir(segments[len(segments)-2])
}

// normalizeDir rejects anything that could escape the provider root.
func normalizeDir(dir string) string {
	dir = strings.Trim(strings.TrimSpace(dir), "/")
	if dir == "" || strings.Contains(dir, "..") || strings.ContainsRune(dir, 0) {
		return ""
	}
	return dir
}
