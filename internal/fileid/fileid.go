// Package fileid derives stable document ids and content checksums for exported files.
package fileid

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
)

const (
	prefix  = "file-"
	idBytes = 12
)

// FromPath returns a stable document id for path. The id is derived from the slash-separated
// path relative to root, so an export tree keeps its ids when moved. When path is not
// under root the cleaned path itself is hashed.
func FromPath(root, path string) string {
	key := filepath.Clean(path)
	if root != "" {
		if rel, err := filepath.Rel(filepath.Clean(root), key); err == nil && !filepath.IsAbs(rel) && rel != ".." && !hasParentPrefix(rel) {
			key = rel
		}
	}
	hash := sha256.Sum256([]byte(filepath.ToSlash(key)))
	return prefix + hex.EncodeToString(hash[:idBytes])
}

// Checksum returns the hex SHA-256 of content.
func Checksum(content []byte) string {
	hash := sha256.Sum256(content)
	return hex.EncodeToString(hash[:])
}

func hasParentPrefix(rel string) bool {
	return len(rel) >= 3 && rel[:2] == ".." && rel[2] == filepath.Separator
}
