package file

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// splitExt splits path into everything before the extension and the extension.
// Dotfiles like ".srt" have no extension.
func splitExt(path string) (string, string) {
	dir := filepath.Dir(path)
	filename := filepath.Base(path)

	lastDot := strings.LastIndex(filename, ".")
	if lastDot <= 0 {
		return filepath.Join(dir, filename), ""
	}
	return filepath.Join(dir, filename[:lastDot]), filename[lastDot:]
}

// InsertSuffix places suffix between the base name and the extension:
// "a/name.srt" + "_translated" -> "a/name_translated.srt".
func InsertSuffix(path, suffix string) string {
	if path == "" {
		return path
	}
	base, ext := splitExt(path)
	return base + suffix + ext
}

// InsertInfix places a dotted tag before the extension:
// "a/name.srt" + "esp" -> "a/name.esp.srt".
func InsertInfix(path, tag string) string {
	if path == "" {
		return path
	}
	tag = strings.Trim(tag, ".")
	if tag == "" {
		return path
	}
	return InsertSuffix(path, "."+tag)
}

// HasSuffixBeforeExt reports whether the base name (without extension) ends with suffix.
func HasSuffixBeforeExt(path, suffix string) bool {
	if suffix == "" {
		return false
	}
	base, _ := splitExt(path)
	return strings.HasSuffix(base, suffix)
}

// Exists reports whether path exists. Permission errors count as existing.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil || !errors.Is(err, os.ErrNotExist)
}
