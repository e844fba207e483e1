package file

import (
	"io/fs"
	"path/filepath"
	"strings"
	"time"
)

// FindRecentAfter walks dir and returns regular files modified after since,
// in lexical order. With exts set, only files with one of those extensions
// (case-insensitive, leading dot) are returned.
func FindRecentAfter(dir string, since time.Time, exts ...string) ([]string, error) {
	var recent []string

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !hasExt(path, exts) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if info.Mode().IsRegular() && info.ModTime().After(since) {
			recent = append(recent, path)
		}
		return nil
	})

	return recent, err
}

func hasExt(path string, exts []string) bool {
	if len(exts) == 0 {
		return true
	}
	ext := filepath.Ext(path)
	for _, want := range exts {
		if strings.EqualFold(ext, want) {
			return true
		}
	}
	return false
}
