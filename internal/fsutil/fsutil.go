package fsutil

import (
	"os"
	"path/filepath"
	"strings"
)

var coverExts = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".png":  {},
	".bmp":  {},
}

// ListCovers returns all cover-image files under root.
func ListCovers(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if IsCoverFile(d.Name()) {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// FirstExisting returns the first path that exists.
func FirstExisting(paths ...string) string {
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// IsCoverFile checks if a file is a supported cover format.
func IsCoverFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	_, ok := coverExts[ext]
	return ok
}
