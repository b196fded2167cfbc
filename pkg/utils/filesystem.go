package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// sensitiveDirs are never written to, even when given as absolute paths.
var sensitiveDirs = []string{
	"/etc", "/proc", "/sys", "/dev", "/boot", "/root",
	"/usr/bin", "/usr/sbin", "/bin", "/sbin",
}

// SafeCreateFile creates a report file after rejecting traversal and system
// paths. Missing parent directories are created.
func SafeCreateFile(filename string) (*os.File, error) {
	cleanPath, err := validateFilePath(filename)
	if err != nil {
		return nil, fmt.Errorf("invalid file path: %w", err)
	}

	if dir := filepath.Dir(cleanPath); dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	file, err := os.Create(cleanPath) // #nosec G304 - path validated above
	if err != nil {
		return nil, fmt.Errorf("failed to create file %s: %w", filename, err)
	}
	return file, nil
}

// validateFilePath returns the cleaned path, or an error if it climbs out of
// its base with ".." or points into a system directory.
func validateFilePath(path string) (string, error) {
	cleanPath := filepath.Clean(path)

	for _, part := range strings.Split(filepath.ToSlash(cleanPath), "/") {
		if part == ".." {
			return "", fmt.Errorf("path contains directory traversal patterns: %s", path)
		}
	}

	if filepath.IsAbs(cleanPath) {
		for _, sensitive := range sensitiveDirs {
			if cleanPath == sensitive || strings.HasPrefix(cleanPath, sensitive+string(filepath.Separator)) {
				return "", fmt.Errorf("path points to sensitive system directory: %s", path)
			}
		}
	}
	return cleanPath, nil
}

// DirectoryExists reports whether path names an existing directory.
func DirectoryExists(path string) bool {
	info, ok := stat(path)
	return ok && info.IsDir()
}

// FileExists reports whether path names an existing regular file.
func FileExists(path string) bool {
	info, ok := stat(path)
	return ok && !info.IsDir()
}

func stat(path string) (os.FileInfo, bool) {
	if path == "" {
		return nil, false
	}
	info, err := os.Stat(path)
	return info, err == nil
}
