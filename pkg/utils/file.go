package utils

import (
	"fmt"
	"os"
	"strings"
)

// EnsureDirectory validates dirPath, creating it (and missing parents) when it does not exist
func EnsureDirectory(dirPath string) error {
	if info, err := os.Stat(dirPath); err == nil {
		if !info.IsDir() {
			return fmt.Errorf("path '%s' exists but is not a directory", dirPath)
		}
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("cannot access directory '%s': %w", dirPath, err)
	}

	if err := os.MkdirAll(dirPath, 0755); err != nil {
		return fmt.Errorf("failed to create directory '%s': %w", dirPath, err)
	}
	return nil
}

// FormatFileSize formats a byte count in human readable binary units
func FormatFileSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(size)/float64(div), "KMGTPE"[exp])
}

// SanitizeFileName replaces characters that are not safe in file names
func SanitizeFileName(name string) string {
	replacer := strings.NewReplacer(
		"/", "-",
		"\\", "-",
		":", "-",
		"*", "-",
		"?", "",
		"\"", "",
		"<", "",
		">", "",
		"|", "-",
	)
	return strings.TrimSpace(replacer.Replace(name))
}
