package helper

import (
	"log"
	"os"
	"strings"
)

// EnsureDir makes sure given directory exists
func EnsureDir(dir string) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.Printf("[helper] failed to create dir %s: %v", dir, err)
	}
}

// SanitizeFilename makes a target URL safe for use as a filename
func SanitizeFilename(filename string) string {
	filename = strings.TrimSpace(filename)
	if filename == "" {
		return "unknown"
	}
	r := strings.NewReplacer(
		"://", "_",
		":", "_",
		"/", "_",
		"?", "_",
		"&", "_",
		"=", "_",
		" ", "_",
	)
	return r.Replace(filename)
}
