package output

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/atotto/clipboard"
)

// ErrClipboardUnavailable means no clipboard facility could be used.
var ErrClipboardUnavailable = errors.New("clipboard unavailable")

// writeClipboard is swapped out in tests.
var writeClipboard = func(text string) error {
	if clipboard.Unsupported {
		return errors.New("no clipboard utility found")
	}
	return clipboard.WriteAll(text)
}

// Save writes content to path, creating missing parent directories, and
// returns the absolute path written.
func Save(content, path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", path, err)
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return "", fmt.Errorf("create directory for %s: %w", abs, err)
	}
	if err := os.WriteFile(abs, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", abs, err)
	}
	return abs, nil
}

// Copy places content on the system clipboard.
func Copy(content string) error {
	if err := writeClipboard(content); err != nil {
		return fmt.Errorf("%w: %v", ErrClipboardUnavailable, err)
	}
	return nil
}
