package reader

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/tapdeck/tapdeck/internal/shared"
)

// TagFile emulates a tag reader with a file drop path: a "scan" is a
// file appearing at the path, and reading consumes it. Useful on
// machines without reader hardware and in tests.
type TagFile struct {
	path     string
	logger   *log.Logger
	interval time.Duration
}

// NewTagFile creates a file-backed reader watching the given path.
func NewTagFile(path string, logger *log.Logger) *TagFile {
	return &TagFile{path: shared.ExpandPath(path), logger: logger, interval: 250 * time.Millisecond}
}

// Read polls the drop path until a payload file appears, then consumes it.
func (t *TagFile) Read(ctx context.Context) (string, error) {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		data, err := os.ReadFile(t.path)
		if err == nil {
			if removeErr := os.Remove(t.path); removeErr != nil {
				return "", fmt.Errorf("%w: consume %s: %v", shared.ErrReader, t.path, removeErr)
			}
			return string(data), nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: read %s: %v", shared.ErrReader, t.path, err)
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-ticker.C:
		}
	}
}

// Write drops the payload at the path, where the next Read picks it up.
func (t *TagFile) Write(ctx context.Context, payload string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := os.WriteFile(t.path, []byte(payload), 0644); err != nil {
		return fmt.Errorf("%w: write %s: %v", shared.ErrReader, t.path, err)
	}

	return nil
}

// Close is a no-op for the file backend.
func (t *TagFile) Close() error {
	return nil
}
