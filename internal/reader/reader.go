// Package reader abstracts the NFC tag hardware behind a uniform
// read/write capability.
//
// Exactly one concrete backend is selected at process start by [Detect];
// adding hardware support means adding a backend, never branching inside
// the scan loop. All hardware and transport failures wrap
// [shared.ErrReader] so callers can treat them as retryable.
package reader

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/tapdeck/tapdeck/internal/shared"
)

// Reader is the capability set over a tag reader backend.
//
// Read and Write block until a tag is present or the context is
// cancelled. Payloads are the raw text content of the tag.
type Reader interface {
	// Read blocks until a tag is read or the context is cancelled.
	Read(ctx context.Context) (string, error)

	// Write blocks until a tag is present, then writes the payload.
	Write(ctx context.Context, payload string) error

	// Close releases any resources held by the reader.
	Close() error
}

// Detect selects exactly one backend based on configuration and what
// hardware is present. Selection failure is fatal to the process and
// reported once, at startup.
func Detect(cfg shared.ReaderConfig, logger *log.Logger) (Reader, error) {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	switch cfg.Type {
	case "serial":
		return NewSerial(cfg.Device, cfg.Baud, logger)
	case "file":
		if cfg.TagFile == "" {
			return nil, fmt.Errorf("%w: reader type \"file\" requires tag_file", shared.ErrInvalidConfig)
		}
		return NewTagFile(cfg.TagFile, logger), nil
	case "", "auto":
	default:
		return nil, fmt.Errorf("%w: unknown reader type %q", shared.ErrInvalidConfig, cfg.Type)
	}

	if cfg.Device != "" {
		if _, err := os.Stat(cfg.Device); err == nil {
			logger.Info("detected serial tag reader", "device", cfg.Device)
			return NewSerial(cfg.Device, cfg.Baud, logger)
		}
	}

	if cfg.TagFile != "" {
		logger.Info("using file-backed tag reader", "path", cfg.TagFile)
		return NewTagFile(cfg.TagFile, logger), nil
	}

	return nil, fmt.Errorf("%w: no serial device at %q and no tag_file configured", shared.ErrNoReader, cfg.Device)
}
