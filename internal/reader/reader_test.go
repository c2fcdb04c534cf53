package reader

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/tapdeck/tapdeck/internal/shared"
)

func TestDetect(t *testing.T) {
	t.Run("Explicit File Backend", func(t *testing.T) {
		cfg := shared.ReaderConfig{Type: "file", TagFile: filepath.Join(t.TempDir(), "tag")}

		r, err := Detect(cfg, nil)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		defer r.Close()

		if _, ok := r.(*TagFile); !ok {
			t.Errorf("expected *TagFile, got %T", r)
		}
	})

	t.Run("File Backend Requires Path", func(t *testing.T) {
		_, err := Detect(shared.ReaderConfig{Type: "file"}, nil)
		if !errors.Is(err, shared.ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})

	t.Run("Unknown Type", func(t *testing.T) {
		_, err := Detect(shared.ReaderConfig{Type: "carrier-pigeon"}, nil)
		if !errors.Is(err, shared.ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})

	t.Run("Auto Falls Back To Tag File", func(t *testing.T) {
		cfg := shared.ReaderConfig{
			Device:  filepath.Join(t.TempDir(), "no-such-tty"),
			TagFile: filepath.Join(t.TempDir(), "tag"),
		}

		r, err := Detect(cfg, nil)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		defer r.Close()

		if _, ok := r.(*TagFile); !ok {
			t.Errorf("expected fallback to *TagFile, got %T", r)
		}
	})

	t.Run("Auto With Nothing Configured", func(t *testing.T) {
		_, err := Detect(shared.ReaderConfig{}, nil)
		if !errors.Is(err, shared.ErrNoReader) {
			t.Errorf("expected ErrNoReader, got %v", err)
		}
	})
}

func TestTagFile(t *testing.T) {
	t.Run("Read Consumes The Drop File", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "tag")
		r := NewTagFile(path, nil)
		r.interval = 10 * time.Millisecond

		if err := os.WriteFile(path, []byte("spotify:album:abc"), 0644); err != nil {
			t.Fatalf("write failed: %v", err)
		}

		payload, err := r.Read(context.Background())
		if err != nil {
			t.Fatalf("read failed: %v", err)
		}
		if payload != "spotify:album:abc" {
			t.Errorf("unexpected payload: %q", payload)
		}

		if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
			t.Error("read must consume the drop file")
		}
	})

	t.Run("Read Waits For The File", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "tag")
		r := NewTagFile(path, nil)
		r.interval = 10 * time.Millisecond

		go func() {
			time.Sleep(50 * time.Millisecond)
			os.WriteFile(path, []byte("late"), 0644)
		}()

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		payload, err := r.Read(ctx)
		if err != nil {
			t.Fatalf("read failed: %v", err)
		}
		if payload != "late" {
			t.Errorf("unexpected payload: %q", payload)
		}
	})

	t.Run("Read Honors Cancellation", func(t *testing.T) {
		r := NewTagFile(filepath.Join(t.TempDir(), "tag"), nil)
		r.interval = 10 * time.Millisecond

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		_, err := r.Read(ctx)
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("expected deadline exceeded, got %v", err)
		}
	})

	t.Run("Write Then Read Round Trip", func(t *testing.T) {
		r := NewTagFile(filepath.Join(t.TempDir(), "tag"), nil)
		r.interval = 10 * time.Millisecond

		if err := r.Write(context.Background(), "spotify:album:xyz"); err != nil {
			t.Fatalf("write failed: %v", err)
		}

		payload, err := r.Read(context.Background())
		if err != nil {
			t.Fatalf("read failed: %v", err)
		}
		if payload != "spotify:album:xyz" {
			t.Errorf("unexpected payload: %q", payload)
		}
	})
}
