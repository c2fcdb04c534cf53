package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
	"github.com/tapdeck/tapdeck/internal/shared"
)

// reloadDelay debounces bursts of filesystem events into a single reload.
const reloadDelay = 250 * time.Millisecond

// Store persists the credential record to a single JSON file with
// owner-only permissions.
//
// The file is shared with one-shot invocations of the CLI, so the store
// watches it with fsnotify and reloads when another process rewrites it.
type Store struct {
	file   string
	logger *log.Logger

	watcher *fsnotify.Watcher

	mu    sync.RWMutex
	creds *Credentials

	reloadMu    sync.Mutex
	reloadTimer *time.Timer
	done        chan struct{}
	wg          sync.WaitGroup
	closeOnce   sync.Once
	closeErr    error
}

// NewStore creates a Store backed by the credential file at path.
// A missing file is the normal "not yet authorized" state, not an error.
func NewStore(path string, logger *log.Logger) (*Store, error) {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	s := &Store{
		file:   filepath.Clean(shared.ExpandPath(path)),
		logger: logger,
		done:   make(chan struct{}),
	}

	if err := s.reload(); err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create credential watcher: %w", err)
	}
	s.watcher = watcher

	dir := filepath.Dir(s.file)
	if err := os.MkdirAll(dir, 0700); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to create credential directory: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch credential directory: %w", err)
	}

	s.wg.Add(1)
	go s.run()

	return s, nil
}

// Path returns the credential file location.
func (s *Store) Path() string {
	return s.file
}

// Load returns the current credential record.
// Returns [shared.ErrNotAuthorized] when no usable record exists.
func (s *Store) Load() (*Credentials, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.creds == nil {
		return nil, fmt.Errorf("%w: no credential file at %s", shared.ErrNotAuthorized, s.file)
	}

	copied := *s.creds
	copied.Scopes = append([]string(nil), s.creds.Scopes...)
	return &copied, nil
}

// Save writes the record to disk with 0600 permissions and updates the
// in-memory copy. Write failures propagate; a freshly minted token must
// never be dropped silently.
func (s *Store) Save(creds *Credentials) error {
	data, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal credentials: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.file), 0700); err != nil {
		return fmt.Errorf("failed to create credential directory: %w", err)
	}

	if err := os.WriteFile(s.file, data, 0600); err != nil {
		return fmt.Errorf("failed to write credentials: %w", err)
	}

	s.mu.Lock()
	copied := *creds
	copied.Scopes = append([]string(nil), creds.Scopes...)
	s.creds = &copied
	s.mu.Unlock()

	return nil
}

// Delete removes the credential file. Used on explicit revocation only.
func (s *Store) Delete() error {
	if err := os.Remove(s.file); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove credentials: %w", err)
	}

	s.mu.Lock()
	s.creds = nil
	s.mu.Unlock()

	return nil
}

// Close stops the file watcher and releases resources.
func (s *Store) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)

		s.reloadMu.Lock()
		if s.reloadTimer != nil {
			s.reloadTimer.Stop()
			s.reloadTimer = nil
		}
		s.reloadMu.Unlock()

		if s.watcher != nil {
			s.closeErr = s.watcher.Close()
		}
		s.wg.Wait()
	})
	return s.closeErr
}

func (s *Store) run() {
	defer s.wg.Done()

	for {
		select {
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			s.handleEvent(event)
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.logger.Warn("credential watcher error", "error", err)
		case <-s.done:
			return
		}
	}
}

func (s *Store) handleEvent(event fsnotify.Event) {
	if filepath.Clean(event.Name) != s.file {
		return
	}

	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0 {
		s.scheduleReload()
	}
}

func (s *Store) scheduleReload() {
	select {
	case <-s.done:
		return
	default:
	}

	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	if s.reloadTimer != nil {
		s.reloadTimer.Stop()
	}

	s.reloadTimer = time.AfterFunc(reloadDelay, func() {
		if err := s.reload(); err != nil {
			s.logger.Warn("credential reload failed", "error", err)
		}

		s.reloadMu.Lock()
		s.reloadTimer = nil
		s.reloadMu.Unlock()
	})
}

// reload reads the credential file into memory. A missing or corrupt
// file leaves the store in the unauthorized state.
func (s *Store) reload() error {
	data, err := os.ReadFile(s.file)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.mu.Lock()
			s.creds = nil
			s.mu.Unlock()
			return nil
		}
		return fmt.Errorf("failed to read credentials: %w", err)
	}

	var creds Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		s.logger.Warn("credential file is corrupt, treating as unauthorized", "path", s.file, "error", err)
		s.mu.Lock()
		s.creds = nil
		s.mu.Unlock()
		return nil
	}

	s.mu.Lock()
	s.creds = &creds
	s.mu.Unlock()

	return nil
}
