// package models defines the persistent data model for scan history and the tag library
package models

import (
	"fmt"
	"time"
)

// Model defines the base interface for all persistent models.
type Model interface {
	ID() string           // ID returns the unique identifier for this model
	CreatedAt() time.Time // CreatedAt returns when this model was created
	Validate() error      // Validate checks if the model's data is valid
}

// Repository defines the interface for data access operations.
// Implementations handle database interactions for specific model types.
type Repository[T Model] interface {
	Create(model T) error                      // Create inserts a new model into the database
	Get(id string) (T, error)                  // Get retrieves a model by its ID
	List(criteria map[string]any) ([]T, error) // List retrieves all models matching the given criteria
}

// Scan statuses recorded in history.
const (
	ScanPlayed = "played"
	ScanFailed = "failed"
)

// Scan is one processed tag scan: what was read, what it resolved to,
// and whether playback started.
type Scan struct {
	id        string
	Sequence  int
	URI       string
	AlbumName string
	Artist    string
	DeviceID  string
	Status    string
	Error     string
	ScannedAt time.Time
	createdAt time.Time
}

// NewScan creates a scan record for the given canonical URI, stamped now.
func NewScan(uri, status string) *Scan {
	return &Scan{URI: uri, Status: status, ScannedAt: time.Now(), createdAt: time.Now()}
}

func (s *Scan) ID() string            { return s.id }
func (s *Scan) SetID(id string)       { s.id = id }
func (s *Scan) CreatedAt() time.Time  { return s.createdAt }
func (s *Scan) SetCreatedAt(t time.Time) { s.createdAt = t }

func (s *Scan) Validate() error {
	if s.URI == "" {
		return fmt.Errorf("scan requires a URI")
	}
	if s.Status != ScanPlayed && s.Status != ScanFailed {
		return fmt.Errorf("invalid scan status: %q", s.Status)
	}
	if s.ScannedAt.IsZero() {
		return fmt.Errorf("scan requires a timestamp")
	}
	return nil
}

// Tag is a library entry for a physical tag that was written: which
// album it plays.
type Tag struct {
	id        string
	Sequence  int
	URI       string
	AlbumName string
	Artist    string
	WrittenAt time.Time
	createdAt time.Time
}

// NewTag creates a library entry for a freshly written tag.
func NewTag(uri, albumName, artist string) *Tag {
	return &Tag{URI: uri, AlbumName: albumName, Artist: artist, WrittenAt: time.Now(), createdAt: time.Now()}
}

func (t *Tag) ID() string            { return t.id }
func (t *Tag) SetID(id string)       { t.id = id }
func (t *Tag) CreatedAt() time.Time  { return t.createdAt }
func (t *Tag) SetCreatedAt(ts time.Time) { t.createdAt = ts }

func (t *Tag) Validate() error {
	if t.URI == "" {
		return fmt.Errorf("tag requires a URI")
	}
	if t.AlbumName == "" {
		return fmt.Errorf("tag requires an album name")
	}
	return nil
}
