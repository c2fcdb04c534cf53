package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/tapdeck/tapdeck/internal/models"
	"github.com/tapdeck/tapdeck/internal/shared"
)

// TagRepository implements models.Repository[*models.Tag] for the
// library of written tags. A tag's URI is unique; re-writing the same
// album replaces the existing entry.
type TagRepository struct {
	db *sql.DB
}

// NewTagRepository creates a new TagRepository with the given database connection
func NewTagRepository(db *sql.DB) *TagRepository {
	return &TagRepository{db: db}
}

// Create inserts or replaces a tag library entry.
func (r *TagRepository) Create(tag *models.Tag) error {
	if err := tag.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	sequence, err := NextSequence(r.db, "tags")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	id := shared.GenerateID()
	tag.SetID(id)
	tag.Sequence = sequence

	query := `
		INSERT INTO tags (id, sequence, uri, album_name, artist, written_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (uri) DO UPDATE SET
			album_name = excluded.album_name,
			artist = excluded.artist,
			written_at = excluded.written_at
	`

	_, err = r.db.Exec(query, id, sequence, tag.URI, tag.AlbumName, tag.Artist, tag.WrittenAt, time.Now())
	if err != nil {
		return fmt.Errorf("failed to insert tag: %w", err)
	}

	return nil
}

// Get retrieves a tag library entry by ID.
func (r *TagRepository) Get(id string) (*models.Tag, error) {
	query := `
		SELECT id, sequence, uri, album_name, artist, written_at, created_at
		FROM tags
		WHERE id = ?
	`
	return r.scanRow(r.db.QueryRow(query, id))
}

// GetByURI retrieves a tag library entry by its canonical album URI.
func (r *TagRepository) GetByURI(uri string) (*models.Tag, error) {
	query := `
		SELECT id, sequence, uri, album_name, artist, written_at, created_at
		FROM tags
		WHERE uri = ?
	`
	return r.scanRow(r.db.QueryRow(query, uri))
}

// List retrieves tag library entries, most recently written first.
// Supported criteria: "limit".
func (r *TagRepository) List(criteria map[string]any) ([]*models.Tag, error) {
	query := `
		SELECT id, sequence, uri, album_name, artist, written_at, created_at
		FROM tags
		ORDER BY written_at DESC
	`

	args := []any{}
	if limit, ok := criteria["limit"].(int); ok && limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tags: %w", err)
	}
	defer rows.Close()

	var tagList []*models.Tag
	for rows.Next() {
		tag, err := tagFields(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan tag: %w", err)
		}
		tagList = append(tagList, tag)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return tagList, nil
}

func (r *TagRepository) scanRow(row *sql.Row) (*models.Tag, error) {
	tag, err := tagFields(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("tag not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan tag: %w", err)
	}
	return tag, nil
}

func tagFields(row rowScanner) (*models.Tag, error) {
	var (
		id        string
		sequence  int
		uri       string
		albumName string
		artist    sql.NullString
		writtenAt time.Time
		createdAt time.Time
	)

	if err := row.Scan(&id, &sequence, &uri, &albumName, &artist, &writtenAt, &createdAt); err != nil {
		return nil, err
	}

	tag := &models.Tag{
		Sequence:  sequence,
		URI:       uri,
		AlbumName: albumName,
		Artist:    artist.String,
		WrittenAt: writtenAt,
	}
	tag.SetID(id)
	tag.SetCreatedAt(createdAt)

	return tag, nil
}
