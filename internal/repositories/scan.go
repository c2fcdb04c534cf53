package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/tapdeck/tapdeck/internal/models"
	"github.com/tapdeck/tapdeck/internal/shared"
)

// ScanRepository implements models.Repository[*models.Scan] for the
// append-only scan history log.
type ScanRepository struct {
	db *sql.DB
}

// NewScanRepository creates a new ScanRepository with the given database connection
func NewScanRepository(db *sql.DB) *ScanRepository {
	return &ScanRepository{db: db}
}

// Create appends a scan record with generated ID and sequence.
func (r *ScanRepository) Create(scan *models.Scan) error {
	if err := scan.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	sequence, err := NextSequence(r.db, "scans")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	id := shared.GenerateID()
	scan.SetID(id)
	scan.Sequence = sequence

	query := `
		INSERT INTO scans (
			id, sequence, uri, album_name, artist, device_id,
			status, error_message, scanned_at, created_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	var errorMessage any = scan.Error
	if scan.Error == "" {
		errorMessage = nil
	}

	_, err = r.db.Exec(query,
		id,
		sequence,
		scan.URI,
		scan.AlbumName,
		scan.Artist,
		scan.DeviceID,
		scan.Status,
		errorMessage,
		scan.ScannedAt,
		time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert scan: %w", err)
	}

	return nil
}

// Get retrieves a scan record by ID.
func (r *ScanRepository) Get(id string) (*models.Scan, error) {
	query := `
		SELECT id, sequence, uri, album_name, artist, device_id,
			status, error_message, scanned_at, created_at
		FROM scans
		WHERE id = ?
	`

	scan, err := scanScanRow(r.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("scan not found: %s", id)
	}
	return scan, err
}

// List retrieves scan records matching the given criteria, most recent
// first. Supported criteria: "status", "uri", "limit".
func (r *ScanRepository) List(criteria map[string]any) ([]*models.Scan, error) {
	query := `
		SELECT id, sequence, uri, album_name, artist, device_id,
			status, error_message, scanned_at, created_at
		FROM scans
		WHERE 1 = 1
	`

	args := []any{}

	if status, ok := criteria["status"].(string); ok && status != "" {
		query += " AND status = ?"
		args = append(args, status)
	}

	if uri, ok := criteria["uri"].(string); ok && uri != "" {
		query += " AND uri = ?"
		args = append(args, uri)
	}

	query += " ORDER BY sequence DESC"

	if limit, ok := criteria["limit"].(int); ok && limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query scans: %w", err)
	}
	defer rows.Close()

	var scans []*models.Scan
	for rows.Next() {
		scan, err := scanScanRows(rows)
		if err != nil {
			return nil, err
		}
		scans = append(scans, scan)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return scans, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFields(row rowScanner) (*models.Scan, error) {
	var (
		id           string
		sequence     int
		uri          string
		albumName    sql.NullString
		artist       sql.NullString
		deviceID     sql.NullString
		status       string
		errorMessage sql.NullString
		scannedAt    time.Time
		createdAt    time.Time
	)

	err := row.Scan(&id, &sequence, &uri, &albumName, &artist, &deviceID,
		&status, &errorMessage, &scannedAt, &createdAt)
	if err != nil {
		return nil, err
	}

	scan := &models.Scan{
		Sequence:  sequence,
		URI:       uri,
		AlbumName: albumName.String,
		Artist:    artist.String,
		DeviceID:  deviceID.String,
		Status:    status,
		Error:     errorMessage.String,
		ScannedAt: scannedAt,
	}
	scan.SetID(id)
	scan.SetCreatedAt(createdAt)

	return scan, nil
}

// scanScanRow scans a single [sql.Row] into a [models.Scan]
func scanScanRow(row *sql.Row) (*models.Scan, error) {
	scan, err := scanFields(row)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan record: %w", err)
	}
	return scan, nil
}

// scanScanRows scans a row from [sql.Rows] into a [models.Scan]
func scanScanRows(rows *sql.Rows) (*models.Scan, error) {
	scan, err := scanFields(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to scan record: %w", err)
	}
	return scan, nil
}
