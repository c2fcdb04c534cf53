package main

import (
	"context"
	"database/sql"
	"time"

	"github.com/tapdeck/tapdeck/internal/models"
	"github.com/tapdeck/tapdeck/internal/repositories"
	"github.com/urfave/cli/v3"
)

// scanEntry and tagEntry shape history rows for JSON output.
type scanEntry struct {
	Sequence  int       `json:"sequence"`
	URI       string    `json:"uri"`
	AlbumName string    `json:"album_name,omitempty"`
	Artist    string    `json:"artist,omitempty"`
	DeviceID  string    `json:"device_id,omitempty"`
	Status    string    `json:"status"`
	Error     string    `json:"error,omitempty"`
	ScannedAt time.Time `json:"scanned_at"`
}

type tagEntry struct {
	Sequence  int       `json:"sequence"`
	URI       string    `json:"uri"`
	AlbumName string    `json:"album_name"`
	Artist    string    `json:"artist,omitempty"`
	WrittenAt time.Time `json:"written_at"`
}

// History lists recorded scans, or the written tag library with --tags.
func (r *Runner) History(ctx context.Context, cmd *cli.Command) error {
	r.loadConfig(cmd)

	db, err := r.openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	if cmd.Bool("tags") {
		return r.listTags(db, cmd)
	}
	return r.listScans(db, cmd)
}

func (r *Runner) listScans(db *sql.DB, cmd *cli.Command) error {
	criteria := map[string]any{"limit": int(cmd.Int("limit"))}
	if cmd.Bool("failed") {
		criteria["status"] = models.ScanFailed
	}

	scans, err := repositories.NewScanRepository(db).List(criteria)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		entries := make([]scanEntry, 0, len(scans))
		for _, scan := range scans {
			entries = append(entries, scanEntry{
				Sequence:  scan.Sequence,
				URI:       scan.URI,
				AlbumName: scan.AlbumName,
				Artist:    scan.Artist,
				DeviceID:  scan.DeviceID,
				Status:    scan.Status,
				Error:     scan.Error,
				ScannedAt: scan.ScannedAt,
			})
		}
		return r.writeJSON(entries, true)
	}

	if len(scans) == 0 {
		r.writePlain("No scans recorded yet.\n")
		return nil
	}

	r.writePlainHeader("SCAN HISTORY")
	for _, scan := range scans {
		marker := "✓"
		if scan.Status == models.ScanFailed {
			marker = "✗"
		}

		title := scan.URI
		if scan.AlbumName != "" {
			title = scan.AlbumName + " — " + scan.Artist
		}

		r.writePlain("%s #%d %s\n    %s", marker, scan.Sequence, title, scan.ScannedAt.Format(time.RFC1123))
		if scan.Error != "" {
			r.writePlain("  (%s)", scan.Error)
		}
		r.writePlain("\n")
	}

	return nil
}

func (r *Runner) listTags(db *sql.DB, cmd *cli.Command) error {
	tags, err := repositories.NewTagRepository(db).List(map[string]any{"limit": int(cmd.Int("limit"))})
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		entries := make([]tagEntry, 0, len(tags))
		for _, tag := range tags {
			entries = append(entries, tagEntry{
				Sequence:  tag.Sequence,
				URI:       tag.URI,
				AlbumName: tag.AlbumName,
				Artist:    tag.Artist,
				WrittenAt: tag.WrittenAt,
			})
		}
		return r.writeJSON(entries, true)
	}

	if len(tags) == 0 {
		r.writePlain("No tags written yet.\n")
		return nil
	}

	r.writePlainHeader("TAG LIBRARY")
	for _, tag := range tags {
		r.writePlain("#%d %s — %s\n    %s\n    written %s\n", tag.Sequence, tag.AlbumName, tag.Artist, tag.URI, tag.WrittenAt.Format(time.RFC1123))
	}

	return nil
}
