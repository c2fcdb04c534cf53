package repositories

import (
	"database/sql"
	"testing"
	"time"

	"github.com/tapdeck/tapdeck/internal/models"
	"github.com/tapdeck/tapdeck/internal/shared"
)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := shared.RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	return db
}

const testURI = "spotify:album:0ETFjACtuP2ADo6LFhL6HN"

func TestScanRepository(t *testing.T) {
	t.Run("Create", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewScanRepository(db)

		scan := models.NewScan(testURI, models.ScanPlayed)
		scan.AlbumName = "Kind of Blue"
		scan.Artist = "Miles Davis"
		scan.DeviceID = "device-1"

		if err := repo.Create(scan); err != nil {
			t.Fatalf("failed to create scan: %v", err)
		}

		if scan.ID() == "" {
			t.Error("scan ID should be set after creation")
		}
		if scan.Sequence != 1 {
			t.Errorf("expected sequence 1, got %d", scan.Sequence)
		}
	})

	t.Run("Create Rejects Invalid Status", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewScanRepository(db)

		scan := models.NewScan(testURI, "skipped")
		if err := repo.Create(scan); err == nil {
			t.Error("expected validation error for unknown status")
		}
	})

	t.Run("Get", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewScanRepository(db)

		scan := models.NewScan(testURI, models.ScanFailed)
		scan.Error = "no playback device available"
		if err := repo.Create(scan); err != nil {
			t.Fatalf("failed to create scan: %v", err)
		}

		got, err := repo.Get(scan.ID())
		if err != nil {
			t.Fatalf("failed to get scan: %v", err)
		}

		if got.URI != testURI || got.Status != models.ScanFailed {
			t.Errorf("unexpected scan: %+v", got)
		}
		if got.Error != "no playback device available" {
			t.Errorf("expected error message to round trip, got %q", got.Error)
		}
	})

	t.Run("Get Missing", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewScanRepository(db)

		if _, err := repo.Get("nonexistent"); err == nil {
			t.Error("expected error for missing scan")
		}
	})

	t.Run("List Most Recent First", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewScanRepository(db)

		for i := 0; i < 3; i++ {
			if err := repo.Create(models.NewScan(testURI, models.ScanPlayed)); err != nil {
				t.Fatalf("failed to create scan: %v", err)
			}
		}

		scans, err := repo.List(map[string]any{})
		if err != nil {
			t.Fatalf("failed to list scans: %v", err)
		}

		if len(scans) != 3 {
			t.Fatalf("expected 3 scans, got %d", len(scans))
		}
		if scans[0].Sequence != 3 || scans[2].Sequence != 1 {
			t.Errorf("expected descending sequence, got %d..%d", scans[0].Sequence, scans[2].Sequence)
		}
	})

	t.Run("List By Status", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewScanRepository(db)

		repo.Create(models.NewScan(testURI, models.ScanPlayed))
		failed := models.NewScan(testURI, models.ScanFailed)
		failed.Error = "transient API failure"
		repo.Create(failed)

		scans, err := repo.List(map[string]any{"status": models.ScanFailed})
		if err != nil {
			t.Fatalf("failed to list scans: %v", err)
		}

		if len(scans) != 1 || scans[0].Status != models.ScanFailed {
			t.Errorf("expected only the failed scan, got %+v", scans)
		}
	})

	t.Run("List With Limit", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewScanRepository(db)

		for i := 0; i < 5; i++ {
			repo.Create(models.NewScan(testURI, models.ScanPlayed))
		}

		scans, err := repo.List(map[string]any{"limit": 2})
		if err != nil {
			t.Fatalf("failed to list scans: %v", err)
		}
		if len(scans) != 2 {
			t.Errorf("expected 2 scans, got %d", len(scans))
		}
	})
}

func TestTagRepository(t *testing.T) {
	t.Run("Create And Get", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewTagRepository(db)

		tag := models.NewTag(testURI, "Kind of Blue", "Miles Davis")
		if err := repo.Create(tag); err != nil {
			t.Fatalf("failed to create tag: %v", err)
		}

		got, err := repo.Get(tag.ID())
		if err != nil {
			t.Fatalf("failed to get tag: %v", err)
		}
		if got.AlbumName != "Kind of Blue" || got.Artist != "Miles Davis" {
			t.Errorf("unexpected tag: %+v", got)
		}
	})

	t.Run("Create Requires Album Name", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewTagRepository(db)

		if err := repo.Create(models.NewTag(testURI, "", "")); err == nil {
			t.Error("expected validation error for missing album name")
		}
	})

	t.Run("Rewrite Replaces Entry", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewTagRepository(db)

		first := models.NewTag(testURI, "Old Name", "Old Artist")
		if err := repo.Create(first); err != nil {
			t.Fatalf("failed to create tag: %v", err)
		}

		second := models.NewTag(testURI, "New Name", "New Artist")
		second.WrittenAt = time.Now().Add(time.Minute)
		if err := repo.Create(second); err != nil {
			t.Fatalf("failed to rewrite tag: %v", err)
		}

		got, err := repo.GetByURI(testURI)
		if err != nil {
			t.Fatalf("failed to get tag by URI: %v", err)
		}
		if got.AlbumName != "New Name" {
			t.Errorf("expected the rewrite to win, got %q", got.AlbumName)
		}

		all, err := repo.List(map[string]any{})
		if err != nil {
			t.Fatalf("failed to list tags: %v", err)
		}
		if len(all) != 1 {
			t.Errorf("expected one entry per URI, got %d", len(all))
		}
	})

	t.Run("GetByURI Missing", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewTagRepository(db)

		if _, err := repo.GetByURI("spotify:album:missing"); err == nil {
			t.Error("expected error for missing tag")
		}
	})

	t.Run("List With Limit", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewTagRepository(db)

		uris := []string{
			"spotify:album:1111111111111111111111",
			"spotify:album:2222222222222222222222",
			"spotify:album:3333333333333333333333",
		}
		for i, uri := range uris {
			tag := models.NewTag(uri, "Album", "Artist")
			tag.WrittenAt = time.Now().Add(time.Duration(i) * time.Minute)
			if err := repo.Create(tag); err != nil {
				t.Fatalf("failed to create tag: %v", err)
			}
		}

		tagList, err := repo.List(map[string]any{"limit": 2})
		if err != nil {
			t.Fatalf("failed to list tags: %v", err)
		}
		if len(tagList) != 2 {
			t.Fatalf("expected 2 tags, got %d", len(tagList))
		}
		if tagList[0].URI != uris[2] {
			t.Errorf("expected most recently written first, got %s", tagList[0].URI)
		}
	})
}

func TestNextSequence(t *testing.T) {
	db := setupTestDB(t)

	for want := 1; want <= 3; want++ {
		got, err := NextSequence(db, "scans")
		if err != nil {
			t.Fatalf("failed to get sequence: %v", err)
		}
		if got != want {
			t.Errorf("expected sequence %d, got %d", want, got)
		}
	}

	// Tables keep independent counters.
	got, err := NextSequence(db, "tags")
	if err != nil {
		t.Fatalf("failed to get tag sequence: %v", err)
	}
	if got != 1 {
		t.Errorf("expected independent counter starting at 1, got %d", got)
	}
}
