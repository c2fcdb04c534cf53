package main

import (
	"context"
	"fmt"

	"github.com/tapdeck/tapdeck/internal/models"
	"github.com/tapdeck/tapdeck/internal/reader"
	"github.com/tapdeck/tapdeck/internal/repositories"
	"github.com/tapdeck/tapdeck/internal/shared"
	"github.com/tapdeck/tapdeck/internal/spotify"
	"github.com/tapdeck/tapdeck/internal/tags"
	"github.com/tapdeck/tapdeck/internal/ui"
	"github.com/urfave/cli/v3"
)

// WriteTag searches for an album, lets the operator pick one, and
// writes the canonical URI to a tag. The written tag is recorded in the
// library so history can show it later.
func (r *Runner) WriteTag(ctx context.Context, cmd *cli.Command) error {
	r.loadConfig(cmd)

	if err := r.connect(); err != nil {
		return err
	}

	album, err := r.resolveAlbum(ctx, cmd)
	if err != nil {
		return err
	}
	if album == nil {
		r.writePlain("Cancelled.\n")
		return nil
	}

	payload, err := tags.Serialize(album.URI)
	if err != nil {
		return err
	}

	tagReader, err := reader.Detect(r.config.Reader, r.logger)
	if err != nil {
		return err
	}
	defer tagReader.Close()

	r.writePlain("→ Hold a tag to the reader to write:\n")
	r.writePlain("  %s — %s\n  %s\n", album.Name, album.ArtistNames(), payload)

	if err := tagReader.Write(ctx, payload); err != nil {
		return err
	}

	r.writePlainln("✓ Tag written")

	if err := r.recordTag(payload, album); err != nil {
		r.logger.Warn("could not record tag in library", "error", err)
	}

	return nil
}

// resolveAlbum picks the album to write: --uri directly, or a search
// with either the interactive picker or the --select index.
func (r *Runner) resolveAlbum(ctx context.Context, cmd *cli.Command) (*spotify.Album, error) {
	if uri := cmd.String("uri"); uri != "" {
		canonical, err := tags.Normalize(uri)
		if err != nil {
			return nil, err
		}
		return r.client.Album(ctx, canonical)
	}

	query := cmd.Args().First()
	if query == "" {
		return nil, fmt.Errorf("%w: search query (or --uri)", shared.ErrMissingArgument)
	}

	albums, err := r.client.SearchAlbums(ctx, query, int(cmd.Int("limit")))
	if err != nil {
		return nil, err
	}

	if len(albums) == 0 {
		return nil, fmt.Errorf("%w: no albums matched %q", shared.ErrNotFound, query)
	}

	if pick := int(cmd.Int("select")); pick > 0 {
		if pick > len(albums) {
			return nil, fmt.Errorf("%w: --select %d but only %d results", shared.ErrInvalidArgument, pick, len(albums))
		}
		return &albums[pick-1], nil
	}

	return ui.PickAlbum(albums)
}

func (r *Runner) recordTag(uri string, album *spotify.Album) error {
	db, err := r.openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	tag := models.NewTag(uri, album.Name, album.ArtistNames())
	return repositories.NewTagRepository(db).Create(tag)
}
