package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/tapdeck/tapdeck/internal/reader"
	"github.com/tapdeck/tapdeck/internal/repositories"
	"github.com/tapdeck/tapdeck/internal/scanner"
	"github.com/tapdeck/tapdeck/internal/shared"
	"github.com/urfave/cli/v3"
)

// Serve runs the scan loop until interrupted: every tag held to the
// reader starts playback of its album.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	r.loadConfig(cmd)

	if err := r.connect(); err != nil {
		return err
	}

	tagReader, err := reader.Detect(r.config.Reader, r.logger)
	if err != nil {
		return err
	}
	defer tagReader.Close()

	var history scanner.History
	if !cmd.Bool("no-history") {
		db, err := r.openDatabase()
		if err != nil {
			return err
		}
		defer db.Close()

		if err := shared.RunMigrations(db); err != nil {
			return err
		}

		history = repositories.NewScanRepository(db)
	}

	preferred := cmd.String("device")
	if preferred == "" {
		preferred = r.config.Playback.DeviceID
	}

	loop := scanner.NewLoop(scanner.Opts{
		Reader:          tagReader,
		Player:          r.client,
		History:         history,
		Logger:          r.logger,
		PreferredDevice: preferred,
		Debounce:        r.debounce(),
	})

	runCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	r.writePlainHeader("TAPDECK")
	r.writePlain("Hold a tag to the reader to play an album.\n")
	r.writePlain("Press Ctrl+C to stop.\n\n")

	stats := loop.Run(runCtx)

	r.writePlainln("Session summary")
	r.writePlain("  Scans:    %d\n", stats.Scans)
	r.writePlain("  Played:   %d\n", stats.Played)
	r.writePlain("  Failures: %d\n", stats.Failures)

	return nil
}
