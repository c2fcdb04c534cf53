package main

import (
	"context"

	"github.com/tapdeck/tapdeck/internal/reader"
	"github.com/tapdeck/tapdeck/internal/spotify"
	"github.com/tapdeck/tapdeck/internal/tags"
	"github.com/urfave/cli/v3"
)

// PlayOnce reads a single tag (or takes --uri) and starts album
// playback, printing each step as it completes.
func (r *Runner) PlayOnce(ctx context.Context, cmd *cli.Command) error {
	r.loadConfig(cmd)

	if err := r.connect(); err != nil {
		return err
	}

	payload := cmd.String("uri")
	if payload == "" {
		tagReader, err := reader.Detect(r.config.Reader, r.logger)
		if err != nil {
			return err
		}
		defer tagReader.Close()

		r.writePlain("→ Hold a tag to the reader...\n")
		payload, err = tagReader.Read(ctx)
		if err != nil {
			return err
		}
	}

	uri, err := tags.Normalize(payload)
	if err != nil {
		return err
	}
	r.writePlain("✓ Tag: %s\n", uri)

	album, err := r.client.Album(ctx, uri)
	if err != nil {
		return err
	}
	r.writePlain("✓ Album: %s — %s\n", album.Name, album.ArtistNames())

	devices, err := r.client.Devices(ctx)
	if err != nil {
		return err
	}

	preferred := cmd.String("device")
	if preferred == "" {
		preferred = r.config.Playback.DeviceID
	}

	device, err := spotify.SelectDevice(devices, preferred)
	if err != nil {
		return err
	}
	r.writePlain("✓ Device: %s (%s)\n", device.Name, device.Type)

	if err := r.client.Play(ctx, device.ID, uri); err != nil {
		return err
	}

	r.writePlainln("▶ Playing")
	return nil
}
