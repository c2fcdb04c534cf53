package main

import (
	"context"

	"github.com/urfave/cli/v3"
)

// Devices lists the playback devices visible to the account.
func (r *Runner) Devices(ctx context.Context, cmd *cli.Command) error {
	r.loadConfig(cmd)

	if err := r.connect(); err != nil {
		return err
	}

	devices, err := r.client.Devices(ctx)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(devices, cmd.Bool("pretty"))
	}

	if len(devices) == 0 {
		r.writePlain("No devices found. Open Spotify on a device and try again.\n")
		return nil
	}

	r.writePlainHeader("PLAYBACK DEVICES")
	for _, device := range devices {
		marker := " "
		if device.IsActive {
			marker = "▶"
		}
		r.writePlain("%s %s (%s)\n    id: %s\n", marker, device.Name, device.Type, device.ID)
	}

	return nil
}
