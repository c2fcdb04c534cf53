// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func configFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		Value:   "config.toml",
	}
}

// setupCommand initializes the config file and database
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "setup",
		Usage:  "Initialize configuration and database",
		Flags:  []cli.Flag{configFlag()},
		Action: r.Setup,
	}
}

// authCommand handles the OAuth2 authorization flow
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Spotify authorization",
		Commands: []*cli.Command{
			{
				Name:  "login",
				Usage: "Authorize with Spotify using OAuth2",
				Flags: []cli.Flag{
					configFlag(),
					&cli.BoolFlag{
						Name:  "manual",
						Usage: "Headless mode: paste the redirect URL instead of running a local callback server",
					},
				},
				Action: r.AuthLogin,
			},
			{
				Name:   "status",
				Usage:  "Show current authorization state",
				Flags:  []cli.Flag{configFlag()},
				Action: r.AuthStatus,
			},
			{
				Name:   "logout",
				Usage:  "Delete stored credentials",
				Flags:  []cli.Flag{configFlag()},
				Action: r.AuthLogout,
			},
		},
	}
}

// devicesCommand lists playback devices
func devicesCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "devices",
		Usage: "List available Spotify playback devices",
		Flags: []cli.Flag{
			configFlag(),
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "Pretty-print output",
				Value: true,
			},
		},
		Action: r.Devices,
	}
}

// playCommand performs a one-shot read-tag-and-play
func playCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "play",
		Usage: "Read one tag and play its album",
		Flags: []cli.Flag{
			configFlag(),
			&cli.StringFlag{
				Name:  "uri",
				Usage: "Play this album URI directly, bypassing the reader",
			},
			&cli.StringFlag{
				Name:    "device",
				Aliases: []string{"d"},
				Usage:   "Preferred playback device ID",
			},
		},
		Action: r.PlayOnce,
	}
}

// writeCommand searches for an album and writes it to a tag
func writeCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "write",
		Usage: "Search for an album and write its URI to a tag",
		ArgsUsage: "[query]",
		Flags: []cli.Flag{
			configFlag(),
			&cli.StringFlag{
				Name:  "uri",
				Usage: "Write this album URI directly, skipping search",
			},
			&cli.IntFlag{
				Name:  "select",
				Usage: "Pick result N (1-based) without the interactive picker",
			},
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of search results",
				Value: 10,
			},
		},
		Action: r.WriteTag,
	}
}

// serveCommand runs the scan loop until interrupted
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the scan loop: play an album for every tag scanned",
		Flags: []cli.Flag{
			configFlag(),
			&cli.StringFlag{
				Name:    "device",
				Aliases: []string{"d"},
				Usage:   "Preferred playback device ID",
			},
			&cli.BoolFlag{
				Name:  "no-history",
				Usage: "Skip recording scans to the history database",
			},
		},
		Action: r.Serve,
	}
}

// historyCommand lists recorded scans and written tags
func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Show scan history",
		Flags: []cli.Flag{
			configFlag(),
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of entries",
				Value: 20,
			},
			&cli.BoolFlag{
				Name:  "failed",
				Usage: "Only show failed scans",
			},
			&cli.BoolFlag{
				Name:  "tags",
				Usage: "List the written tag library instead of scans",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.History,
	}
}
