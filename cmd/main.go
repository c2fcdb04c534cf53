package main

import (
	"context"
	"errors"
	"os"

	"github.com/tapdeck/tapdeck/internal/shared"
	"github.com/urfave/cli/v3"
)

func main() {
	logger := shared.NewLogger(nil)

	config := shared.DefaultConfig()
	if _, err := os.Stat("config.toml"); err == nil {
		if loadedConfig, err := shared.LoadConfig("config.toml"); err == nil {
			config = loadedConfig
		}
	}

	runner := NewRunner(RunnerOpts{
		Config: config,
		Logger: logger,
	})

	app := &cli.Command{
		Name:     "tapdeck",
		Usage:    "Play Spotify albums by scanning NFC tags",
		Version:  "0.3.0",
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		if errors.Is(err, shared.ErrNotAuthorized) {
			logger.Error("not authorized: run `tapdeck auth login` first")
			os.Exit(1)
		}
		logger.Fatalf("application error: %v", err)
	}
}
