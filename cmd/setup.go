package main

import (
	"context"
	"os"

	"github.com/tapdeck/tapdeck/internal/shared"
	"github.com/urfave/cli/v3"
)

// Setup creates the configuration file if it is missing, opens the
// database, and runs pending migrations.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := shared.CreateConfigFile(configPath); err != nil {
			return err
		}
		r.writePlain("✓ Created %s\n", configPath)
		r.writePlain("  Edit it to add your Spotify client_id and client_secret.\n")
	} else {
		r.writePlain("✓ Config file %s already exists\n", configPath)
	}

	r.loadConfig(cmd)

	db, err := r.openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	if err := shared.RunMigrations(db); err != nil {
		return err
	}

	r.writePlain("✓ Database ready at %s\n", shared.ExpandPath(r.config.Storage.DatabasePath))
	r.writePlain("\nNext: tapdeck auth login\n")

	return nil
}
