package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/tapdeck/tapdeck/internal/auth"
	"github.com/tapdeck/tapdeck/internal/shared"
	"github.com/tapdeck/tapdeck/internal/spotify"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	store      *auth.Store
	authorizer *auth.Authorizer
	client     *spotify.Client
	logger     *log.Logger
	output     io.Writer
	input      io.Reader
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	Store      *auth.Store
	Authorizer *auth.Authorizer
	Client     *spotify.Client
	Logger     *log.Logger
	Output     io.Writer
	Input      io.Reader
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.Input == nil {
		opts.Input = os.Stdin
	}

	return &Runner{
		config:     opts.Config,
		store:      opts.Store,
		authorizer: opts.Authorizer,
		client:     opts.Client,
		logger:     opts.Logger,
		output:     opts.Output,
		input:      opts.Input,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, devicesCommand, playCommand, writeCommand, serveCommand, historyCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// loadConfig reads the configuration file named by the command's
// --config flag, falling back to embedded defaults.
func (r *Runner) loadConfig(cmd *cli.Command) {
	configPath := cmd.String("config")
	if configPath == "" {
		return
	}

	if _, err := os.Stat(configPath); err != nil {
		return
	}

	config, err := shared.LoadConfig(configPath)
	if err != nil {
		r.logger.Warnf("failed to load config, using defaults %v", err)
		return
	}

	r.config = config
}

// connect wires the credential store, authorizer, and playback client.
// Fatal configuration problems (missing client credentials) surface here,
// once, at command start.
func (r *Runner) connect() error {
	if r.client != nil {
		return nil
	}

	if r.config.Credentials.Spotify.ClientID == "" || r.config.Credentials.Spotify.ClientSecret == "" {
		return fmt.Errorf("%w: Spotify client_id and client_secret must be set in config.toml", shared.ErrMissingCredentials)
	}

	if r.store == nil {
		store, err := auth.NewStore(r.config.Storage.CredentialsPath, r.logger)
		if err != nil {
			return fmt.Errorf("failed to open credential store: %w", err)
		}
		r.store = store
	}

	if r.authorizer == nil {
		authorizer, err := auth.NewAuthorizer(r.config.Credentials.Spotify.Map(), r.store, r.logger)
		if err != nil {
			return err
		}
		r.authorizer = authorizer
	}

	r.client = spotify.NewClient(r.authorizer, r.logger)
	return nil
}

// openDatabase opens the configured SQLite database, creating its
// parent directory on first use.
func (r *Runner) openDatabase() (*sql.DB, error) {
	path := shared.ExpandPath(r.config.Storage.DatabasePath)

	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := shared.NewDatabase(path)
	if err != nil {
		return nil, err
	}

	shared.ConfigureDatabase(db, r.config.Storage.MaxOpenConns, r.config.Storage.MaxIdleConns)
	return db, nil
}

// debounce returns the configured debounce window.
func (r *Runner) debounce() time.Duration {
	if r.config.Playback.DebounceSeconds > 0 {
		return time.Duration(r.config.Playback.DebounceSeconds) * time.Second
	}
	return 3 * time.Second
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
