package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/crate/internal/library"
	"github.com/desertthunder/crate/internal/models"
	"github.com/desertthunder/crate/internal/repositories"
	"github.com/desertthunder/crate/internal/services"
	"github.com/desertthunder/crate/internal/shared"
	"github.com/desertthunder/crate/internal/storage"
	"github.com/desertthunder/crate/internal/tasks"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// The remote session, snapshot store and database are opened on first use, so commands that never touch them
// work without credentials.
type Runner struct {
	config     *shared.Config
	configPath string
	configured bool
	remote     services.Remote
	spotify    *services.SpotifyService
	store      storage.KeyValueStore
	db         *sql.DB
	ownsDB     bool
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
	rng        *rand.Rand
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	// Remote replaces the Spotify session built from the stored token.
	Remote services.Remote
	// Store replaces the snapshot store selected by the cache backend.
	Store storage.KeyValueStore
	// DB replaces the database opened from the configured path. The caller keeps ownership.
	DB         *sql.DB
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
	Rand       *rand.Rand
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	configured := opts.Config != nil
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		configured: configured,
		remote:     opts.Remote,
		store:      opts.Store,
		db:         opts.DB,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
		rng:        opts.Rand,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, cacheCommand, playlistCommand, historyCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// SetLogger replaces the runner's logger.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
}

// Close releases the database when the runner opened it.
func (r *Runner) Close() error {
	if r.db != nil && r.ownsDB {
		return r.db.Close()
	}
	return nil
}

// loadConfig runs before every command. An explicit --config always wins over a config passed to [NewRunner].
func (r *Runner) loadConfig(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if cmd.Bool("verbose") {
		shared.SetLogLevel(r.logger, log.DebugLevel)
	}

	if r.configured && !cmd.IsSet("config") {
		return ctx, nil
	}

	path := cmd.String("config")
	r.configPath = path
	if _, err := os.Stat(path); err != nil {
		r.logger.Debug("config file not found, using defaults", "path", path)
		return ctx, nil
	}

	config, err := shared.LoadConfig(path)
	if err != nil {
		return ctx, err
	}
	r.config = config
	r.configured = true
	r.logger.Debug("loaded config", "path", path)
	return ctx, nil
}

// database opens and migrates the configured database.
func (r *Runner) database() (*sql.DB, error) {
	if r.db != nil {
		return r.db, nil
	}

	db, err := shared.NewDatabase(r.config.Database.Location())
	if err != nil {
		return nil, err
	}
	shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	r.db, r.ownsDB = db, true
	return db, nil
}

// snapshots returns the store selected by the cache backend.
func (r *Runner) snapshots() (storage.KeyValueStore, error) {
	if r.store != nil {
		return r.store, nil
	}

	switch r.config.Cache.Backend {
	case shared.CacheBackendSQLite:
		db, err := r.database()
		if err != nil {
			return nil, err
		}
		r.store = storage.NewSQLiteStore(db)
	default:
		store, err := storage.NewFileStore(r.config.Cache.Directory())
		if err != nil {
			return nil, err
		}
		r.store = store
	}
	return r.store, nil
}

func (r *Runner) cache() (*library.Cache, error) {
	store, err := r.snapshots()
	if err != nil {
		return nil, err
	}
	return library.NewCache(store, library.CacheOpts{
		TracksKey: r.config.Cache.TracksKey,
		AlbumsKey: r.config.Cache.AlbumsKey,
		Logger:    shared.WithLogger(r.logger, "component", "cache"),
	}), nil
}

// connect returns the remote session, building a Spotify client from the stored token on first use.
func (r *Runner) connect(ctx context.Context) (services.Remote, error) {
	if r.remote != nil {
		return r.remote, nil
	}

	creds := r.config.Credentials.Spotify
	token := creds.Token()
	if token == nil {
		return nil, fmt.Errorf("%w: run 'crate auth login' first", shared.ErrNotAuthenticated)
	}

	auth, err := services.NewAuthenticator(creds.Map())
	if err != nil {
		return nil, err
	}

	clientCtx := context.WithValue(context.Background(), oauth2.HTTPClient, r.httpClient)
	r.spotify = services.NewSpotifyService(auth.Client(clientCtx, token), services.SpotifyOpts{
		Limiter: services.NewLimiter(r.config.Remote.RequestsPerSecond, r.config.Remote.Burst),
		Logger:  shared.WithLogger(r.logger, "component", "spotify"),
	})
	r.remote = r.spotify
	return r.remote, nil
}

// engine builds a sync engine reporting to progress, which may be nil.
func (r *Runner) engine(ctx context.Context, progress chan<- tasks.ProgressUpdate) (*tasks.Engine, *library.Cache, error) {
	remote, err := r.connect(ctx)
	if err != nil {
		return nil, nil, err
	}
	cache, err := r.cache()
	if err != nil {
		return nil, nil, err
	}

	engine := tasks.NewEngine(remote, cache, tasks.Opts{
		Logger:   shared.WithLogger(r.logger, "component", "engine"),
		Progress: progress,
		Rand:     r.rng,
	})
	return engine, cache, nil
}

// history returns the sync run repository.
func (r *Runner) history() (*repositories.SyncRunRepository, error) {
	db, err := r.database()
	if err != nil {
		return nil, err
	}
	return repositories.NewSyncRunRepository(db), nil
}

// record runs fn and stores its outcome as a [models.SyncRun]. History failures are logged and never fail fn.
func (r *Runner) record(ctx context.Context, operation, playlistID string, fn func() (tasks.SyncResult, error)) (tasks.SyncResult, error) {
	repo, err := r.history()
	if err != nil {
		r.logger.Warn("sync history unavailable", "error", err)
		return fn()
	}

	run := models.NewSyncRun(0, operation, playlistID)
	if err := repo.CreateContext(ctx, run); err != nil {
		r.logger.Warn("failed to record sync run", "operation", operation, "error", err)
		return fn()
	}

	res, runErr := fn()
	run.Finish(res.Added, res.Removed, runErr)
	if err := repo.UpdateContext(ctx, run); err != nil {
		r.logger.Warn("failed to finish sync run", "id", run.ID(), "error", err)
	}
	return res, runErr
}

// persistToken writes back a token the oauth2 transport refreshed during the command.
func (r *Runner) persistToken() {
	if r.spotify == nil {
		return
	}

	token, err := r.spotify.Token()
	if err != nil {
		r.logger.Debug("no token to persist", "error", err)
		return
	}
	if token.AccessToken == r.config.Credentials.Spotify.AccessToken {
		return
	}

	if err := r.saveToken(token); err != nil {
		r.logger.Warn("failed to persist refreshed token", "error", err)
	}
}

// saveToken stores token in the config and writes it to the config path when one is known.
func (r *Runner) saveToken(token *oauth2.Token) error {
	if r.config == nil {
		return fmt.Errorf("%w: config is nil", shared.ErrMissingConfig)
	}

	if err := r.config.Credentials.Spotify.Update(token); err != nil {
		return fmt.Errorf("failed to update spotify configuration: %w", err)
	}

	if r.configPath == "" {
		return nil
	}

	if err := shared.SaveConfig(r.configPath, r.config); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	return nil
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
