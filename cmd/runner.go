package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/mixtape/internal/catalog"
	"github.com/desertthunder/mixtape/internal/chat"
	"github.com/desertthunder/mixtape/internal/curated"
	"github.com/desertthunder/mixtape/internal/intents"
	"github.com/desertthunder/mixtape/internal/llm"
	"github.com/desertthunder/mixtape/internal/shared"
	"github.com/desertthunder/mixtape/internal/store"
	"github.com/desertthunder/mixtape/internal/verify"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config       *shared.Config
	catalog      *catalog.Client
	model        *llm.Client
	cache        *curated.Cache
	verifier     *verify.Engine
	orchestrator *chat.Orchestrator
	sessions     store.SessionStore
	threads      store.ThreadStore
	logger       *log.Logger
	output       io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config   *shared.Config
	Catalog  *catalog.Client
	Model    *llm.Client
	Cache    *curated.Cache
	Sessions store.SessionStore
	Threads  store.ThreadStore
	Logger   *log.Logger
	Output   io.Writer
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
	if opts.Catalog == nil {
		opts.Catalog = catalog.NewClient(catalog.Opts{
			ClientID:     opts.Config.Credentials.Spotify.ClientID,
			ClientSecret: opts.Config.Credentials.Spotify.ClientSecret,
			Logger:       opts.Logger,
		})
	}
	if opts.Model == nil {
		opts.Model = llm.NewClient(llm.Opts{
			APIKey:  opts.Config.Credentials.OpenAI.APIKey,
			BaseURL: opts.Config.Credentials.OpenAI.BaseURL,
			Model:   opts.Config.Credentials.OpenAI.Model,
			Logger:  opts.Logger,
		})
	}
	if opts.Cache == nil {
		ttl := time.Duration(opts.Config.Cache.TTLHours) * time.Hour
		opts.Cache = curated.New(opts.Config.Cache.Path, ttl, opts.Config.Cache.Curators, opts.Logger)
	}
	if opts.Sessions == nil {
		opts.Sessions = store.NewMemorySessionStore()
	}
	if opts.Threads == nil {
		opts.Threads = store.NewMemoryThreadStore()
	}

	r := &Runner{
		config:   opts.Config,
		catalog:  opts.Catalog,
		model:    opts.Model,
		cache:    opts.Cache,
		verifier: verify.NewEngine(opts.Catalog, opts.Logger),
		sessions: opts.Sessions,
		threads:  opts.Threads,
		logger:   opts.Logger,
		output:   opts.Output,
	}
	r.orchestrator = r.buildOrchestrator(opts.Threads)
	return r
}

// buildOrchestrator wires a turn orchestrator around the given thread store.
// Serve rebuilds the orchestrator when it selects database-backed stores.
func (r *Runner) buildOrchestrator(threads store.ThreadStore) *chat.Orchestrator {
	classifier := intents.NewClassifier(r.model, r.config.Intents.ConfidenceThreshold, r.logger)
	return chat.NewOrchestrator(chat.Opts{
		Caller:     r.model,
		Classifier: classifier,
		Registry:   intents.NewRegistry(r.logger),
		Sources:    intents.Sources{Catalog: r.catalog, Cache: r.cache},
		Threads:    threads,
		Model:      r.config.Credentials.OpenAI.Model,
		Logger:     r.logger,
	})
}

// openStores selects the persistence layer. A file-backed database path
// migrates the schema and returns sqlite stores plus a close func; otherwise
// the runner's default stores are returned.
func (r *Runner) openStores() (store.SessionStore, store.ThreadStore, func() error, error) {
	path := r.config.Database.Path
	if path == "" || path == ":memory:" {
		return r.sessions, r.threads, func() error { return nil }, nil
	}

	db, err := shared.NewDatabase(path)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)
	if err := store.Migrate(db); err != nil {
		db.Close()
		return nil, nil, nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store.NewSQLiteSessionStore(db), store.NewSQLiteThreadStore(db), db.Close, nil
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, serveCommand, chatCommand, verifyCommand, cacheCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
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
	text := fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
