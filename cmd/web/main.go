package main

import (
	"context"
	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
	"github.com/joho/godotenv"
	"github.com/myrjola/chronicler/internal/ai"
	"github.com/myrjola/chronicler/internal/broker"
	"github.com/myrjola/chronicler/internal/envstruct"
	"github.com/myrjola/chronicler/internal/errors"
	"github.com/myrjola/chronicler/internal/intelligence"
	"github.com/myrjola/chronicler/internal/logging"
	"github.com/myrjola/chronicler/internal/notes"
	"github.com/myrjola/chronicler/internal/pprofserver"
	"github.com/myrjola/chronicler/internal/repositories"
	"github.com/myrjola/chronicler/internal/review"
	"github.com/myrjola/chronicler/internal/sqlite"
	"log/slog"
	"net/http"
	"os"
	"time"
)

type application struct {
	logger         *slog.Logger
	intelligence   *intelligence.Service
	reviews        *review.Tracker
	sessions       *repositories.SessionRepository
	sessionManager *scs.SessionManager
	expansions     *expansionStreams
	modelTimeout   time.Duration
}

type config struct {
	// Addr is the address to listen on. It's possible to choose the address dynamically with localhost:0.
	Addr string `env:"CHRONICLER_ADDR" envDefault:"localhost:4000"`
	// SqliteURL is the URL to the SQLite database. You can use ":memory:" for an ethereal in-memory database.
	SqliteURL string `env:"CHRONICLER_SQLITE_URL" envDefault:"./chronicler.sqlite"`
	// PprofAddr is the loopback address of the pprof server. Empty disables it.
	PprofAddr string `env:"CHRONICLER_PPROF_ADDR" envDefault:"localhost:6060"`
	// ModelTimeout bounds every model call.
	ModelTimeout time.Duration `env:"CHRONICLER_MODEL_TIMEOUT" envDefault:"90s"`
}

func run(ctx context.Context, logger *slog.Logger, lookupEnv func(string) (string, bool)) error {
	var (
		err       error
		cfg       config
		aiCfg     ai.Config
		database  *sqlite.Database
		providers *ai.Providers
		service   *intelligence.Service
	)
	if err = envstruct.Populate(&cfg, lookupEnv); err != nil {
		return errors.Wrap(err, "populate config")
	}
	if err = envstruct.Populate(&aiCfg, lookupEnv); err != nil {
		return errors.Wrap(err, "populate model provider config")
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	pprofserver.Launch(ctx, cfg.PprofAddr, logger)

	if database, err = sqlite.NewDatabase(ctx, cfg.SqliteURL, logger); err != nil {
		return errors.Wrap(err, "open database", slog.String("url", cfg.SqliteURL))
	}
	defer func() {
		if closeErr := database.Close(); closeErr != nil {
			logger.LogAttrs(ctx, slog.LevelError, "close database", errors.SlogError(closeErr))
		}
	}()
	go database.StartDatabaseOptimizer(ctx, 24*time.Hour) //nolint:mnd // once a day.

	if providers, err = ai.NewProvidersFromConfig(ctx, aiCfg, logger); err != nil {
		return errors.Wrap(err, "configure model providers")
	}
	if service, err = intelligence.New(database, providers, cfg.ModelTimeout, logger); err != nil {
		return errors.Wrap(err, "create intelligence service")
	}

	sessionStore := sqlite3store.NewWithCleanupInterval(database.ReadWrite.DB, 24*time.Hour) //nolint:mnd // 1 day.
	defer sessionStore.StopCleanup()
	sessionManager := scs.New()
	sessionManager.Store = sessionStore
	sessionManager.Lifetime = 12 * time.Hour //nolint:mnd // 12 hours.
	sessionManager.Cookie.Persist = true
	sessionManager.Cookie.Secure = true
	sessionManager.Cookie.SameSite = http.SameSiteLaxMode

	expansionBroker := broker.NewChannelBroker[string, notes.SectionDelta]()
	go expansionBroker.Start(ctx)

	app := application{
		logger:         logger,
		intelligence:   service,
		reviews:        review.NewTracker(logger),
		sessions:       repositories.NewSessionRepository(database, logger),
		sessionManager: sessionManager,
		expansions:     newExpansionStreams(expansionBroker),
		modelTimeout:   cfg.ModelTimeout,
	}

	return app.configureAndStartServer(ctx, cfg.Addr)
}

func newLogger() *slog.Logger {
	options := &slog.HandlerOptions{
		AddSource:   true,
		Level:       slog.LevelDebug,
		ReplaceAttr: nil,
	}
	var handler slog.Handler = slog.NewTextHandler(os.Stdout, options)
	if os.Getenv("CHRONICLER_LOG_FORMAT") == "json" {
		options.Level = slog.LevelInfo
		handler = slog.NewJSONHandler(os.Stdout, options)
	}
	return slog.New(logging.NewContextHandler(handler))
}

func main() {
	ctx := context.Background()
	logger := newLogger()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.LogAttrs(ctx, slog.LevelError, "failure loading .env", errors.SlogError(err))
		os.Exit(1)
	}

	if err := run(ctx, logger, os.LookupEnv); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "failure starting application", errors.SlogError(err))
		os.Exit(1)
	}
}
