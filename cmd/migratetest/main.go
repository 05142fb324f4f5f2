package main

import (
	"context"
	"github.com/myrjola/chronicler/internal/errors"
	"github.com/myrjola/chronicler/internal/sqlite"
	"github.com/myrjola/chronicler/internal/testhelpers"
	"log/slog"
	"os"
	"time"
)

func main() {
	logger := testhelpers.NewLogger(os.Stdout)
	var (
		err       error
		start     = time.Now()
		ctx       context.Context
		sqliteURL string
		ok        bool
		cancel    context.CancelFunc
	)
	ctx = context.Background()
	ctx, cancel = context.WithTimeout(ctx, 5*time.Second) //nolint:mnd // 5 seconds

	if sqliteURL, ok = os.LookupEnv("CHRONICLER_SQLITE_URL"); !ok {
		logger.LogAttrs(ctx, slog.LevelError, "CHRONICLER_SQLITE_URL not set")
		os.Exit(1)
	}

	var db *sqlite.Database
	if db, err = sqlite.NewDatabase(ctx, sqliteURL, logger); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error creating database",
			slog.String("url", sqliteURL), errors.SlogError(err))
		os.Exit(1)
	}

	// The migrated schema must still hold the campaigns and their sessions.
	var campaigns, sessions int
	row := db.ReadOnly.QueryRowContext(ctx,
		`SELECT (SELECT COUNT(*) FROM campaigns), (SELECT COUNT(*) FROM play_sessions)`)
	if err = row.Scan(&campaigns, &sessions); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error counting campaigns", errors.SlogError(err))
		os.Exit(1)
	}
	if campaigns == 0 {
		logger.LogAttrs(ctx, slog.LevelError, "no campaigns found, something is likely wrong")
		os.Exit(1)
	}
	logger.LogAttrs(ctx, slog.LevelInfo, "campaign count",
		slog.Int("campaigns", campaigns), slog.Int("sessions", sessions))

	logger.LogAttrs(ctx, slog.LevelInfo, "Migration test successful 🙌", slog.Duration("duration", time.Since(start)))
	cancel()
	os.Exit(0)
}
