package sqlite

import (
	"context"
	"github.com/myrjola/chronicler/internal/errors"
	"log/slog"
	"time"
)

// StartDatabaseOptimizer runs optimize once per interval until ctx is done.
// See https://www.sqlite.org/pragma.html#pragma_optimize.
func (db *Database) StartDatabaseOptimizer(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		db.optimize(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			continue
		}
	}
}

func (db *Database) optimize(ctx context.Context) {
	start := time.Now()
	if _, err := db.ReadWrite.ExecContext(ctx, "PRAGMA optimize;"); err != nil {
		if ctx.Err() != nil {
			return
		}
		err = errors.Wrap(err, "optimize database")
		db.logger.LogAttrs(ctx, slog.LevelError, "failed to optimize database", errors.SlogError(err))
		return
	}
	db.logger.LogAttrs(ctx, slog.LevelDebug, "optimized database", slog.Duration("duration", time.Since(start)))
}
