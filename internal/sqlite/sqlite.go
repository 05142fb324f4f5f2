package sqlite

import (
	"context"
	"fmt"
	"github.com/jmoiron/sqlx"
	"github.com/myrjola/chronicler/internal/errors"
	"github.com/myrjola/chronicler/internal/random"
	"log/slog"
	"strings"
	"time"

	_ "embed"
	_ "github.com/mattn/go-sqlite3" // Enable sqlite3 driver
)

//go:embed schema.sql
var schemaDefinition string

//go:embed fixtures.sql
var fixtures string

type Database struct {
	ReadWrite *sqlx.DB
	ReadOnly  *sqlx.DB
	logger    *slog.Logger
}

// NewDatabase connects to database and synchronizes the schema.
//
// It establishes two database connections, one for read/write operations and one for read-only operations.
// Splitting readers from the single writer follows https://github.com/mattn/go-sqlite3/issues/1179#issuecomment-1638083995
//
// The url parameter is the path to the SQLite database file or ":memory:" for an in-memory database.
func NewDatabase(ctx context.Context, url string, logger *slog.Logger) (*Database, error) {
	db, err := connect(url, logger)
	if err != nil {
		return nil, errors.Wrap(err, "connect")
	}

	// Initialize the database schema.
	if err = db.migrate(ctx, schemaDefinition); err != nil {
		return nil, errors.Wrap(err, "synchronize schema")
	}

	// Apply fixtures.
	if _, err = db.ReadWrite.ExecContext(ctx, fixtures); err != nil {
		return nil, errors.Wrap(err, "apply fixtures")
	}

	return db, nil
}

// connect opens the connection pools without touching the schema.
func connect(url string, logger *slog.Logger) (*Database, error) {
	var (
		err         error
		readWriteDB *sqlx.DB
		readDB      *sqlx.DB
	)

	// For in-memory databases, we need shared cache mode so that both databases access the same data.
	//
	// For parallel tests, we need to use a different database file for each test to avoid sharing data.
	// See https://www.sqlite.org/inmemorydb.html.
	readMode := "mode=ro"
	readWriteMode := "mode=rwc"
	if strings.Contains(url, ":memory:") {
		var dbNameLength uint = 20
		if url, err = random.Letters(dbNameLength); err != nil {
			return nil, errors.Wrap(err, "generate random ID")
		}
		readMode = "mode=memory&cache=shared"
		readWriteMode = "mode=memory&cache=shared"
	}
	commonConfig := strings.Join([]string{
		// Write-ahead logging enables higher performance and concurrent readers.
		"_journal_mode=wal",
		// Avoids SQLITE_BUSY errors when database is under load.
		"_busy_timeout=5000",
		// Increases performance at the cost of durability https://www.sqlite.org/pragma.html#pragma_synchronous.
		"_synchronous=normal",
		// Enables foreign key constraints.
		"_foreign_keys=on",
	}, "&")

	// The options prefixed with underscore '_' are SQLite pragmas documented at https://www.sqlite.org/pragma.html.
	// The options without leading underscore are SQLite URI parameters documented at https://www.sqlite.org/uri.html.
	readConfig := fmt.Sprintf("file:%s?%s&_txlock=deferred&_query_only=true&%s", url, readMode, commonConfig)
	readWriteConfig := fmt.Sprintf("file:%s?%s&_txlock=immediate&%s", url, readWriteMode, commonConfig)

	// sqlx.Open does not connect, so the read-only pool can be created before the writer has created the file.
	if readWriteDB, err = sqlx.Open("sqlite3", readWriteConfig); err != nil {
		return nil, errors.Wrap(err, "open read-write database")
	}

	readWriteDB.SetMaxOpenConns(1)
	readWriteDB.SetMaxIdleConns(1)
	readWriteDB.SetConnMaxLifetime(time.Hour)
	readWriteDB.SetConnMaxIdleTime(time.Hour)

	if readDB, err = sqlx.Open("sqlite3", readConfig); err != nil {
		return nil, errors.Wrap(err, "open read database")
	}

	maxReadConns := 10
	readDB.SetMaxOpenConns(maxReadConns)
	readDB.SetMaxIdleConns(maxReadConns)
	readDB.SetConnMaxLifetime(time.Hour)
	readDB.SetConnMaxIdleTime(time.Hour)

	return &Database{
		ReadWrite: readWriteDB,
		ReadOnly:  readDB,
		logger:    logger,
	}, nil
}

// Close closes both connection pools.
func (db *Database) Close() error {
	return errors.Join(
		errors.Wrap(db.ReadOnly.Close(), "close read-only database"),
		errors.Wrap(db.ReadWrite.Close(), "close read-write database"),
	)
}
