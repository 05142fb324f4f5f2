package repositories_test

import (
	"context"
	_ "embed"
	"github.com/myrjola/chronicler/internal/sqlite"
	"github.com/myrjola/chronicler/internal/testhelpers"
	"io"
	"testing"
)

//go:embed testdata/fixtures.sql
var testFixtures string

// newTestDB creates a new in-memory database with the test fixtures applied.
func newTestDB(t *testing.T) *sqlite.Database {
	t.Helper()
	var (
		ctx      = context.Background()
		database *sqlite.Database
		err      error
	)

	if database, err = sqlite.NewDatabase(ctx, ":memory:", testhelpers.NewLogger(io.Discard)); err != nil {
		t.Fatal(err)
	}

	if _, err = database.ReadWrite.ExecContext(ctx, testFixtures); err != nil {
		t.Fatal(err)
	}

	t.Cleanup(func() {
		if err = database.Close(); err != nil {
			t.Error(err)
		}
	})

	return database
}
