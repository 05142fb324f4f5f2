package main

import (
	"context"
	"github.com/myrjola/chronicler/internal/e2etest"
	"github.com/myrjola/chronicler/internal/errors"
	"github.com/myrjola/chronicler/internal/logging"
	"log/slog"
	"net/http"
	"os"
	"time"
)

// TestSession checks that a client gets a session and that the review state of the demo campaign is readable.
// It does not trigger an analysis so that no model tokens are spent.
func TestSession(client *e2etest.Client) error {
	ctx := context.Background()
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second) //nolint:mnd // 10 seconds
	defer cancel()

	session, err := client.Session(ctx)
	if err != nil {
		return errors.Wrap(err, "get session")
	}
	if session.ClientID == "" || session.CSRFToken == "" {
		return errors.New("session is missing client id or CSRF token")
	}

	var state struct {
		State string `json:"state"`
	}
	status, err := client.DoJSON(ctx, http.MethodGet, "/review-state?campaignId=demo", nil, &state)
	if err != nil {
		return errors.Wrap(err, "get review state")
	}
	if status != http.StatusOK {
		return errors.New("unexpected status code", slog.Int("status", status))
	}
	if state.State == "" {
		return errors.New("review state is empty")
	}
	return nil
}

func main() {
	loggerHandler := logging.NewContextHandler(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		AddSource:   false,
		Level:       slog.LevelDebug,
		ReplaceAttr: nil,
	}))
	logger := slog.New(loggerHandler)
	ctx := context.Background()

	if len(os.Args) != 2 { //nolint:mnd // we expect only hostname to be passed as argument.
		logger.LogAttrs(ctx, slog.LevelError, "usage: smoketest <hostname>")
		os.Exit(1)
	}

	var (
		hostname = os.Args[1]
		url      = "https://" + hostname
		client   *e2etest.Client
		err      error
	)
	ctx = logging.WithAttrs(ctx, slog.String("hostname", url))

	if client, err = e2etest.NewClient(url); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error creating client", errors.SlogError(err))
		os.Exit(1)
	}
	if err = client.WaitForReady(ctx, "/api/healthy"); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "server not ready", errors.SlogError(err))
		os.Exit(1)
	}
	if err = TestSession(client); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error testing session", errors.SlogError(err))
		os.Exit(1)
	}

	logger.LogAttrs(ctx, slog.LevelInfo, "Smoke test successful 🙌")
	os.Exit(0)
}
