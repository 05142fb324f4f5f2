package main

import (
	"context"
	"github.com/myrjola/chronicler/internal/e2etest"
	"github.com/myrjola/chronicler/internal/testhelpers"
	"github.com/stretchr/testify/require"
	"io"
	"log/slog"
	"testing"
	"time"
)

func TestRun_stopsWhenContextIsCancelled(t *testing.T) {
	model := testhelpers.NewOpenAIServer(t)
	listening := make(chan struct{})
	logger := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{ //nolint:exhaustruct // defaults
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == e2etest.LogAddrKey {
				select {
				case <-listening:
				default:
					close(listening)
				}
			}
			return a
		},
	}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() {
		done <- run(ctx, logger, testLookupEnv(model))
	}()

	select {
	case <-listening:
	case err := <-done:
		t.Fatalf("run returned before listening: %v", err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not start")
	}
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * shutdownTimeout):
		t.Fatal("server did not shut down")
	}
}
