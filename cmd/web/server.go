package main

import (
	"context"
	"github.com/myrjola/chronicler/internal/errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

const shutdownTimeout = 5 * time.Second

// requestTimeout leaves a margin over the model timeout for collecting content and writing the response.
func (app *application) requestTimeout() time.Duration {
	return app.modelTimeout + 10*time.Second //nolint:mnd // margin for database work.
}

func (app *application) configureAndStartServer(ctx context.Context, addr string) error {
	var err error
	shutdownComplete := make(chan error, 1)
	srv := &http.Server{ //nolint:exhaustruct // the rest use defaults.
		ErrorLog:          slog.NewLogLogger(app.logger.Handler(), slog.LevelError),
		Handler:           app.routes(),
		IdleTimeout:       time.Minute,
		ReadTimeout:       shutdownTimeout,
		WriteTimeout:      app.requestTimeout() + time.Second,
		ReadHeaderTimeout: time.Second,
	}
	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(sigint)

		select {
		case <-sigint:
		case <-ctx.Done():
		}
		app.logger.LogAttrs(ctx, slog.LevelInfo, "shutting down server")

		shutdownContext, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		shutdownErr := srv.Shutdown(shutdownContext)
		if shutdownErr != nil {
			shutdownErr = errors.Wrap(shutdownErr, "shutdown server")
			app.logger.LogAttrs(ctx, slog.LevelError, "error shutting down server", errors.SlogError(shutdownErr))
		}
		shutdownComplete <- shutdownErr
	}()

	var listener net.Listener
	if listener, err = net.Listen("tcp", addr); err != nil {
		return errors.Wrap(err, "TCP listen")
	}
	app.logger.LogAttrs(ctx, slog.LevelInfo, "starting server", slog.String("addr", listener.Addr().String()))
	if err = srv.Serve(listener); !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server serve")
	}
	return <-shutdownComplete
}
