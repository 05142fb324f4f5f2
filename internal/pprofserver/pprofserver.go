// Package pprofserver serves the runtime profiles on a separate listener that is never exposed publicly.
package pprofserver

import (
	"context"
	"github.com/myrjola/chronicler/internal/errors"
	"log/slog"
	"net"
	"net/http"
	"net/http/pprof"
	"time"
)

func Handle(mux *http.ServeMux) {
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
}

const shutdownTimeout = 2 * time.Second

// Launch serves pprof on addr until ctx is done. An empty addr disables the server.
//
// Failing to listen is logged and does not stop the caller.
func Launch(ctx context.Context, addr string, logger *slog.Logger) {
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	Handle(mux)
	srv := &http.Server{ //nolint:exhaustruct // defaults are fine for a loopback debug server.
		Handler:           mux,
		ReadHeaderTimeout: time.Second,
	}
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		logger.LogAttrs(ctx, slog.LevelWarn, "pprof server disabled",
			errors.SlogError(errors.Wrap(err, "listen", slog.String("addr", addr))))
		return
	}
	logger.LogAttrs(ctx, slog.LevelInfo, "starting pprof server", slog.String("pprof_addr", listener.Addr().String()))
	go func() {
		if serveErr := srv.Serve(listener); !errors.Is(serveErr, http.ErrServerClosed) {
			logger.LogAttrs(ctx, slog.LevelError, "pprof server stopped", errors.SlogError(serveErr))
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
}
