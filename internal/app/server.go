package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

const defaultShutdownTimeout = 10 * time.Second

// Run serves HTTP until ctx is done or the listener fails, then stops the
// background jobs and releases every resource.
func (a *App) Run(ctx context.Context) error {
	serveErr := make(chan error, 1)
	go func() {
		slog.Info("http server listening", "address", a.httpServer.Addr)
		serveErr <- a.httpServer.ListenAndServe()
	}()

	var err error
	select {
	case <-ctx.Done():
		slog.Info("shutdown signal received")
	case serr := <-serveErr:
		err = fmt.Errorf("app: http server: %w", serr)
	}

	timeout := a.config.GetSecond("app.server.shutdown_timeout_seconds")
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}
	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	a.shutdown(sctx)
	return err
}

func (a *App) shutdown(ctx context.Context) {
	a.cancel()

	if err := a.httpServer.Shutdown(ctx); err != nil {
		slog.ErrorContext(ctx, "failed to shutdown http server", "error", err)
	}

	slog.InfoContext(ctx, "waiting for background jobs")
	if err := a.goroutine.Wait(); err != nil {
		slog.ErrorContext(ctx, "background jobs failed", "error", err)
	}

	a.close(ctx)
	slog.InfoContext(ctx, "application stopped")
}
