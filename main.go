package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/shandysiswandi/estatebite/internal/app"
)

// @title           EstateBite API
// @version         1.0
// @description     EstateBite issues one-time verification codes and brokers media uploads for property listings.
// @termsOfService  https://estatebite.com/terms
// @contact.name    Contact Support
// @contact.url     https://estatebite.com/contact
// @contact.email   support@estatebite.com
// @license.name    MIT
// @license.url     https://mit-license.org/
// @server          http://localhost:8080
// @securityDefinitions.apikey  BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	defer stop()

	a, err := app.New()
	if err != nil {
		slog.Error("failed to start application", "error", err)
		os.Exit(1)
	}
	if err := a.Run(ctx); err != nil {
		slog.Error("application exited", "error", err)
		os.Exit(1)
	}
}
