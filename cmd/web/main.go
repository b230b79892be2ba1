package main

import (
	"context"
	"log/slog"
	"os"

	"supplypulse/internal/app"
)

func main() {
	ctx := context.Background()

	application, err := app.NewApplication(ctx, "")
	if err != nil {
		slog.Error("Failed to initialize application", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := application.Run(ctx); err != nil {
		application.Logger.Error("Application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
