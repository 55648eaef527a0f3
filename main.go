package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/debemdeboas/fundacion-cms/internal/app"
	"github.com/debemdeboas/fundacion-cms/internal/config"
	"github.com/debemdeboas/fundacion-cms/internal/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func configPath() string {
	if p := os.Getenv(config.EnvConfigPath); p != "" {
		return p
	}
	return config.DefaultConfigPath
}

func run(ctx context.Context) error {
	envErr := godotenv.Load()

	if err := config.LoadConfig(configPath()); err != nil {
		return err
	}
	cfg := config.AppConfig

	log := logger.NewWithOptions(logger.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	app.SetLoggers(log)

	if envErr != nil {
		log.Debug().Err(envErr).Msg("No .env file loaded")
	}

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	log.Info().
		Str("site", cfg.Site.Name).
		Str("store", cfg.Media.Store).
		Str("database", cfg.Database.Path).
		Msg("Starting CMS")

	return a.Run(ctx)
}
