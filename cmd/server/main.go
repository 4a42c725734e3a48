package main

import (
	"context"
	"errors"
	"os"

	"github.com/joho/godotenv"

	"github.com/AnshRaj112/smart-bookmarks-backend/internal/app"
	"github.com/AnshRaj112/smart-bookmarks-backend/internal/config"
	"github.com/AnshRaj112/smart-bookmarks-backend/internal/logger"
)

func main() {
	// Load env; a missing .env is fine when the variables come from the environment.
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log := logger.New("info", true)
		var missing *config.MissingEnvError
		if errors.As(err, &missing) {
			log.Error(missing.Error(), logger.String("hint", "set them in the environment or a .env file"))
		} else {
			log.Error("Configuration Error", logger.Error(err))
		}
		_ = log.Sync()
		os.Exit(1)
	}

	log := logger.New(cfg.LogLevel, cfg.PrettyLog)
	defer log.Sync()
	if envErr != nil {
		log.Info("No .env file found")
	}

	a, err := app.New(context.Background(), cfg, log)
	if err != nil {
		log.Fatal("failed to start", logger.Error(err))
	}
	if err := a.Run(context.Background()); err != nil {
		log.Fatal("server stopped with error", logger.Error(err))
	}
	log.Info("✅ Smart Bookmarks backend stopped cleanly")
}
