package main

import (
	"finance-backend/internal/config"
	"finance-backend/internal/database"
	"finance-backend/internal/logger"
	"finance-backend/internal/server"
)

func main() {
	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)

	if err := cfg.Validate(); err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}
	if cfg.UsesDefaultDSN() {
		log.Warn("DATABASE_DSN not set, using local default")
	}

	if err := database.Init(cfg); err != nil {
		log.WithError(err).Fatal("database init failed")
	}

	app := server.New(cfg, log)

	log.WithField("port", cfg.HTTPPort).Info("server listening")
	if err := app.Listen(":" + cfg.HTTPPort); err != nil {
		log.WithError(err).Fatal("server stopped")
	}
}
