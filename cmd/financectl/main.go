// Command financectl runs maintenance tasks against the finance database.
package main

import (
	"context"
	"flag"
	"os"
	"path"

	"finance-backend/internal/config"
	"finance-backend/internal/database"
	"finance-backend/internal/logger"

	"github.com/google/subcommands"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")

	commander.Register(&migrateCmd{}, "database")
	commander.Register(&createUserCmd{}, "users")
	commander.Register(&monthlyViewCmd{}, "expenses")

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}

// openDB loads the configuration and connects without migrating.
func openDB() (*gorm.DB, *config.Config, error) {
	cfg := config.Load()
	logger.Setup(cfg.LogLevel, "text")
	db, err := database.Open(postgres.Open(cfg.DatabaseDSN))
	if err != nil {
		return nil, nil, err
	}
	return db, cfg, nil
}
