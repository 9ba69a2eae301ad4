package main

import (
	"context"
	"flag"

	"finance-backend/internal/database"

	"github.com/google/subcommands"
	"github.com/sirupsen/logrus"
)

type migrateCmd struct{}

func (*migrateCmd) Name() string     { return "migrate" }
func (*migrateCmd) Synopsis() string { return "create or update the database schema" }
func (*migrateCmd) Usage() string {
	return `financectl migrate

  Runs the schema migration against DATABASE_DSN.
`
}

func (*migrateCmd) SetFlags(*flag.FlagSet) {}

func (*migrateCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	db, _, err := openDB()
	if err != nil {
		logrus.WithError(err).Error("connect database")
		return subcommands.ExitFailure
	}
	if err := database.Migrate(db); err != nil {
		logrus.WithError(err).Error("migration failed")
		return subcommands.ExitFailure
	}
	logrus.Info("migration completed")
	return subcommands.ExitSuccess
}
