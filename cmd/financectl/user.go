package main

import (
	"context"
	"flag"
	"fmt"

	"finance-backend/internal/auth"

	"github.com/google/subcommands"
	"github.com/sirupsen/logrus"
)

type createUserCmd struct {
	username string
	email    string
	password string
}

func (*createUserCmd) Name() string     { return "create-user" }
func (*createUserCmd) Synopsis() string { return "create a user account" }
func (*createUserCmd) Usage() string {
	return `financectl create-user -username <name> -password <password> [-email <email>]
`
}

func (p *createUserCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&p.username, "username", "", "login name, must be unique")
	f.StringVar(&p.email, "email", "", "contact email")
	f.StringVar(&p.password, "password", "", "initial password")
}

func (p *createUserCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if p.username == "" || p.password == "" {
		f.Usage()
		return subcommands.ExitUsageError
	}

	db, _, err := openDB()
	if err != nil {
		logrus.WithError(err).Error("connect database")
		return subcommands.ExitFailure
	}

	user, err := auth.CreateUser(db, p.username, p.email, p.password)
	if err != nil {
		logrus.WithError(err).Error("create user failed")
		return subcommands.ExitFailure
	}
	fmt.Printf("user %q created with id %d\n", user.Username, user.ID)
	return subcommands.ExitSuccess
}
