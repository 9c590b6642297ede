package main

import (
	"context"
	"errors"

	"github.com/trezcool/academia/storage/session/pgstore"
)

var (
	runMigrationsFunc = pgstore.RunMigrations // mockable

	errNoDatabase = errors.New("the session store is not postgres: no database to manage")
)

func (cli *commandLine) migrate(args []string) error {
	if cli.db == nil {
		return errNoDatabase
	}
	return runMigrationsFunc(context.Background(), cli.db, args[0], args[1:]...)
}

func (cli *commandLine) purgeSessions() error {
	n, err := cli.sessions.Purge(context.Background())
	if err != nil {
		return err
	}
	cli.printf("purged %d expired sessions\n", n)
	return nil
}
