package main

import (
	"context"
	"errors"

	"github.com/trezcool/educonnect/storage/database"
)

var gooseRunFunc = database.RunMigrations // mockable

func (cli *commandLine) migrate(ctx context.Context, args []string) error {
	if cli.db == nil {
		return errors.New("migrations require the postgres database engine")
	}
	return gooseRunFunc(ctx, cli.db, args[0], args[1:]...)
}
