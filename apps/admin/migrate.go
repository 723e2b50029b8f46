package main

import (
	"github.com/pkg/errors"
	"github.com/pressly/goose/v3"

	"github.com/classbook/classbook/storage/database"
)

var gooseRunFunc = goose.Run // mockable

func (cli *commandLine) migrate(args []string) error {
	if err := database.PrepareGoose(cli.db, cli.logger); err != nil {
		return err
	}
	return errors.Wrapf(gooseRunFunc(args[0], cli.db.DB, ".", args[1:]...), "running migration %q", args[0])
}
