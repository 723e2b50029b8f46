package main

import (
	"fmt"
	"log"
	"os"

	"github.com/classbook/classbook/core"
	logsvc "github.com/classbook/classbook/services/logger"
	"github.com/classbook/classbook/storage/database"
	sqlxrepos "github.com/classbook/classbook/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()
	zl, err := logsvc.NewZapLogger(conf)
	if err != nil {
		log.Fatalf("building logger: %v", err)
	}
	logger := logsvc.NewRollbarLogger(zl.Named("admin"), conf)

	// set up DB
	if err = database.CreateIfNotExist(conf); err != nil {
		logger.Fatal(fmt.Sprintf("creating database: %v", err), err)
	}
	db, err := database.Open(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("opening database: %v", err), err)
	}

	// start CLI
	cli := commandLine{
		db:      db,
		usrRepo: sqlxrepos.NewUserRepository(db),
		logger:  logger,
		out:     os.Stdout,
	}
	err = cli.run(os.Args[1:])
	_ = db.Close()
	_ = logger.Sync()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
