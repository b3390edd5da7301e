package main

import (
	"log"
	"os"

	"github.com/jmoiron/sqlx"

	"github.com/ricardious/semestrix/core"
	"github.com/ricardious/semestrix/storage/database"
	sqlxrepos "github.com/ricardious/semestrix/storage/database/sqlx"
)

var logger *log.Logger

func main() {
	defer os.Exit(0)

	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	conf := core.NewConfig()

	// set up DB
	errAndDie(database.CreateIfNotExist(conf))
	sqlDB, err := database.Open(conf)
	errAndDie(err)
	defer func() { _ = sqlDB.Close() }()
	errAndDie(sqlDB.Ping())

	db := sqlx.NewDb(sqlDB, conf.Database.Engine)

	// start CLI
	cli := commandLine{
		db:       db,
		usrRepo:  sqlxrepos.NewUserRepository(db),
		progRepo: sqlxrepos.NewProgramRepository(db),
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err)
	}
}
