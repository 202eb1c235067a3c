package main

import (
	"log"
	"os"

	"github.com/go-playground/validator/v10"

	"github.com/rotinas-pei/backend/core"
	"github.com/rotinas-pei/backend/core/user"
	emailsvc "github.com/rotinas-pei/backend/services/email"
	logsvc "github.com/rotinas-pei/backend/services/logger"
	"github.com/rotinas-pei/backend/storage/database"
	inmemdb "github.com/rotinas-pei/backend/storage/database/inmem"
	sqlxrepos "github.com/rotinas-pei/backend/storage/database/sqlx"
)

var logger *log.Logger

func main() {
	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	conf := core.NewConfig()

	// emails go to the console
	mailLogger := logsvc.NewRollbarLogger(logger, conf)
	mailLogger.Enable(false)
	mailSvc := emailsvc.NewConsoleService(conf, mailLogger)

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	cli := commandLine{validate: validate, translator: translator}

	// set up DB
	if conf.Database.Engine == "inmem" {
		cli.usrSvc = user.NewService(inmemdb.NewUserRepository(inmemdb.Open()), mailSvc, conf)
	} else {
		if err := database.CreateIfNotExist(conf); err != nil {
			logger.Fatal(err)
		}
		db, err := database.Open(conf)
		if err != nil {
			logger.Fatal(err)
		}
		defer db.Close()
		cli.db = db.DB
		cli.usrSvc = user.NewService(sqlxrepos.NewUserRepository(db), mailSvc, conf)
	}

	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}
