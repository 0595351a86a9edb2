package main

import (
	"log"
	"os"

	"github.com/jmoiron/sqlx"

	"github.com/mutamba/coopvida/core"
	"github.com/mutamba/coopvida/core/billing"
	"github.com/mutamba/coopvida/core/cooperado"
	emailsvc "github.com/mutamba/coopvida/services/email"
	logsvc "github.com/mutamba/coopvida/services/logger"
	"github.com/mutamba/coopvida/storage/database"
	sqlxrepos "github.com/mutamba/coopvida/storage/database/sqlx"
)

var logger *log.Logger

func main() {
	defer os.Exit(0)

	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	conf, err := core.NewConfig()
	errAndDie(err)

	// set up DB
	sqlDB, err := database.Open(conf)
	errAndDie(err)
	defer sqlDB.Close()
	errAndDie(sqlDB.Ping())
	db := sqlx.NewDb(sqlDB, conf.Database.Engine)

	appLogger := logsvc.NewStdLogger(logger)

	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, appLogger)
	}

	coopRepo := sqlxrepos.NewCooperadoRepository(db)
	credRepo := sqlxrepos.NewCredencialRepository(db)
	planRepo := sqlxrepos.NewPlanoRepository(db)
	payRepo := sqlxrepos.NewPagamentoRepository(db)

	// start CLI
	cli := commandLine{
		db:      sqlDB,
		conf:    conf,
		coopSvc: cooperado.NewService(coopRepo, credRepo, appLogger),
		billSvc: billing.NewService(planRepo, payRepo, coopRepo, mailSvc, appLogger, conf.Billing),
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
