package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"

	echoapi "github.com/mutamba/coopvida/apps/api/echo"
	"github.com/mutamba/coopvida/core"
	"github.com/mutamba/coopvida/core/billing"
	"github.com/mutamba/coopvida/core/cooperado"
	"github.com/mutamba/coopvida/core/inscricao"
	"github.com/mutamba/coopvida/core/projeto"
	emailsvc "github.com/mutamba/coopvida/services/email"
	logsvc "github.com/mutamba/coopvida/services/logger"
	"github.com/mutamba/coopvida/storage/database"
	sqlxrepos "github.com/mutamba/coopvida/storage/database/sqlx"
)

func main() {
	std := log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	conf, err := core.NewConfig()
	if err != nil {
		std.Fatalf("loading config: %v", err)
	}

	var logger core.Logger
	if conf.RollbarToken != "" {
		logger = logsvc.NewRollbarLogger(std, conf)
	} else {
		logger = logsvc.NewStdLogger(std)
	}

	// set up DB
	sqlDB, err := database.Open(conf)
	if err != nil {
		logger.Fatal("opening database", err)
	}
	defer func() { _ = sqlDB.Close() }()
	db := sqlx.NewDb(sqlDB, conf.Database.Engine)

	// set up validation
	translator := newTranslator()
	validate := validator.New()
	core.InitValidators(validate, translator)
	cooperado.InitValidators(validate, translator)

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}

	coopRepo := sqlxrepos.NewCooperadoRepository(db)
	credRepo := sqlxrepos.NewCredencialRepository(db)
	inscRepo := sqlxrepos.NewInscricaoRepository(db)
	planRepo := sqlxrepos.NewPlanoRepository(db)
	payRepo := sqlxrepos.NewPagamentoRepository(db)
	projRepo := sqlxrepos.NewProjetoRepository(db)
	inscProjRepo := sqlxrepos.NewInscricaoProjetoRepository(db)

	coopSvc := cooperado.NewService(coopRepo, credRepo, logger)
	billSvc := billing.NewService(planRepo, payRepo, coopRepo, mailSvc, logger, conf.Billing)
	inscSvc := inscricao.NewService(inscRepo, coopRepo, credRepo, planRepo, payRepo, mailSvc, logger, conf)
	projSvc := projeto.NewService(projRepo, inscProjRepo, logger)

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, os.Interrupt, syscall.SIGTERM)

	// start API server
	app := echoapi.NewServer(
		&echoapi.Options{
			Addr:         conf.Server.Addr,
			Conf:         conf,
			Logger:       logger,
			Validate:     validate,
			Translator:   translator,
			InscricaoSvc: inscSvc,
			CooperadoSvc: coopSvc,
			BillingSvc:   billSvc,
			ProjetoSvc:   projSvc,
			SignalShutdown: func() {
				shutdownCh <- syscall.SIGTERM
			},
		},
	)
	go app.Start()

	// daily billing sweeps
	schedCtx, cancelSched := context.WithCancel(context.Background())
	defer cancelSched()
	go runBillingScheduler(schedCtx, billSvc, logger)

	<-shutdownCh
	logger.Info("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
	defer cancel()
	if err := app.Stop(ctx); err != nil {
		logger.Error("graceful shutdown failed", err)
	}
}

// runBillingScheduler runs the billing cycle and the suspension/reactivation
// sweeps once at startup and then every 24h until ctx is cancelled.
func runBillingScheduler(ctx context.Context, svc *billing.Service, logger core.Logger) {
	run := func() {
		now := time.Now().UTC()
		if res, err := svc.RunCycle(ctx, now); err != nil {
			logger.Error("billing cycle failed", err)
		} else {
			logger.Info("billing cycle done",
				map[string]interface{}{"criadas": res.MensalidadesCriadas, "atrasadas": res.MarcadosAtrasados})
		}
		if n, err := svc.SuspendOverdue(ctx, now); err != nil {
			logger.Error("suspension sweep failed", err)
		} else if n > 0 {
			logger.Info("suspension sweep done", map[string]interface{}{"suspensos": n})
		}
		if n, err := svc.ReactivatePaid(ctx, now); err != nil {
			logger.Error("reactivation sweep failed", err)
		} else if n > 0 {
			logger.Info("reactivation sweep done", map[string]interface{}{"reativados": n})
		}
	}

	run()
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			run()
		}
	}
}

func newTranslator() ut.Translator {
	enLocale := en.New()
	uni := ut.New(enLocale, enLocale)
	translator, _ := uni.GetTranslator("en")
	return translator
}
