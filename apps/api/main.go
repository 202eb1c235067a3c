package main

import (
	"context"
	"expvar"
	"fmt"
	"io"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"

	"github.com/go-playground/validator/v10"

	echoapi "github.com/rotinas-pei/backend/apps/api/echo"
	"github.com/rotinas-pei/backend/core"
	"github.com/rotinas-pei/backend/core/activity"
	"github.com/rotinas-pei/backend/core/performance"
	"github.com/rotinas-pei/backend/core/routine"
	"github.com/rotinas-pei/backend/core/user"
	emailsvc "github.com/rotinas-pei/backend/services/email"
	eventsvc "github.com/rotinas-pei/backend/services/events"
	imagesvc "github.com/rotinas-pei/backend/services/imagestore"
	logsvc "github.com/rotinas-pei/backend/services/logger"
	"github.com/rotinas-pei/backend/storage/database"
	inmemdb "github.com/rotinas-pei/backend/storage/database/inmem"
	sqlxrepos "github.com/rotinas-pei/backend/storage/database/sqlx"
)

// repositories groups the storage of one database engine.
type repositories struct {
	users      user.Repository
	activities activity.Repository
	routines   routine.Repository
	records    performance.Repository
	closer     io.Closer
}

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	dbLogger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	dbLogger.Enable(!conf.Debug)

	// set up DB
	repos, err := setUpRepositories(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = repos.closer.Close(); err != nil {
			dbLogger.Fatal("Failed to close", err)
		}
	}()

	// set up services
	var mailSvc core.EmailService
	if conf.Debug || conf.SendgridAPIKey == "" {
		mailSvc = emailsvc.NewConsoleService(conf, logger)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}

	var images activity.ImageStore
	if conf.Database.Engine == "inmem" {
		images = imagesvc.NewMemoryStore(conf.Storage.PublicObjectURL())
	} else {
		if images, err = imagesvc.NewS3Store(context.Background(), conf.Storage); err != nil {
			logger.Fatal(fmt.Sprintf("setting up image storage: %v", err), err)
		}
	}

	var publisher performance.Publisher
	if len(conf.Kafka.Brokers) > 0 {
		kafkaPub := eventsvc.NewKafkaPublisher(conf.Kafka)
		defer func() {
			if err = kafkaPub.Close(); err != nil {
				logger.Error(fmt.Sprintf("closing kafka publisher: %v", err), err)
			}
		}()
		publisher = kafkaPub
	}

	usrSvc := user.NewService(repos.users, mailSvc, conf)
	actSvc := activity.NewService(repos.activities, images, conf)
	rtnSvc := routine.NewService(repos.routines, usrSvc, actSvc)
	recSvc := performance.NewService(repos.records, repos.activities, publisher, logger)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)
	expvar.NewString("database").Set(conf.Database.Engine)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugAddress, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(echoapi.ServerDeps{
		Conf:        conf,
		Logger:      logger,
		Validate:    validate,
		Translator:  translator,
		UserSvc:     usrSvc,
		ActivitySvc: actSvc,
		RoutineSvc:  rtnSvc,
		RecordSvc:   recSvc,
	})

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

func setUpRepositories(conf *core.Config) (repositories, error) {
	if conf.Database.Engine == "inmem" {
		db := inmemdb.Open()
		return repositories{
			users:      inmemdb.NewUserRepository(db),
			activities: inmemdb.NewActivityRepository(db),
			routines:   inmemdb.NewRoutineRepository(db),
			records:    inmemdb.NewPerformanceRepository(db),
			closer:     db,
		}, nil
	}

	if err := database.CreateIfNotExist(conf); err != nil {
		return repositories{}, err
	}
	db, err := database.Open(conf)
	if err != nil {
		return repositories{}, err
	}
	if err = database.Migrate(db, "up"); err != nil {
		_ = db.Close()
		return repositories{}, err
	}
	return repositories{
		users:      sqlxrepos.NewUserRepository(db),
		activities: sqlxrepos.NewActivityRepository(db),
		routines:   sqlxrepos.NewRoutineRepository(db),
		records:    sqlxrepos.NewPerformanceRepository(db),
		closer:     db,
	}, nil
}
