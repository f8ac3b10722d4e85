package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof" // register the /debug/pprof handlers
	"os"
	"os/signal"
	"syscall"

	"github.com/trezcool/educonnect/apps/api/echo"
	"github.com/trezcool/educonnect/assets"
	"github.com/trezcool/educonnect/core"
	"github.com/trezcool/educonnect/core/access"
	"github.com/trezcool/educonnect/core/advice"
	"github.com/trezcool/educonnect/core/document"
	"github.com/trezcool/educonnect/core/grade"
	"github.com/trezcool/educonnect/core/notice"
	"github.com/trezcool/educonnect/core/profile"
	"github.com/trezcool/educonnect/core/setup"
	"github.com/trezcool/educonnect/core/user"
	"github.com/trezcool/educonnect/services/advice"
	"github.com/trezcool/educonnect/services/email"
	"github.com/trezcool/educonnect/services/events"
	"github.com/trezcool/educonnect/services/logger"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	defer logger.Close()

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	tmpls, err := core.ParseEmailTemplates(assets.FS, assets.EmailTemplates, conf.FrontendBaseURL, !conf.Debug)
	if err != nil {
		logger.Fatal(fmt.Sprintf("parsing email templates: %v", err), err)
	}
	if err = user.LoadCommonPasswords(); err != nil {
		logger.Fatal(fmt.Sprintf("loading common passwords: %v", err), err)
	}

	ctx := context.Background()

	// set up storage
	stores, err := openStores(ctx, conf, logger)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up storage: %v", err), err)
	}
	defer stores.close()

	// set up services
	mailSvc, err := emailsvc.New(conf, tmpls, logger)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up email service: %v", err), err)
	}

	var publisher document.Publisher = eventsvc.NopPublisher{}
	if len(conf.Kafka.Brokers) > 0 {
		kafkaPub := eventsvc.NewKafkaPublisher(conf.Kafka, logger)
		defer func() {
			if err := kafkaPub.Close(); err != nil {
				logger.Error(fmt.Sprintf("closing kafka publisher: %v", err), err)
			}
		}()
		publisher = kafkaPub
	}

	var gen advice.Generator
	if conf.Advice.APIKey != "" {
		gen = advicesvc.NewGeminiClient(conf.Advice)
	} else {
		logger.Warn("no advice API key: every advice will be the fallback one")
	}

	policy, err := profile.ParseDeletePolicy(conf.Access.ProfileDeletePolicy)
	if err != nil {
		logger.Fatal(fmt.Sprintf("parsing access config: %v", err), err)
	}

	v := core.NewValidator()
	profSvc := profile.NewService(stores.profiles, v, policy)
	usrSvc := user.NewService(stores.users, profSvc, v, mailSvc, conf)
	docSvc := document.NewService(stores.documents, usrSvc, v, mailSvc, publisher, logger)

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	server := echoapi.NewServer(conf.Server.Host, shutdown, &echoapi.Deps{
		Conf:        conf,
		Logger:      logger,
		Validator:   v,
		UserSvc:     usrSvc,
		ProfileSvc:  profSvc,
		DocumentSvc: docSvc,
		AdviceSvc:   advice.NewService(gen, conf.Advice, logger),
		NoticeSvc:   notice.NewService(stores.notices, v),
		GradeSvc:    grade.NewService(stores.grades, v),
		SetupSvc:    setup.NewService(stores.kv),
		Authorizer:  access.NewAuthorizer(profSvc),
	})

	go server.Start()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Error(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(ctx, conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Error(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}
