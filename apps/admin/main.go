package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"

	"github.com/trezcool/educonnect/assets"
	"github.com/trezcool/educonnect/core"
	"github.com/trezcool/educonnect/core/profile"
	"github.com/trezcool/educonnect/core/setup"
	"github.com/trezcool/educonnect/core/user"
	"github.com/trezcool/educonnect/services/email"
	"github.com/trezcool/educonnect/services/logger"
	"github.com/trezcool/educonnect/storage/database"
	"github.com/trezcool/educonnect/storage/database/sqlx"
	"github.com/trezcool/educonnect/storage/kv"
)

var logger *logsvc.RollbarLogger

func main() {
	conf := core.NewConfig()
	logger = logsvc.NewRollbarLogger(
		log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)

	os.Exit(run(conf))
}

func run(conf *core.Config) int {
	defer logger.Close()
	ctx := context.Background()

	if conf.Database.Engine != "postgres" {
		logger.Error(fmt.Sprintf("admin commands require the postgres database engine (got %q)", conf.Database.Engine))
		return 1
	}
	if err := user.LoadCommonPasswords(); err != nil {
		logger.Error(fmt.Sprintf("loading common passwords: %v", err), err)
		return 1
	}
	tmpls, err := core.ParseEmailTemplates(assets.FS, assets.EmailTemplates, conf.FrontendBaseURL, false)
	if err != nil {
		logger.Error(fmt.Sprintf("parsing email templates: %v", err), err)
		return 1
	}

	// set up DB
	if err = database.CreateIfNotExist(ctx, conf); err != nil {
		logger.Error(fmt.Sprintf("creating database: %v", err), err)
		return 1
	}
	db, err := database.Open(ctx, conf)
	if err != nil {
		logger.Error(fmt.Sprintf("opening database: %v", err), err)
		return 1
	}
	defer func() { _ = db.Close() }()

	// set up the installed flag store
	var kv setup.KVStore = kvstore.NewMemoryStore()
	if conf.Redis.Addr != "" {
		rdb, err := kvstore.NewRedisStore(ctx, conf.Redis)
		if err != nil {
			logger.Error(fmt.Sprintf("connecting to redis: %v", err), err)
			return 1
		}
		defer func() { _ = rdb.Close() }()
		kv = rdb
	}

	policy, err := profile.ParseDeletePolicy(conf.Access.ProfileDeletePolicy)
	if err != nil {
		logger.Error(fmt.Sprintf("parsing access config: %v", err), err)
		return 1
	}

	// start CLI
	cli := newCommandLine(db.DB, conf, emailsvc.NewConsoleService(conf, tmpls, logger), policy, kv,
		sqlxrepos.NewProfileRepository(db), sqlxrepos.NewUserRepository(db))
	if err = cli.run(os.Args); err != nil {
		if err != errHelp {
			fmt.Printf("\nerror: %s\n", err)
		}
		return 1
	}
	return 0
}

func newCommandLine(
	db *sql.DB,
	conf *core.Config,
	mailSvc core.EmailService,
	policy profile.DeletePolicy,
	kv setup.KVStore,
	profRepo profile.Repository,
	usrRepo user.Repository,
) *commandLine {
	v := core.NewValidator()
	profSvc := profile.NewService(profRepo, v, policy)
	return &commandLine{
		db:       db,
		users:    user.NewService(usrRepo, profSvc, v, mailSvc, conf),
		profiles: profSvc,
		setup:    setup.NewService(kv),
	}
}
