package main

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/trezcool/educonnect/core"
	"github.com/trezcool/educonnect/core/document"
	"github.com/trezcool/educonnect/core/grade"
	"github.com/trezcool/educonnect/core/notice"
	"github.com/trezcool/educonnect/core/profile"
	"github.com/trezcool/educonnect/core/setup"
	"github.com/trezcool/educonnect/core/user"
	"github.com/trezcool/educonnect/storage/database"
	"github.com/trezcool/educonnect/storage/database/inmem"
	"github.com/trezcool/educonnect/storage/database/sqlx"
	"github.com/trezcool/educonnect/storage/kv"
)

// stores holds the repositories and the key-value store selected by the configuration.
type stores struct {
	profiles  profile.Repository
	users     user.Repository
	documents document.Repository
	notices   notice.Repository
	grades    grade.Repository
	kv        setup.KVStore

	closers []func() error
	logger  core.Logger
}

func openStores(ctx context.Context, conf *core.Config, logger core.Logger) (*stores, error) {
	s := &stores{logger: logger}

	switch conf.Database.Engine {
	case "memory", "":
		logger.Warn("using the in-memory database: data will be lost on shutdown")
		db := inmemdb.NewDB()
		s.profiles = inmemdb.NewProfileRepository(db)
		s.users = inmemdb.NewUserRepository(db)
		s.documents = inmemdb.NewDocumentRepository(db)
		s.notices = inmemdb.NewNoticeRepository(db)
		s.grades = inmemdb.NewGradeRepository(db)
	case "postgres":
		if err := database.CreateIfNotExist(ctx, conf); err != nil {
			return nil, errors.Wrap(err, "creating database")
		}
		db, err := database.Open(ctx, conf)
		if err != nil {
			return nil, errors.Wrap(err, "opening database")
		}
		s.closers = append(s.closers, db.Close)
		if err = database.Migrate(ctx, db.DB); err != nil {
			s.close()
			return nil, errors.Wrap(err, "migrating database")
		}
		s.profiles = sqlxrepos.NewProfileRepository(db)
		s.users = sqlxrepos.NewUserRepository(db)
		s.documents = sqlxrepos.NewDocumentRepository(db)
		s.notices = sqlxrepos.NewNoticeRepository(db)
		s.grades = sqlxrepos.NewGradeRepository(db)
	default:
		return nil, errors.Errorf("unknown database engine %q", conf.Database.Engine)
	}

	if conf.Redis.Addr == "" {
		s.kv = kvstore.NewMemoryStore()
		return s, nil
	}
	rdb, err := kvstore.NewRedisStore(ctx, conf.Redis)
	if err != nil {
		s.close()
		return nil, errors.Wrap(err, "connecting to redis")
	}
	s.closers = append(s.closers, rdb.Close)
	s.kv = rdb
	return s, nil
}

// close releases the opened connections, most recent first.
func (s *stores) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			s.logger.Error(fmt.Sprintf("closing store: %v", err), err)
		}
	}
	s.closers = nil
}
