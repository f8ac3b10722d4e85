// Package inmemdb holds in-memory repositories, used by default and in tests.
package inmemdb

import (
	"sync"

	"github.com/google/uuid"

	"github.com/trezcool/educonnect/core/document"
	"github.com/trezcool/educonnect/core/grade"
	"github.com/trezcool/educonnect/core/notice"
	"github.com/trezcool/educonnect/core/profile"
	"github.com/trezcool/educonnect/core/user"
)

// DB is an in-memory database. A single lock guards every table so that
// operations spanning several tables (e.g. cascading deletes) are atomic.
type DB struct {
	mutex    sync.RWMutex
	seq      int64 // insertion order, for stable listings
	profiles map[string]*profileRow
	users    map[string]*userRow
	requests map[string]*requestRow
	notices  map[string]*noticeRow
	grades   map[string]*grade.Record
}

type (
	profileRow struct {
		seq int64
		profile.Profile
	}
	userRow struct {
		seq int64
		user.User
	}
	requestRow struct {
		seq int64
		document.Request
	}
	noticeRow struct {
		seq int64
		notice.Notice
	}
)

func NewDB() *DB {
	return &DB{
		profiles: make(map[string]*profileRow),
		users:    make(map[string]*userRow),
		requests: make(map[string]*requestRow),
		notices:  make(map[string]*noticeRow),
		grades:   make(map[string]*grade.Record),
	}
}

// nextID returns a fresh ID and sequence number. Must be called with the write lock held.
func (db *DB) nextID() (string, int64) {
	db.seq++
	return uuid.NewString(), db.seq
}
