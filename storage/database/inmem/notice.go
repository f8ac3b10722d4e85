package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/educonnect/core/notice"
)

type noticeRepository struct {
	db *DB
}

func NewNoticeRepository(db *DB) notice.Repository {
	return &noticeRepository{db: db}
}

func (repo *noticeRepository) CreateNotice(_ context.Context, n notice.Notice) (notice.Notice, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	var seq int64
	n.ID, seq = repo.db.nextID()
	repo.db.notices[n.ID] = &noticeRow{seq: seq, Notice: n}
	return n, nil
}

func (repo *noticeRepository) QueryNotices(_ context.Context, filter *notice.QueryFilter) ([]notice.Notice, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	rows := make([]*noticeRow, 0, len(repo.db.notices))
	for _, row := range repo.db.notices {
		if filter.Match(row.Notice) {
			rows = append(rows, row)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].seq > rows[j].seq }) // newest first

	notices := make([]notice.Notice, len(rows))
	for i, row := range rows {
		notices[i] = row.Notice
	}
	return notices, nil
}

func (repo *noticeRepository) DeleteNotice(_ context.Context, id string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.notices[id]; !ok {
		return notice.ErrNotFound
	}
	delete(repo.db.notices, id)
	return nil
}
