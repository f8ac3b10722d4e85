package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/educonnect/core/document"
)

type documentRepository struct {
	db *DB
}

func NewDocumentRepository(db *DB) document.Repository {
	return &documentRepository{db: db}
}

func (repo *documentRepository) CreateRequest(_ context.Context, r document.Request) (document.Request, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	var seq int64
	r.ID, seq = repo.db.nextID()
	repo.db.requests[r.ID] = &requestRow{seq: seq, Request: r}
	return r, nil
}

func (repo *documentRepository) GetRequest(_ context.Context, id string) (document.Request, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if row, ok := repo.db.requests[id]; ok {
		return row.Request, nil
	}
	return document.Request{}, document.ErrNotFound
}

func (repo *documentRepository) QueryRequests(_ context.Context, filter *document.QueryFilter) ([]document.Request, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	rows := make([]*requestRow, 0, len(repo.db.requests))
	for _, row := range repo.db.requests {
		if filter.Match(row.Request) {
			rows = append(rows, row)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].seq > rows[j].seq }) // newest first

	reqs := make([]document.Request, len(rows))
	for i, row := range rows {
		reqs[i] = row.Request
	}
	return reqs, nil
}

func (repo *documentRepository) UpdateRequestStatus(_ context.Context, r document.Request, from document.Status) (document.Request, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	row, ok := repo.db.requests[r.ID]
	if !ok {
		return document.Request{}, document.ErrNotFound
	}
	if row.Status != from {
		return document.Request{}, document.ErrStaleStatus
	}
	row.Status = r.Status
	row.ProcessedBy = r.ProcessedBy
	row.UpdatedAt = r.UpdatedAt
	return row.Request, nil
}

func (repo *documentRepository) CountRequestsByStatus(_ context.Context) (map[document.Status]int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	counts := make(map[document.Status]int)
	for _, row := range repo.db.requests {
		counts[row.Status]++
	}
	return counts, nil
}
