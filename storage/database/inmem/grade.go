package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/trezcool/educonnect/core/grade"
)

type gradeRepository struct {
	db *DB
}

func NewGradeRepository(db *DB) grade.Repository {
	return &gradeRepository{db: db}
}

func (repo *gradeRepository) SaveRecord(_ context.Context, r grade.Record) (grade.Record, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, stored := range repo.db.grades {
		if stored.Registration == r.Registration && strings.EqualFold(stored.Subject, r.Subject) {
			r.ID = stored.ID
			*stored = r
			return r, nil
		}
	}
	r.ID = uuid.NewString()
	rec := r
	repo.db.grades[r.ID] = &rec
	return r, nil
}

func (repo *gradeRepository) QueryRecords(_ context.Context, registration string) ([]grade.Record, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	records := make([]grade.Record, 0)
	for _, rec := range repo.db.grades {
		if rec.Registration == registration {
			records = append(records, *rec)
		}
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Subject < records[j].Subject })
	return records, nil
}

func (repo *gradeRepository) DeleteRecord(_ context.Context, id string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.grades[id]; !ok {
		return grade.ErrNotFound
	}
	delete(repo.db.grades, id)
	return nil
}
