package grade

import (
	"context"
	"time"

	"github.com/trezcool/educonnect/core"
	"github.com/trezcool/educonnect/core/user"
)

var ErrNotFound = core.NewNotFoundError("grade record")

type (
	Repository interface {
		// SaveRecord stores r, replacing the record of the same registration and subject if any.
		SaveRecord(ctx context.Context, r Record) (Record, error)
		// QueryRecords returns the records of a student, ordered by subject.
		QueryRecords(ctx context.Context, registration string) ([]Record, error)
		DeleteRecord(ctx context.Context, id string) error
	}

	Service struct {
		repo      Repository
		validator *core.Validator
	}
)

func NewService(repo Repository, v *core.Validator) *Service {
	return &Service{repo: repo, validator: v}
}

// Save records the grades of a student in a subject on behalf of actor.
func (svc *Service) Save(ctx context.Context, nr NewRecord, actor user.User) (Record, error) {
	if err := nr.Validate(svc.validator); err != nil {
		return Record{}, err
	}
	return svc.repo.SaveRecord(ctx, Record{
		Registration: nr.Registration,
		Subject:      nr.Subject,
		Teacher:      nr.Teacher,
		Grades:       nr.Grades,
		Attendance:   nr.Attendance,
		UpdatedBy:    actor.ID,
		UpdatedAt:    time.Now().UTC(),
	})
}

// ByRegistration returns the records of the student with the given registration number.
// An empty registration has no records.
func (svc *Service) ByRegistration(ctx context.Context, registration string) ([]Record, error) {
	registration = core.CleanString(registration)
	if registration == "" {
		return []Record{}, nil
	}
	return svc.repo.QueryRecords(ctx, registration)
}

func (svc *Service) Delete(ctx context.Context, id string) error {
	if id == "" {
		return ErrNotFound
	}
	return svc.repo.DeleteRecord(ctx, id)
}
