package sqlxrepos

import (
	"context"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/educonnect/core/advice"
	"github.com/trezcool/educonnect/core/grade"
)

const gradeTable = "grade_record"

var gradeColumns = []string{
	"id", "registration", "subject", "teacher", "bimester1", "bimester2", "bimester3", "bimester4",
	"attendance", "updated_by", "updated_at",
}

type gradeRow struct {
	ID           string              `db:"id"`
	Registration string              `db:"registration"`
	Subject      string              `db:"subject"`
	Teacher      string              `db:"teacher"`
	Bimester1    decimal.NullDecimal `db:"bimester1"`
	Bimester2    decimal.NullDecimal `db:"bimester2"`
	Bimester3    decimal.NullDecimal `db:"bimester3"`
	Bimester4    decimal.NullDecimal `db:"bimester4"`
	Attendance   decimal.Decimal     `db:"attendance"`
	UpdatedBy    null.String         `db:"updated_by"`
	UpdatedAt    time.Time           `db:"updated_at"`
}

func newGradeRow(r grade.Record) gradeRow {
	return gradeRow{
		ID:           r.ID,
		Registration: r.Registration,
		Subject:      r.Subject,
		Teacher:      r.Teacher,
		Bimester1:    r.Grades.Bimester1,
		Bimester2:    r.Grades.Bimester2,
		Bimester3:    r.Grades.Bimester3,
		Bimester4:    r.Grades.Bimester4,
		Attendance:   r.Attendance,
		UpdatedBy:    null.NewString(r.UpdatedBy, validID(r.UpdatedBy)),
		UpdatedAt:    dbTime(r.UpdatedAt),
	}
}

func (r gradeRow) record() grade.Record {
	return grade.Record{
		ID:           r.ID,
		Registration: r.Registration,
		Subject:      r.Subject,
		Teacher:      r.Teacher,
		Grades: advice.Grades{
			Bimester1: r.Bimester1,
			Bimester2: r.Bimester2,
			Bimester3: r.Bimester3,
			Bimester4: r.Bimester4,
		},
		Attendance: r.Attendance,
		UpdatedBy:  r.UpdatedBy.String,
		UpdatedAt:  r.UpdatedAt.UTC(),
	}
}

type gradeRepository struct {
	db *sqlx.DB
}

func NewGradeRepository(db *sqlx.DB) grade.Repository {
	return &gradeRepository{db: db}
}

// SaveRecord upserts r on (registration, LOWER(subject)), keeping the ID of the replaced record.
func (repo *gradeRepository) SaveRecord(ctx context.Context, r grade.Record) (grade.Record, error) {
	row := newGradeRow(r)
	row.ID = uuid.NewString()
	query, args, err := psql.Insert(gradeTable).
		Columns(gradeColumns...).
		Values(row.ID, row.Registration, row.Subject, row.Teacher, row.Bimester1, row.Bimester2, row.Bimester3,
			row.Bimester4, row.Attendance, row.UpdatedBy, row.UpdatedAt).
		Suffix(`ON CONFLICT (registration, LOWER(subject)) DO UPDATE SET
			subject = EXCLUDED.subject,
			teacher = EXCLUDED.teacher,
			bimester1 = EXCLUDED.bimester1,
			bimester2 = EXCLUDED.bimester2,
			bimester3 = EXCLUDED.bimester3,
			bimester4 = EXCLUDED.bimester4,
			attendance = EXCLUDED.attendance,
			updated_by = EXCLUDED.updated_by,
			updated_at = EXCLUDED.updated_at
			RETURNING ` + strings.Join(gradeColumns, ", ")).
		ToSql()
	if err != nil {
		return grade.Record{}, errors.Wrap(err, "building query")
	}
	var saved gradeRow
	if err = sqlx.GetContext(ctx, repo.db, &saved, query, args...); err != nil {
		return grade.Record{}, errors.Wrap(err, "saving grade record")
	}
	return saved.record(), nil
}

func (repo *gradeRepository) QueryRecords(ctx context.Context, registration string) ([]grade.Record, error) {
	b := psql.Select(gradeColumns...).From(gradeTable).Where(sq.Eq{"registration": registration}).OrderBy("subject")

	var rows []gradeRow
	if err := selectRows(ctx, repo.db, &rows, b); err != nil {
		return nil, errors.Wrap(err, "querying grade records")
	}
	records := make([]grade.Record, len(rows))
	for i, row := range rows {
		records[i] = row.record()
	}
	return records, nil
}

func (repo *gradeRepository) DeleteRecord(ctx context.Context, id string) error {
	if !validID(id) {
		return grade.ErrNotFound
	}
	n, err := exec(ctx, repo.db, psql.Delete(gradeTable).Where(sq.Eq{"id": id}))
	if err != nil {
		return errors.Wrap(err, "deleting grade record")
	}
	if n == 0 {
		return grade.ErrNotFound
	}
	return nil
}
