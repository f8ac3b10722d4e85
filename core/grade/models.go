package grade

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/trezcool/educonnect/core"
	"github.com/trezcool/educonnect/core/advice"
)

var (
	maxGrade      = decimal.NewFromInt(10)
	maxAttendance = decimal.NewFromInt(100)
)

// Record holds the grades and attendance of a student in a subject.
// Students are identified by their registration number, shared with their parents' accounts.
type Record struct {
	ID           string          `json:"id"`
	Registration string          `json:"registration"`
	Subject      string          `json:"subject"`
	Teacher      string          `json:"teacher"`
	Grades       advice.Grades   `json:"grades"`
	Attendance   decimal.Decimal `json:"attendance"` // percentage
	UpdatedBy    string          `json:"updated_by"`
	UpdatedAt    time.Time       `json:"updated_at"` // UTC
}

// AdviceSubject returns the record as advice input.
func (r Record) AdviceSubject() advice.Subject {
	return advice.Subject{
		Name:       r.Subject,
		Teacher:    r.Teacher,
		Grades:     r.Grades,
		Attendance: r.Attendance,
	}
}

// Subjects converts records to advice input, keeping their order.
func Subjects(records []Record) []advice.Subject {
	subjects := make([]advice.Subject, len(records))
	for i, r := range records {
		subjects[i] = r.AdviceSubject()
	}
	return subjects
}

// NewRecord contains the grades to store for a student in a subject.
// It replaces any previous record of the same student and subject.
type NewRecord struct {
	Registration string          `json:"registration" validate:"required,max=64"`
	Subject      string          `json:"subject" validate:"required,max=100"`
	Teacher      string          `json:"teacher" validate:"max=255"`
	Grades       advice.Grades   `json:"grades"`
	Attendance   decimal.Decimal `json:"attendance"`
}

func (nr *NewRecord) Validate(v *core.Validator) error {
	nr.Registration = core.CleanString(nr.Registration)
	nr.Subject = core.CleanString(nr.Subject)
	nr.Teacher = core.CleanString(nr.Teacher)
	if err := v.Struct(nr); err != nil {
		return err
	}

	var fields []core.FieldError
	for i, g := range []decimal.NullDecimal{nr.Grades.Bimester1, nr.Grades.Bimester2, nr.Grades.Bimester3, nr.Grades.Bimester4} {
		if g.Valid && (g.Decimal.IsNegative() || g.Decimal.GreaterThan(maxGrade)) {
			fields = append(fields, core.FieldError{
				Field: fmt.Sprintf("grades.bimester%d", i+1),
				Error: "grade must be between 0 and 10",
			})
		}
	}
	if nr.Attendance.IsNegative() || nr.Attendance.GreaterThan(maxAttendance) {
		fields = append(fields, core.FieldError{Field: "attendance", Error: "attendance must be between 0 and 100"})
	}
	if len(fields) > 0 {
		return core.NewValidationError(errors.New("invalid grades"), fields...)
	}
	return nil
}
