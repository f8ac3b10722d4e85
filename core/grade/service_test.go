package grade_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/educonnect/core"
	"github.com/trezcool/educonnect/core/advice"
	"github.com/trezcool/educonnect/core/grade"
	"github.com/trezcool/educonnect/core/user"
	"github.com/trezcool/educonnect/storage/database/inmem"
)

var teacher = user.User{ID: "t-1", Name: "Prof. Alberto Rosa", Role: user.RoleAdmin}

func num(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(s))
}

func setup() *grade.Service {
	return grade.NewService(inmemdb.NewGradeRepository(inmemdb.NewDB()), core.NewValidator())
}

func TestService_Save(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name       string
		nr         grade.NewRecord
		wantFields []core.FieldError
	}{
		{
			name: "valid",
			nr: grade.NewRecord{
				Registration: " 2024-0001 ", Subject: "Matemática", Teacher: "Prof. Alberto Rosa",
				Grades: advice.Grades{Bimester1: num("8.5"), Bimester2: num("10")}, Attendance: decimal.NewFromInt(95),
			},
		},
		{
			name: "grade out of range",
			nr: grade.NewRecord{
				Registration: "2024-0001", Subject: "Matemática",
				Grades: advice.Grades{Bimester1: num("-1"), Bimester3: num("10.5")}, Attendance: decimal.NewFromInt(95),
			},
			wantFields: []core.FieldError{
				{Field: "grades.bimester1", Error: "grade must be between 0 and 10"},
				{Field: "grades.bimester3", Error: "grade must be between 0 and 10"},
			},
		},
		{
			name:       "attendance out of range",
			nr:         grade.NewRecord{Registration: "2024-0001", Subject: "Matemática", Attendance: decimal.NewFromInt(101)},
			wantFields: []core.FieldError{{Field: "attendance", Error: "attendance must be between 0 and 100"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := setup()
			r, err := svc.Save(ctx, tt.nr, teacher)
			if tt.wantFields != nil {
				vErr, ok := errors.Cause(err).(*core.ValidationError)
				require.True(t, ok, "err = %v", err)
				assert.Equal(t, tt.wantFields, vErr.Fields)
				records, err := svc.ByRegistration(ctx, tt.nr.Registration)
				require.NoError(t, err)
				assert.Empty(t, records, "nothing saved")
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, r.ID)
			assert.Equal(t, "2024-0001", r.Registration)
			assert.Equal(t, teacher.ID, r.UpdatedBy)
			assert.False(t, r.UpdatedAt.IsZero())
		})
	}

	t.Run("required fields", func(t *testing.T) {
		_, err := setup().Save(ctx, grade.NewRecord{Registration: " ", Subject: ""}, teacher)
		assert.True(t, core.IsValidationError(err))
	})
}

func TestService_SaveReplaces(t *testing.T) {
	ctx := context.Background()
	svc := setup()

	first, err := svc.Save(ctx, grade.NewRecord{
		Registration: "2024-0001", Subject: "Matemática", Grades: advice.Grades{Bimester1: num("8.5")}, Attendance: decimal.NewFromInt(95),
	}, teacher)
	require.NoError(t, err)
	_, err = svc.Save(ctx, grade.NewRecord{Registration: "2024-0001", Subject: "Ciências", Attendance: decimal.NewFromInt(92)}, teacher)
	require.NoError(t, err)
	_, err = svc.Save(ctx, grade.NewRecord{Registration: "2024-0002", Subject: "Matemática", Attendance: decimal.NewFromInt(70)}, teacher)
	require.NoError(t, err)

	second, err := svc.Save(ctx, grade.NewRecord{
		Registration: "2024-0001", Subject: "matemática",
		Grades:     advice.Grades{Bimester1: num("8.5"), Bimester2: num("7")},
		Attendance: decimal.NewFromInt(94),
	}, teacher)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	records, err := svc.ByRegistration(ctx, "2024-0001")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "Ciências", records[0].Subject)
	assert.Equal(t, second, records[1])

	subjects := grade.Subjects(records)
	assert.Equal(t, "matemática", subjects[1].Name)
	assert.Equal(t, "7.75", subjects[1].Grades.Average().Decimal.String())

	none, err := svc.ByRegistration(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, none)

	require.NoError(t, svc.Delete(ctx, second.ID))
	assert.True(t, core.IsNotFound(svc.Delete(ctx, second.ID)))
	records, err = svc.ByRegistration(ctx, "2024-0001")
	require.NoError(t, err)
	assert.Len(t, records, 1)
}
