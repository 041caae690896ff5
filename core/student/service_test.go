package student_test

import (
	"context"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/mentorship/core"
	"github.com/trezcool/mentorship/core/metrics"
	"github.com/trezcool/mentorship/core/risk"
	"github.com/trezcool/mentorship/core/student"
	"github.com/trezcool/mentorship/storage/database/inmem"
	"github.com/trezcool/mentorship/tests"
)

// halfSource makes every perturbation vanish: metrics equal the baseline.
type halfSource struct{}

func (halfSource) Float64() float64 { return 0.5 }

func setup(t *testing.T, opts ...metrics.Option) (*student.Service, student.Repository) {
	repo := inmemdb.NewStudentRepository(testutil.PrepareDB(t))
	opts = append([]metrics.Option{metrics.WithSource(func() metrics.Source { return halfSource{} })}, opts...)
	return student.NewService(repo, metrics.NewAggregator(opts...)), repo
}

func TestService_Create(t *testing.T) {
	ctx := context.Background()
	svc, _ := setup(t)
	validate, translator := testutil.NewValidator()

	ns := student.NewStudent{Name: "  Ann Lee ", RollNo: "CS100", Email: "ANN@X.COM", Year: "2nd", AvgMarks: null.Float64From(80)}
	require.NoError(t, ns.Validate(ctx, validate, svc))
	assert.Equal(t, "Ann Lee", ns.Name)
	assert.Equal(t, "ann@x.com", ns.Email)

	s, err := svc.Create(ctx, ns)
	require.NoError(t, err)
	assert.Equal(t, student.StatusActive, s.Status)
	assert.False(t, s.Attendance.Valid)

	t.Run("duplicate roll number", func(t *testing.T) {
		dup := student.NewStudent{Name: "Other", RollNo: "CS100"}
		err := dup.Validate(ctx, validate, svc)
		var vErr *core.ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Equal(t, student.ErrRollNoExists, vErr.Err)
		assert.Equal(t, "roll_no", vErr.Fields[0].Field)
	})

	t.Run("invalid fields", func(t *testing.T) {
		bad := student.NewStudent{
			Name:       " ",
			RollNo:     "CS 1",
			Year:       "5th",
			Status:     "Gone",
			Attendance: null.Float64From(101),
			AvgMarks:   null.Float64From(-1),
		}
		err := bad.Validate(ctx, validate, svc)
		var vErrs validator.ValidationErrors
		require.ErrorAs(t, err, &vErrs)
		assert.Equal(t, map[string]string{
			"name":       "this field is required",
			"roll_no":    "roll_no can only contain alphanumeric characters",
			"year":       "year must be one of 1st, 2nd, 3rd or 4th",
			"status":     "status must be one of Active, Warning or Critical",
			"attendance": "must be between 0 and 100",
			"avg_marks":  "must be between 0 and 100",
		}, core.TranslateFieldErrors(vErrs, translator))
	})
}

func TestService_Update(t *testing.T) {
	ctx := context.Background()
	svc, repo := setup(t)
	validate, _ := testutil.NewValidator()
	orig := testutil.CreateStudent(t, repo, "Ann", "CS1", "1st", "Dr. X", 90, 80)
	testutil.CreateStudent(t, repo, "Ben", "CS2", "1st", "Dr. X", 90, 80)

	us := student.UpdateStudent{Status: student.StatusWarning, AvgMarks: null.Float64From(60)}
	require.NoError(t, us.Validate(ctx, orig, validate, svc))
	s, err := svc.Update(ctx, orig.ID, us)
	require.NoError(t, err)
	assert.Equal(t, "Ann", s.Name)
	assert.Equal(t, "CS1", s.RollNo)
	assert.Equal(t, null.Float64From(90), s.Attendance)
	assert.Equal(t, null.Float64From(60), s.AvgMarks)
	assert.Equal(t, student.StatusWarning, s.Status)

	// keeping its own roll number is fine, taking another one is not
	us = student.UpdateStudent{RollNo: "CS1"}
	assert.NoError(t, us.Validate(ctx, orig, validate, svc))
	us = student.UpdateStudent{RollNo: "CS2"}
	assert.Error(t, us.Validate(ctx, orig, validate, svc))

	_, err = svc.Update(ctx, 404, student.UpdateStudent{})
	assert.Equal(t, student.ErrNotFound, err)
}

func TestService_QueryAndDelete(t *testing.T) {
	ctx := context.Background()
	svc, repo := setup(t)
	a := testutil.CreateStudent(t, repo, "Ann", "CS1", "1st", "Dr. X", 90, 80)
	testutil.CreateStudent(t, repo, "Ben", "CS2", "2nd", "Dr. Y", 90, 80)

	students, err := svc.Query(ctx, &student.QueryFilter{Year: " 2nd "}, nil)
	require.NoError(t, err)
	require.Len(t, students, 1)
	assert.Equal(t, "Ben", students[0].Name)

	// unknown ordering fields are ignored
	students, err = svc.Query(ctx, nil, []core.DBOrdering{{Field: "password"}, {Field: "name", Ascending: false}})
	require.NoError(t, err)
	assert.Equal(t, "Ben", students[0].Name)

	require.NoError(t, svc.Delete(ctx, a.ID))
	_, err = svc.GetByID(ctx, a.ID)
	assert.Equal(t, student.ErrNotFound, err)
}

func TestService_Profile(t *testing.T) {
	ctx := context.Background()
	svc, repo := setup(t)
	s := testutil.CreateStudent(t, repo, "John", "CS001", "1st", "Dr. X", 92, 85)

	p, err := svc.Profile(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, s, p.Student)
	assert.Equal(t, 85, p.Metrics.AverageMarks)
	assert.Equal(t, 92, p.Metrics.AverageAttendance)
	assert.Equal(t, 42500.0, p.Metrics.FeeDetails.PaidFees)
	assert.False(t, p.Metrics.Synthetic)
	assert.Equal(t, risk.ZoneGreen, p.Assessment.Zone)
	assert.Equal(t, 87, p.Assessment.Score) // 34 + 32.2 + 21.25

	_, err = svc.Profile(ctx, 404)
	assert.Equal(t, student.ErrNotFound, err)
}

func TestService_RiskReport(t *testing.T) {
	ctx := context.Background()
	svc, repo := setup(t)
	testutil.CreateStudent(t, repo, "John", "CS001", "1st", "Dr. X", 92, 85)   // green
	testutil.CreateStudent(t, repo, "Mike", "CS053", "2nd", "Dr. X", 78, 76)   // yellow (73)
	testutil.CreateStudent(t, repo, "Tyler", "CS112", "3rd", "Dr. Y", 65, 58)  // red (53)
	testutil.CreateStudent(t, repo, "Brandon", "CS064", "2nd", "Dr. X", 70, 54) // red (54)
	testutil.CreateStudent(t, repo, "Nobody", "CS999", "4th", "", -1, -1)      // synthetic, green

	report, err := svc.RiskReport(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, risk.Summary{Green: 2, Yellow: 1, Red: 2, Total: 5}, report.Summary)
	assert.Len(t, report.Green, 2)
	require.Len(t, report.Yellow, 1)
	assert.Equal(t, 73, report.Yellow[0].Score)
	assert.Len(t, report.Red, 2)
	assert.Empty(t, report.Unscored)

	report, err = svc.RiskReport(ctx, &student.QueryFilter{Mentor: "Dr. Y"})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Summary.Total)
	assert.Equal(t, "Tyler", report.Red[0].Name)

	t.Run("digests", func(t *testing.T) {
		digests, err := svc.Digests(ctx, nil)
		require.NoError(t, err)
		require.Len(t, digests, 2)
		assert.Equal(t, "Dr. X", digests[0].Mentor)
		names := make([]string, 0, len(digests[0].Students))
		for _, e := range digests[0].Students {
			names = append(names, e.Name)
		}
		assert.Equal(t, []string{"Brandon", "Mike"}, names)
		assert.Equal(t, "Dr. Y", digests[1].Mentor)
	})
}

func TestService_RiskReportUnscored(t *testing.T) {
	ctx := context.Background()
	svc, repo := setup(t, metrics.WithTotalFees(0))
	s := testutil.CreateStudent(t, repo, "John", "CS001", "1st", "Dr. X", 92, 85)

	report, err := svc.RiskReport(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Summary.Total)
	require.Len(t, report.Unscored, 1)
	assert.Equal(t, s.ID, report.Unscored[0].ID)
	assert.Equal(t, risk.ErrInvalidFactors.Error(), report.Unscored[0].Reason)

	_, err = svc.Profile(ctx, s.ID)
	assert.ErrorIs(t, err, risk.ErrInvalidFactors)
}
