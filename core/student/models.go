package student

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/mentorship/core"
	"github.com/trezcool/mentorship/core/metrics"
)

// Statuses
const (
	StatusActive   = "Active"
	StatusWarning  = "Warning"
	StatusCritical = "Critical"
)

var (
	Statuses = []string{StatusActive, StatusWarning, StatusCritical}
	Years    = []string{"1st", "2nd", "3rd", "4th"}
)

type Student struct {
	ID         int          `json:"id"`
	Name       string       `json:"name"`
	RollNo     string       `json:"roll_no"`
	Year       string       `json:"year"`
	Email      string       `json:"email"`
	Attendance null.Float64 `json:"attendance"`
	AvgMarks   null.Float64 `json:"avg_marks"`
	Status     string       `json:"status"`
	Department string       `json:"department"`
	Mentor     string       `json:"mentor"`
	CreatedAt  time.Time    `json:"created_at"` // UTC
	UpdatedAt  time.Time    `json:"updated_at"` // UTC
}

// Baseline returns the real performance data of the student, if any.
func (s Student) Baseline() *metrics.Baseline {
	return &metrics.Baseline{Attendance: s.Attendance, AvgMarks: s.AvgMarks}
}

// NewStudent contains information needed to create a new Student.
type NewStudent struct {
	Name       string       `json:"name" validate:"required,notblank"`
	RollNo     string       `json:"roll_no" validate:"required,alphanum"`
	Year       string       `json:"year"`
	Email      string       `json:"email" validate:"omitempty,email"`
	Attendance null.Float64 `json:"attendance"`
	AvgMarks   null.Float64 `json:"avg_marks"`
	Status     string       `json:"status"`
	Department string       `json:"department"`
	Mentor     string       `json:"mentor"`
}

func (ns *NewStudent) Validate(ctx context.Context, validate *validator.Validate, svc ServiceInterface) error {
	ns.Name = core.CleanString(ns.Name)
	ns.RollNo = core.CleanString(ns.RollNo)
	ns.Year = core.CleanString(ns.Year)
	ns.Email = core.CleanString(ns.Email, true /* lower */)
	ns.Status = core.CleanString(ns.Status)
	ns.Department = core.CleanString(ns.Department)
	ns.Mentor = core.CleanString(ns.Mentor)

	if err := validate.Struct(ns); err != nil {
		return err
	}
	return svc.CheckUniqueness(ctx, ns.RollNo)
}

// UpdateStudent defines what information may be provided to modify an existing Student.
// Blank strings and unset numbers keep the current values.
type UpdateStudent struct {
	Name       string       `json:"name"`
	RollNo     string       `json:"roll_no" validate:"omitempty,alphanum"`
	Year       string       `json:"year"`
	Email      string       `json:"email" validate:"omitempty,email"`
	Attendance null.Float64 `json:"attendance"`
	AvgMarks   null.Float64 `json:"avg_marks"`
	Status     string       `json:"status"`
	Department string       `json:"department"`
	Mentor     string       `json:"mentor"`
}

func (us *UpdateStudent) Validate(ctx context.Context, orig Student, validate *validator.Validate, svc ServiceInterface) error {
	keep := func(val, origVal string, lower ...bool) string {
		if v := core.CleanString(val, lower...); v != "" {
			return v
		}
		return origVal
	}
	us.Name = keep(us.Name, orig.Name)
	us.RollNo = keep(us.RollNo, orig.RollNo)
	us.Year = keep(us.Year, orig.Year)
	us.Email = keep(us.Email, orig.Email, true /* lower */)
	us.Status = keep(us.Status, orig.Status)
	us.Department = keep(us.Department, orig.Department)
	us.Mentor = keep(us.Mentor, orig.Mentor)
	if !us.Attendance.Valid {
		us.Attendance = orig.Attendance
	}
	if !us.AvgMarks.Valid {
		us.AvgMarks = orig.AvgMarks
	}

	if err := validate.Struct(us); err != nil {
		return err
	}
	return svc.CheckUniqueness(ctx, us.RollNo, orig.ID)
}

type QueryFilter struct {
	Search     string `query:"search"`
	Mentor     string `query:"mentor"`
	Year       string `query:"year"`
	Department string `query:"department"`
	Status     string `query:"status"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.Mentor == "" && qf.Year == "" && qf.Department == "" && qf.Status == ""
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Mentor = core.CleanString(qf.Mentor)
	qf.Year = core.CleanString(qf.Year)
	qf.Department = core.CleanString(qf.Department)
	qf.Status = core.CleanString(qf.Status)
}
