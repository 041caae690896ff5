// Package metrics derives per-subject and overall student metrics from a student's
// attendance and average marks, or from a synthetic profile when no real data exists.
package metrics

import (
	"math"
	"math/rand"
	"time"

	"github.com/volatiletech/null/v8"
	"gonum.org/v1/gonum/stat"

	"github.com/trezcool/mentorship/core"
	"github.com/trezcool/mentorship/core/risk"
)

const DefaultTotalFees = 50000

var (
	DefaultSubjects = []string{"Mathematics", "Physics", "Chemistry", "Computer Science", "English"}

	months       = []string{"Jan", "Feb", "Mar", "Apr", "May", "Jun"}
	trendOffsets = []float64{-10, -8, -5, -2, 0, 0}
)

type (
	// Source yields uniformly distributed values in [0, 1).
	Source interface {
		Float64() float64
	}

	// Baseline holds the real data of a student; it is used only when both values are set.
	Baseline struct {
		Attendance null.Float64 `json:"attendance"`
		AvgMarks   null.Float64 `json:"avg_marks"`
	}

	Subject struct {
		Name       string `json:"name"`
		Marks      int    `json:"marks"`
		Attendance int    `json:"attendance"`
		Grade      string `json:"grade"`
	}

	MonthlyMarks struct {
		Month string `json:"month"`
		Marks int    `json:"marks"`
	}

	AttendanceBreakdown struct {
		Present float64 `json:"present"`
		Absent  float64 `json:"absent"`
	}

	FeeDetails struct {
		TotalFees   float64 `json:"total_fees"`
		PaidFees    float64 `json:"paid_fees"`
		PendingFees float64 `json:"pending_fees"`
	}

	StudentMetrics struct {
		Subjects          []Subject           `json:"subjects"`
		AverageMarks      int                 `json:"average_marks"`
		AverageAttendance int                 `json:"average_attendance"`
		FeeDetails        FeeDetails          `json:"fee_details"`
		Trend             []MonthlyMarks      `json:"trend"`
		Attendance        AttendanceBreakdown `json:"attendance"`
		Synthetic         bool                `json:"synthetic"` // no real baseline was available
	}
)

// RiskFactors returns the inputs of the risk classifier for these metrics.
func (m StudentMetrics) RiskFactors() risk.Factors {
	return risk.Factors{
		Marks:      float64(m.AverageMarks),
		Attendance: float64(m.AverageAttendance),
		FeesPaid:   m.FeeDetails.PaidFees,
		TotalFees:  m.FeeDetails.TotalFees,
	}
}

// Grade maps marks to a letter grade.
func Grade(marks float64) string {
	switch {
	case marks >= 90:
		return "A+"
	case marks >= 85:
		return "A"
	case marks >= 75:
		return "B+"
	case marks >= 65:
		return "B"
	case marks >= 55:
		return "C+"
	case marks >= 45:
		return "C"
	default:
		return "F"
	}
}

type Option func(*Aggregator)

func WithTotalFees(total float64) Option {
	return func(a *Aggregator) { a.totalFees = total }
}

func WithSubjects(names ...string) Option {
	return func(a *Aggregator) {
		if len(names) > 0 {
			a.subjects = append([]string(nil), names...)
		}
	}
}

// WithSource sets the factory of the random source used by each Aggregate call.
func WithSource(newSource func() Source) Option {
	return func(a *Aggregator) { a.newSource = newSource }
}

// Aggregator is immutable once built; it is safe for concurrent use as long as
// the sources it creates are not shared between calls.
type Aggregator struct {
	totalFees float64
	subjects  []string
	newSource func() Source
}

func NewAggregator(opts ...Option) *Aggregator {
	a := &Aggregator{
		totalFees: DefaultTotalFees,
		subjects:  DefaultSubjects,
		newSource: func() Source { return rand.New(rand.NewSource(time.Now().UnixNano())) },
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Aggregator) TotalFees() float64 {
	return a.totalFees
}

type profile struct {
	attendance float64
	marks      float64
	feeRatio   float64
	synthetic  bool
}

func newProfile(studentID int, base *Baseline) profile {
	if base != nil && base.Attendance.Valid && base.AvgMarks.Valid {
		p := profile{attendance: base.Attendance.Float64, marks: base.AvgMarks.Float64}
		switch {
		case p.attendance < 70 || p.marks < 60:
			p.feeRatio = 0.30
		case p.attendance < 80 || p.marks < 75:
			p.feeRatio = 0.60
		default:
			p.feeRatio = 0.85
		}
		return p
	}

	v := float64(studentID % 10)
	if v < 0 {
		v = -v
	}
	return profile{
		attendance: 85 + v,
		marks:      78 + v,
		feeRatio:   0.70 + 0.03*v,
		synthetic:  true,
	}
}

// spread is the width of the random perturbation; higher performers get a tighter one.
func spread(marks float64, high, mid, low float64) float64 {
	switch {
	case marks > 80:
		return high
	case marks > 70:
		return mid
	default:
		return low
	}
}

// Aggregate derives the metrics of a student. base may be nil.
// Random draws happen in a fixed order: the six trend months, then marks and attendance per subject.
func (a *Aggregator) Aggregate(studentID int, base *Baseline) StudentMetrics {
	p := newProfile(studentID, base)
	src := a.newSource()

	trendVariation := spread(p.marks, 5, 8, 12)
	trend := make([]MonthlyMarks, 0, len(months))
	for i, month := range months {
		marks := math.Max(0, p.marks+trendOffsets[i]+src.Float64()*trendVariation)
		trend = append(trend, MonthlyMarks{Month: month, Marks: core.Round(math.Min(100, marks))})
	}

	subjectVariation := spread(p.marks, 10, 15, 20)
	subjects := make([]Subject, 0, len(a.subjects))
	marks := make([]float64, 0, len(a.subjects))
	attendance := make([]float64, 0, len(a.subjects))
	for _, name := range a.subjects {
		m := core.Round(core.Clamp(p.marks+(src.Float64()-0.5)*subjectVariation, 0, 100))
		att := core.Round(core.Clamp(p.attendance+(src.Float64()-0.5)*10, 0, 100))
		subjects = append(subjects, Subject{Name: name, Marks: m, Attendance: att, Grade: Grade(float64(m))})
		marks = append(marks, float64(m))
		attendance = append(attendance, float64(att))
	}

	var avgMarks, avgAttendance int
	if len(subjects) > 0 {
		avgMarks = core.Round(stat.Mean(marks, nil))
		avgAttendance = core.Round(stat.Mean(attendance, nil))
	}

	paid := math.Round(a.totalFees * p.feeRatio)
	return StudentMetrics{
		Subjects:          subjects,
		AverageMarks:      avgMarks,
		AverageAttendance: avgAttendance,
		FeeDetails: FeeDetails{
			TotalFees:   a.totalFees,
			PaidFees:    paid,
			PendingFees: a.totalFees - paid,
		},
		Trend: trend,
		Attendance: AttendanceBreakdown{
			Present: core.Clamp(p.attendance, 0, 100),
			Absent:  core.Clamp(100-p.attendance, 0, 100),
		},
		Synthetic: p.synthetic,
	}
}
