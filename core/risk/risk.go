// Package risk classifies a student into a risk zone from three weighted factors:
// academic performance, attendance and fee payment.
package risk

import (
	"math"

	"github.com/pkg/errors"

	"github.com/trezcool/mentorship/core"
)

// ErrInvalidFactors is returned when the factors cannot be scored (non-positive total fees or NaN inputs).
var ErrInvalidFactors = errors.New("invalid risk factors")

// Zones
const (
	ZoneGreen  Zone = "green"
	ZoneYellow Zone = "yellow"
	ZoneRed    Zone = "red"
)

// Urgencies
const (
	UrgencyLow    Urgency = "low"
	UrgencyMedium Urgency = "medium"
	UrgencyHigh   Urgency = "high"
)

// Statuses
const (
	StatusGood     Status = "good"
	StatusModerate Status = "moderate"
	StatusPoor     Status = "poor"
)

// Factor weights of the composite score.
const (
	AcademicWeight   = 0.40
	AttendanceWeight = 0.35
	FinancialWeight  = 0.25
)

var Zones = []Zone{ZoneGreen, ZoneYellow, ZoneRed}

type (
	Zone    string
	Urgency string
	Status  string

	// Factors are the raw inputs of an assessment.
	Factors struct {
		Marks      float64 `json:"marks"`      // academic average, 0-100
		Attendance float64 `json:"attendance"` // percentage, 0-100
		FeesPaid   float64 `json:"fees_paid"`
		TotalFees  float64 `json:"total_fees"` // > 0
	}

	FactorAssessment struct {
		Score   int    `json:"score"`
		Status  Status `json:"status"`
		Message string `json:"message"`
	}

	FactorAssessments struct {
		Academic   FactorAssessment `json:"academic"`
		Attendance FactorAssessment `json:"attendance"`
		Financial  FactorAssessment `json:"financial"`
	}

	Assessment struct {
		Zone            Zone              `json:"zone"`
		Score           int               `json:"score"`
		Factors         FactorAssessments `json:"factors"`
		Recommendations []string          `json:"recommendations"`
		Urgency         Urgency           `json:"urgency"`
	}
)

// Validate checks the preconditions of Assess.
func (f Factors) Validate() error {
	var flds []core.FieldError
	for _, v := range []struct {
		name string
		val  float64
	}{
		{"marks", f.Marks},
		{"attendance", f.Attendance},
		{"fees_paid", f.FeesPaid},
		{"total_fees", f.TotalFees},
	} {
		if math.IsNaN(v.val) {
			flds = append(flds, core.FieldError{Field: v.name, Error: "must be a number"})
		}
	}
	if !math.IsNaN(f.TotalFees) && (f.TotalFees <= 0 || math.IsInf(f.TotalFees, 0)) {
		flds = append(flds, core.FieldError{Field: "total_fees", Error: "total fees must be greater than 0"})
	}
	if flds != nil {
		return core.NewValidationError(ErrInvalidFactors, flds...)
	}
	return nil
}

type (
	threshold struct {
		min     float64
		status  Status
		message string
	}

	dimension struct {
		thresholds      []threshold // sorted by descending min; the last one is the fallback
		recommendations map[Status][]string
	}
)

func (d dimension) assess(score float64) FactorAssessment {
	for _, th := range d.thresholds {
		if score >= th.min {
			return FactorAssessment{Score: core.Round(score), Status: th.status, Message: th.message}
		}
	}
	last := d.thresholds[len(d.thresholds)-1]
	return FactorAssessment{Score: core.Round(score), Status: last.status, Message: last.message}
}

var (
	academic = dimension{
		thresholds: []threshold{
			{85, StatusGood, "Excellent academic performance"},
			{70, StatusModerate, "Satisfactory performance, room for improvement"},
			{math.Inf(-1), StatusPoor, "Poor academic performance requires immediate attention"},
		},
		recommendations: map[Status][]string{
			StatusPoor: {
				"Schedule immediate academic counseling session",
				"Arrange additional tutoring support",
			},
			StatusModerate: {
				"Consider study group participation",
				"Schedule mentor meeting to discuss study strategies",
			},
		},
	}

	attendance = dimension{
		thresholds: []threshold{
			{90, StatusGood, "Excellent attendance record"},
			{75, StatusModerate, "Attendance needs improvement"},
			{math.Inf(-1), StatusPoor, "Poor attendance - critical issue"},
		},
		recommendations: map[Status][]string{
			StatusPoor: {
				"Investigate attendance barriers and provide support",
				"Implement attendance monitoring plan",
			},
			StatusModerate: {
				"Send attendance reminder notifications",
			},
		},
	}

	financial = dimension{
		thresholds: []threshold{
			{80, StatusGood, "Fees are up to date"},
			{50, StatusModerate, "Some pending fees require attention"},
			{math.Inf(-1), StatusPoor, "Significant outstanding fees"},
		},
		recommendations: map[Status][]string{
			StatusPoor: {
				"Discuss payment plan options",
				"Explore scholarship/financial aid opportunities",
			},
			StatusModerate: {
				"Send fee payment reminders",
			},
		},
	}

	fallbackRecommendations = []string{
		"Continue current performance level",
		"Consider leadership or mentoring opportunities",
	}
)

// Assess scores the factors and classifies the student.
// Marks, attendance and the fee payment percentage are clamped to [0, 100].
// It is a pure function, safe for concurrent use.
func Assess(f Factors) (Assessment, error) {
	if err := f.Validate(); err != nil {
		return Assessment{}, err
	}

	academicScore := core.Clamp(f.Marks, 0, 100)
	attendanceScore := core.Clamp(f.Attendance, 0, 100)
	financialScore := core.Clamp(f.FeesPaid/f.TotalFees*100, 0, 100)

	factors := FactorAssessments{
		Academic:   academic.assess(academicScore),
		Attendance: attendance.assess(attendanceScore),
		Financial:  financial.assess(financialScore),
	}

	overall := academicScore*AcademicWeight + attendanceScore*AttendanceWeight + financialScore*FinancialWeight
	zone, urgency := classify(overall, factors)

	recs := make([]string, 0, 6)
	recs = append(recs, academic.recommendations[factors.Academic.Status]...)
	recs = append(recs, attendance.recommendations[factors.Attendance.Status]...)
	recs = append(recs, financial.recommendations[factors.Financial.Status]...)
	if zone == ZoneGreen && len(recs) == 0 {
		recs = append(recs, fallbackRecommendations...)
	}

	return Assessment{
		Zone:            zone,
		Score:           core.Round(overall),
		Factors:         factors,
		Recommendations: recs,
		Urgency:         urgency,
	}, nil
}

// classify picks the zone on the unrounded composite; a poor academic or attendance status
// keeps a student out of green whatever the composite.
func classify(overall float64, f FactorAssessments) (Zone, Urgency) {
	switch {
	case overall >= 80 && f.Academic.Status != StatusPoor && f.Attendance.Status != StatusPoor:
		return ZoneGreen, UrgencyLow
	case overall >= 60 || f.Academic.Status == StatusModerate || f.Attendance.Status == StatusModerate:
		return ZoneYellow, UrgencyMedium
	default:
		return ZoneRed, UrgencyHigh
	}
}
