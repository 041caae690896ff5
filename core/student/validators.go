package student

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/mentorship/core"
)

var (
	oneOfYearText   = "year must be one of 1st, 2nd, 3rd or 4th"
	oneOfStatusText = "status must be one of Active, Warning or Critical"
	percentText     = "must be between 0 and 100"
)

// InitValidators registers the student validators & translations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	validate.RegisterStructValidation(studentStructValidation, NewStudent{}, UpdateStudent{})
	core.RegisterCustomTranslation(validate, translator, "student_year", oneOfYearText)
	core.RegisterCustomTranslation(validate, translator, "student_status", oneOfStatusText)
	core.RegisterCustomTranslation(validate, translator, "student_percent", percentText)
}

// studentStructValidation checks the year, the status and the percentages of NewStudent and UpdateStudent.
func studentStructValidation(sl validator.StructLevel) {
	var year, status string
	var nums map[string]null.Float64

	switch s := sl.Current().Interface().(type) {
	case NewStudent:
		year, status = s.Year, s.Status
		nums = map[string]null.Float64{"attendance": s.Attendance, "avg_marks": s.AvgMarks}
	case UpdateStudent:
		year, status = s.Year, s.Status
		nums = map[string]null.Float64{"attendance": s.Attendance, "avg_marks": s.AvgMarks}
	default:
		return
	}

	if year != "" && !core.StringInSlice(year, Years) {
		sl.ReportError(year, "year", "Year", "student_year", "")
	}
	if status != "" && !core.StringInSlice(status, Statuses) {
		sl.ReportError(status, "status", "Status", "student_status", "")
	}
	for name, v := range nums {
		if v.Valid && (v.Float64 < 0 || v.Float64 > 100) {
			sl.ReportError(v.Float64, name, name, "student_percent", "")
		}
	}
}
