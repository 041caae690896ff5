package survey

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/mentorship/core"
)

var (
	statusTag  = "survey_status"
	statusText = "status must be one of Draft, Active or Completed"

	audienceTag  = "survey_audience"
	audienceText = "target audience must be one of All Students, 1st Year, 2nd Year, 3rd Year, 4th Year or Mentors"

	questionTypeTag  = "survey_qtype"
	questionTypeText = "type must be one of text, textarea, radio, checkbox or rating"

	optionsTag  = "survey_options"
	optionsText = "choice questions need at least one option"
)

// InitValidators registers the survey validators & translations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	validate.RegisterStructValidation(surveyStructValidation, NewSurvey{}, UpdateSurvey{})
	validate.RegisterStructValidation(questionStructValidation, NewQuestion{})
	core.RegisterCustomTranslation(validate, translator, statusTag, statusText)
	core.RegisterCustomTranslation(validate, translator, audienceTag, audienceText)
	core.RegisterCustomTranslation(validate, translator, questionTypeTag, questionTypeText)
	core.RegisterCustomTranslation(validate, translator, optionsTag, optionsText)
}

func surveyStructValidation(sl validator.StructLevel) {
	var status, audience string
	switch s := sl.Current().Interface().(type) {
	case NewSurvey:
		audience = s.TargetAudience
	case UpdateSurvey:
		status, audience = s.Status, s.TargetAudience
	default:
		return
	}

	if status != "" && !core.StringInSlice(status, Statuses) {
		sl.ReportError(status, "status", "Status", statusTag, "")
	}
	if audience != "" && !core.StringInSlice(audience, Audiences) {
		sl.ReportError(audience, "target_audience", "TargetAudience", audienceTag, "")
	}
}

func questionStructValidation(sl validator.StructLevel) {
	q, ok := sl.Current().Interface().(NewQuestion)
	if !ok || q.Type == "" {
		return
	}
	if !core.StringInSlice(q.Type, QuestionTypes) {
		sl.ReportError(q.Type, "type", "Type", questionTypeTag, "")
		return
	}
	if (q.Type == QuestionRadio || q.Type == QuestionCheckbox) && len(q.Options) == 0 {
		sl.ReportError(q.Options, "options", "Options", optionsTag, "")
	}
}
