package survey

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/mentorship/core"
)

// Statuses
const (
	StatusDraft     = "Draft"
	StatusActive    = "Active"
	StatusCompleted = "Completed"
)

// Target audiences
const (
	AudienceAllStudents = "All Students"
	AudienceFirstYear   = "1st Year"
	AudienceSecondYear  = "2nd Year"
	AudienceThirdYear   = "3rd Year"
	AudienceFourthYear  = "4th Year"
	AudienceMentors     = "Mentors"
)

// Question types
const (
	QuestionText     = "text"
	QuestionTextarea = "textarea"
	QuestionRadio    = "radio"
	QuestionCheckbox = "checkbox"
	QuestionRating   = "rating"
)

const (
	MinRating = 1
	MaxRating = 5
)

var (
	Statuses      = []string{StatusDraft, StatusActive, StatusCompleted}
	Audiences     = []string{AudienceAllStudents, AudienceFirstYear, AudienceSecondYear, AudienceThirdYear, AudienceFourthYear, AudienceMentors}
	QuestionTypes = []string{QuestionText, QuestionTextarea, QuestionRadio, QuestionCheckbox, QuestionRating}
)

// YearAudience returns the audience of the students of a year ("1st" -> "1st Year").
func YearAudience(year string) string {
	if year == "" {
		return ""
	}
	return year + " Year"
}

type Survey struct {
	ID             string     `json:"id"`
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	Status         string     `json:"status"`
	TargetAudience string     `json:"target_audience"`
	EndDate        null.Time  `json:"end_date"`
	CreatedBy      string     `json:"created_by"`
	Questions      []Question `json:"questions"`
	Responses      int        `json:"responses"`
	CreatedAt      time.Time  `json:"created_at"` // UTC
	UpdatedAt      time.Time  `json:"updated_at"` // UTC
}

func (s Survey) Question(id string) (Question, bool) {
	for _, q := range s.Questions {
		if q.ID == id {
			return q, true
		}
	}
	return Question{}, false
}

type Question struct {
	ID       string   `json:"id"`
	Type     string   `json:"type"`
	Question string   `json:"question"`
	Options  []string `json:"options,omitempty"`
	Required bool     `json:"required"`
}

func (q Question) HasOptions() bool {
	return q.Type == QuestionRadio || q.Type == QuestionCheckbox
}

// Answer holds the answer to one question: Text for text & textarea, Choices for radio (exactly one)
// & checkbox, Rating for rating.
type Answer struct {
	Text    string   `json:"text,omitempty"`
	Choices []string `json:"choices,omitempty"`
	Rating  int      `json:"rating,omitempty"`
}

func (a Answer) IsEmpty() bool {
	return a.Text == "" && len(a.Choices) == 0 && a.Rating == 0
}

type Response struct {
	ID          string            `json:"id"`
	SurveyID    string            `json:"survey_id"`
	UserID      string            `json:"user_id"`
	Answers     map[string]Answer `json:"answers"` // {questionID: Answer}
	SubmittedAt time.Time         `json:"submitted_at"` // UTC
}

// NewQuestion contains information needed to add a Question to a Survey.
type NewQuestion struct {
	Type     string   `json:"type" validate:"required"`
	Question string   `json:"question" validate:"required,notblank"`
	Options  []string `json:"options"`
	Required bool     `json:"required"`
}

func (nq *NewQuestion) clean() {
	nq.Type = core.CleanString(nq.Type, true /* lower */)
	nq.Question = core.CleanString(nq.Question)
	if nq.Type != QuestionRadio && nq.Type != QuestionCheckbox {
		nq.Options = nil
		return
	}
	opts := make([]string, 0, len(nq.Options))
	for _, opt := range nq.Options {
		if opt = core.CleanString(opt); opt != "" && !core.StringInSlice(opt, opts) {
			opts = append(opts, opt)
		}
	}
	nq.Options = opts
}

func newQuestions(nqs []NewQuestion) []Question {
	questions := make([]Question, 0, len(nqs))
	for i, nq := range nqs {
		questions = append(questions, Question{
			ID:       fmt.Sprintf("q%d", i+1),
			Type:     nq.Type,
			Question: nq.Question,
			Options:  nq.Options,
			Required: nq.Required,
		})
	}
	return questions
}

// NewSurvey contains information needed to create a new Survey.
type NewSurvey struct {
	Title          string        `json:"title" validate:"required,notblank"`
	Description    string        `json:"description" validate:"required,notblank"`
	TargetAudience string        `json:"target_audience"`
	EndDate        null.Time     `json:"end_date"`
	Questions      []NewQuestion `json:"questions" validate:"required,min=1,dive"`
}

func (ns *NewSurvey) Validate(validate *validator.Validate) error {
	ns.Title = core.CleanString(ns.Title)
	ns.Description = core.CleanString(ns.Description)
	ns.TargetAudience = core.CleanString(ns.TargetAudience)
	if ns.TargetAudience == "" {
		ns.TargetAudience = AudienceAllStudents
	}
	for i := range ns.Questions {
		ns.Questions[i].clean()
	}
	return validate.Struct(ns)
}

// UpdateSurvey defines what information may be provided to modify an existing Survey.
// Blank fields keep the current values; Questions replace the current ones when set.
type UpdateSurvey struct {
	Title          string        `json:"title"`
	Description    string        `json:"description"`
	Status         string        `json:"status"`
	TargetAudience string        `json:"target_audience"`
	EndDate        null.Time     `json:"end_date"`
	Questions      []NewQuestion `json:"questions" validate:"omitempty,min=1,dive"`
}

func (us *UpdateSurvey) Validate(orig Survey, validate *validator.Validate) error {
	keep := func(val, origVal string) string {
		if v := core.CleanString(val); v != "" {
			return v
		}
		return origVal
	}
	us.Title = keep(us.Title, orig.Title)
	us.Description = keep(us.Description, orig.Description)
	us.Status = keep(us.Status, orig.Status)
	us.TargetAudience = keep(us.TargetAudience, orig.TargetAudience)
	if !us.EndDate.Valid {
		us.EndDate = orig.EndDate
	}
	for i := range us.Questions {
		us.Questions[i].clean()
	}

	if err := validate.Struct(us); err != nil {
		return err
	}
	if us.Questions != nil && orig.Responses > 0 {
		return core.NewValidationError(ErrQuestionsLocked, core.FieldError{Field: "questions", Error: ErrQuestionsLocked.Error()})
	}
	return nil
}

type QueryFilter struct {
	Search    string   `query:"search"`
	Status    string   `query:"status"`
	Audiences []string `query:"audience"`
	CreatedBy string   `query:"created_by"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.Status == "" && qf.Audiences == nil && qf.CreatedBy == ""
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Status = core.CleanString(qf.Status)
	qf.CreatedBy = core.CleanString(qf.CreatedBy)
}

type ResponseFilter struct {
	SurveyID string `query:"survey_id"`
	UserID   string `query:"user_id"`
}

// Submission is the body of a survey response.
type Submission struct {
	Answers map[string]Answer `json:"answers"`
}

func (sub *Submission) clean() {
	for id, a := range sub.Answers {
		a.Text = core.CleanString(a.Text)
		choices := make([]string, 0, len(a.Choices))
		for _, c := range a.Choices {
			if c = core.CleanString(c); c != "" && !core.StringInSlice(c, choices) {
				choices = append(choices, c)
			}
		}
		a.Choices = choices
		if len(a.Choices) == 0 {
			a.Choices = nil
		}
		sub.Answers[id] = a
	}
}
