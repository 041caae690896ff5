package survey

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat"

	"github.com/trezcool/mentorship/core"
)

var (
	// errors
	ErrNotFound         = errors.New("survey not found")
	ErrNotActive        = errors.New("survey is not accepting responses")
	ErrAlreadyResponded = errors.New("you have already responded to this survey")
	ErrInvalidAnswers   = errors.New("invalid answers")
	ErrQuestionsLocked  = errors.New("questions cannot be changed once responses were submitted")
)

type (
	Repository interface {
		CreateSurvey(ctx context.Context, s Survey) (Survey, error)
		// QuerySurveys applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on one of Survey.Title or Survey.Description.
		// QueryFilter.Audiences matches surveys targeting any of the provided audiences.
		QuerySurveys(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Survey, error)
		GetSurvey(ctx context.Context, id string) (Survey, error)
		UpdateSurvey(ctx context.Context, s Survey) (Survey, error)
		// DeleteSurveysByID also deletes the responses of the surveys.
		DeleteSurveysByID(ctx context.Context, ids ...string) (int, error)
		// CreateResponse stores r and increments the response counter of its survey.
		// It fails with ErrAlreadyResponded if the user already responded to the survey.
		CreateResponse(ctx context.Context, r Response) (Response, error)
		QueryResponses(ctx context.Context, filter ResponseFilter) ([]Response, error)
	}

	ServiceInterface interface {
		Create(ctx context.Context, ns NewSurvey, createdBy string) (Survey, error)
		Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Survey, error)
		GetByID(ctx context.Context, id string) (Survey, error)
		Update(ctx context.Context, id string, us UpdateSurvey) (Survey, error)
		Delete(ctx context.Context, ids ...string) error
		AvailableFor(ctx context.Context, audiences ...string) ([]Survey, error)
		Submit(ctx context.Context, surveyID, userID string, sub Submission) (Response, error)
		Responses(ctx context.Context, filter ResponseFilter) ([]Response, error)
		HasResponded(ctx context.Context, surveyID, userID string) (bool, error)
		Results(ctx context.Context, surveyID string) (Results, error)
	}

	Service struct {
		repo Repository
	}
)

var _ ServiceInterface = (*Service)(nil)

// OrderingFields are the fields surveys can be sorted by.
var OrderingFields = []string{"title", "status", "end_date", "responses", "created_at"}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create adds a Draft survey without responses.
func (svc *Service) Create(ctx context.Context, ns NewSurvey, createdBy string) (Survey, error) {
	now := time.Now().UTC()
	s := Survey{
		ID:             uuid.New().String(),
		Title:          ns.Title,
		Description:    ns.Description,
		Status:         StatusDraft,
		TargetAudience: ns.TargetAudience,
		EndDate:        ns.EndDate,
		CreatedBy:      createdBy,
		Questions:      newQuestions(ns.Questions),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	s, err := svc.repo.CreateSurvey(ctx, s)
	return s, errors.Wrap(err, "creating survey")
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Survey, error) {
	if filter != nil {
		filter.Clean()
	}
	surveys, err := svc.repo.QuerySurveys(ctx, filter, core.FilterOrderings(ordering, OrderingFields...))
	return surveys, errors.Wrap(err, "querying surveys")
}

func (svc *Service) GetByID(ctx context.Context, id string) (Survey, error) {
	return svc.repo.GetSurvey(ctx, id)
}

func (svc *Service) Update(ctx context.Context, id string, us UpdateSurvey) (Survey, error) {
	orig, err := svc.repo.GetSurvey(ctx, id)
	if err != nil {
		return Survey{}, err
	}
	orig.Title = us.Title
	orig.Description = us.Description
	orig.Status = us.Status
	orig.TargetAudience = us.TargetAudience
	orig.EndDate = us.EndDate
	if us.Questions != nil {
		orig.Questions = newQuestions(us.Questions)
	}
	orig.UpdatedAt = time.Now().UTC()

	s, err := svc.repo.UpdateSurvey(ctx, orig)
	return s, errors.Wrap(err, "updating survey")
}

func (svc *Service) Delete(ctx context.Context, ids ...string) error {
	_, err := svc.repo.DeleteSurveysByID(ctx, ids...)
	return errors.Wrap(err, "deleting surveys")
}

// AvailableFor returns the active surveys targeting all students or any of audiences.
func (svc *Service) AvailableFor(ctx context.Context, audiences ...string) ([]Survey, error) {
	filter := &QueryFilter{
		Status:    StatusActive,
		Audiences: append([]string{AudienceAllStudents}, audiences...),
	}
	return svc.Query(ctx, filter, []core.DBOrdering{{Field: "end_date", Ascending: true}})
}

// Submit records the answers of a user to an active survey.
func (svc *Service) Submit(ctx context.Context, surveyID, userID string, sub Submission) (Response, error) {
	s, err := svc.repo.GetSurvey(ctx, surveyID)
	if err != nil {
		return Response{}, err
	}
	if s.Status != StatusActive {
		return Response{}, core.NewValidationError(ErrNotActive)
	}

	if sub.Answers == nil {
		sub.Answers = make(map[string]Answer)
	}
	sub.clean()
	answers, err := checkAnswers(s, sub.Answers)
	if err != nil {
		return Response{}, err
	}

	r := Response{
		ID:          uuid.New().String(),
		SurveyID:    s.ID,
		UserID:      userID,
		Answers:     answers,
		SubmittedAt: time.Now().UTC(),
	}
	r, err = svc.repo.CreateResponse(ctx, r)
	if err != nil {
		if errors.Cause(err) == ErrAlreadyResponded {
			return Response{}, core.NewValidationError(ErrAlreadyResponded)
		}
		return Response{}, errors.Wrap(err, "creating survey response")
	}
	return r, nil
}

// checkAnswers validates answers against the questions of s and drops the empty ones.
func checkAnswers(s Survey, answers map[string]Answer) (map[string]Answer, error) {
	var flds []core.FieldError
	fail := func(qID, msg string) {
		flds = append(flds, core.FieldError{Field: "answers." + qID, Error: msg})
	}

	for qID := range answers {
		if _, ok := s.Question(qID); !ok {
			fail(qID, "unknown question")
		}
	}

	checked := make(map[string]Answer, len(answers))
	for _, q := range s.Questions {
		a := answers[q.ID]
		var ans Answer
		switch q.Type {
		case QuestionText, QuestionTextarea:
			ans.Text = a.Text
		case QuestionRadio:
			if len(a.Choices) > 1 {
				fail(q.ID, "choose only one option")
				continue
			}
			ans.Choices = a.Choices
		case QuestionCheckbox:
			ans.Choices = a.Choices
		case QuestionRating:
			if a.Rating != 0 && (a.Rating < MinRating || a.Rating > MaxRating) {
				fail(q.ID, fmt.Sprintf("rating must be between %d and %d", MinRating, MaxRating))
				continue
			}
			ans.Rating = a.Rating
		}

		invalid := false
		for _, c := range ans.Choices {
			if !core.StringInSlice(c, q.Options) {
				fail(q.ID, fmt.Sprintf("%q is not a valid option", c))
				invalid = true
				break
			}
		}
		if invalid {
			continue
		}

		if ans.IsEmpty() {
			if q.Required {
				fail(q.ID, "this question is required")
			}
			continue
		}
		checked[q.ID] = ans
	}

	if flds != nil {
		return nil, core.NewValidationError(ErrInvalidAnswers, flds...)
	}
	return checked, nil
}

func (svc *Service) Responses(ctx context.Context, filter ResponseFilter) ([]Response, error) {
	responses, err := svc.repo.QueryResponses(ctx, filter)
	return responses, errors.Wrap(err, "querying survey responses")
}

func (svc *Service) HasResponded(ctx context.Context, surveyID, userID string) (bool, error) {
	responses, err := svc.Responses(ctx, ResponseFilter{SurveyID: surveyID, UserID: userID})
	if err != nil {
		return false, err
	}
	return len(responses) > 0, nil
}

type (
	QuestionResult struct {
		ID           string         `json:"id"`
		Type         string         `json:"type"`
		Question     string         `json:"question"`
		Answered     int            `json:"answered"`
		OptionCounts map[string]int `json:"option_counts,omitempty"`
		RatingMean   float64        `json:"rating_mean,omitempty"`
		Texts        []string       `json:"texts,omitempty"`
	}

	Results struct {
		SurveyID  string           `json:"survey_id"`
		Title     string           `json:"title"`
		Responses int              `json:"responses"`
		Questions []QuestionResult `json:"questions"`
	}
)

// Results tallies the stored responses of a survey per question.
func (svc *Service) Results(ctx context.Context, surveyID string) (Results, error) {
	s, err := svc.repo.GetSurvey(ctx, surveyID)
	if err != nil {
		return Results{}, err
	}
	responses, err := svc.Responses(ctx, ResponseFilter{SurveyID: s.ID})
	if err != nil {
		return Results{}, err
	}

	res := Results{SurveyID: s.ID, Title: s.Title, Responses: len(responses), Questions: make([]QuestionResult, 0, len(s.Questions))}
	for _, q := range s.Questions {
		qr := QuestionResult{ID: q.ID, Type: q.Type, Question: q.Question}
		if q.HasOptions() {
			qr.OptionCounts = make(map[string]int, len(q.Options))
			for _, opt := range q.Options {
				qr.OptionCounts[opt] = 0
			}
		}

		var ratings []float64
		for _, r := range responses {
			a, ok := r.Answers[q.ID]
			if !ok || a.IsEmpty() {
				continue
			}
			qr.Answered++
			switch q.Type {
			case QuestionText, QuestionTextarea:
				qr.Texts = append(qr.Texts, a.Text)
			case QuestionRadio, QuestionCheckbox:
				for _, c := range a.Choices {
					if _, ok := qr.OptionCounts[c]; ok {
						qr.OptionCounts[c]++
					}
				}
			case QuestionRating:
				ratings = append(ratings, float64(a.Rating))
			}
		}
		if len(ratings) > 0 {
			qr.RatingMean = stat.Mean(ratings, nil)
		}
		res.Questions = append(res.Questions, qr)
	}
	return res, nil
}
