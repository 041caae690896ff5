package survey_test

import (
	"context"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/mentorship/core"
	"github.com/trezcool/mentorship/core/survey"
	"github.com/trezcool/mentorship/storage/database/inmem"
	"github.com/trezcool/mentorship/tests"
)

func setup(t *testing.T) (*survey.Service, survey.Repository) {
	repo := inmemdb.NewSurveyRepository(testutil.PrepareDB(t))
	return survey.NewService(repo), repo
}

func TestService_Create(t *testing.T) {
	ctx := context.Background()
	svc, _ := setup(t)
	validate, translator := testutil.NewValidator()

	ns := survey.NewSurvey{
		Title:       " Food ",
		Description: "About the cafeteria",
		Questions: []survey.NewQuestion{
			{Type: "Radio", Question: "Best meal?", Options: []string{" Lunch", "", "Dinner", "Lunch"}, Required: true},
			{Type: survey.QuestionRating, Question: "Rate it", Options: []string{"ignored"}},
		},
	}
	require.NoError(t, ns.Validate(validate))
	s, err := svc.Create(ctx, ns, "admin")
	require.NoError(t, err)

	assert.Equal(t, "Food", s.Title)
	assert.Equal(t, survey.StatusDraft, s.Status)
	assert.Equal(t, survey.AudienceAllStudents, s.TargetAudience)
	assert.Equal(t, 0, s.Responses)
	assert.Equal(t, "admin", s.CreatedBy)
	assert.Equal(t, []survey.Question{
		{ID: "q1", Type: survey.QuestionRadio, Question: "Best meal?", Options: []string{"Lunch", "Dinner"}, Required: true},
		{ID: "q2", Type: survey.QuestionRating, Question: "Rate it"},
	}, s.Questions)

	t.Run("invalid", func(t *testing.T) {
		bad := survey.NewSurvey{
			Title:          "Bad",
			TargetAudience: "Everyone",
			Questions: []survey.NewQuestion{
				{Type: survey.QuestionCheckbox, Question: "Pick", Options: []string{" "}},
				{Type: "slider", Question: "Slide"},
			},
		}
		err := bad.Validate(validate)
		var vErrs validator.ValidationErrors
		require.ErrorAs(t, err, &vErrs)
		assert.Equal(t, map[string]string{
			"description":          "this field is required",
			"target_audience":      "target audience must be one of All Students, 1st Year, 2nd Year, 3rd Year, 4th Year or Mentors",
			"questions[0].options": "choice questions need at least one option",
			"questions[1].type":    "type must be one of text, textarea, radio, checkbox or rating",
		}, core.TranslateFieldErrors(vErrs, translator))

		noQuestions := survey.NewSurvey{Title: "Empty", Description: "Nothing"}
		err = noQuestions.Validate(validate)
		require.ErrorAs(t, err, &vErrs)
		assert.Contains(t, core.TranslateFieldErrors(vErrs, translator), "questions")
	})
}

func TestService_Update(t *testing.T) {
	ctx := context.Background()
	svc, repo := setup(t)
	validate, _ := testutil.NewValidator()
	orig := testutil.CreateSurvey(t, repo, "Food", survey.StatusDraft)

	us := survey.UpdateSurvey{Status: survey.StatusActive, Questions: []survey.NewQuestion{{Type: "text", Question: "Why?"}}}
	require.NoError(t, us.Validate(orig, validate))
	s, err := svc.Update(ctx, orig.ID, us)
	require.NoError(t, err)
	assert.Equal(t, "Food", s.Title)
	assert.Equal(t, survey.StatusActive, s.Status)
	require.Len(t, s.Questions, 1)
	assert.Equal(t, "q1", s.Questions[0].ID)

	t.Run("questions are locked once answered", func(t *testing.T) {
		_, err := svc.Submit(ctx, s.ID, "u1", survey.Submission{Answers: map[string]survey.Answer{"q1": {Text: "because"}}})
		require.NoError(t, err)
		s, err = svc.GetByID(ctx, s.ID)
		require.NoError(t, err)

		us := survey.UpdateSurvey{Questions: []survey.NewQuestion{{Type: "text", Question: "How?"}}}
		err = us.Validate(s, validate)
		var vErr *core.ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Equal(t, survey.ErrQuestionsLocked, vErr.Err)

		us = survey.UpdateSurvey{Status: survey.StatusCompleted}
		assert.NoError(t, us.Validate(s, validate))
	})

	t.Run("invalid status", func(t *testing.T) {
		us := survey.UpdateSurvey{Status: "Closed"}
		assert.Error(t, us.Validate(orig, validate))
	})
}

func TestService_Submit(t *testing.T) {
	ctx := context.Background()
	svc, repo := setup(t)
	s := testutil.CreateSurvey(t, repo, "Food")
	draft := testutil.CreateSurvey(t, repo, "Draft", survey.StatusDraft)

	fieldErrors := func(t *testing.T, err error) map[string]string {
		var vErr *core.ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Equal(t, survey.ErrInvalidAnswers, vErr.Err)
		flds := make(map[string]string, len(vErr.Fields))
		for _, f := range vErr.Fields {
			flds[f.Field] = f.Error
		}
		return flds
	}

	t.Run("invalid answers", func(t *testing.T) {
		_, err := svc.Submit(ctx, s.ID, "u1", survey.Submission{Answers: map[string]survey.Answer{
			"q1": {Rating: 6},
			"q2": {Choices: []string{"Maybe"}},
			"q9": {Text: "?"},
		}})
		assert.Equal(t, map[string]string{
			"answers.q1": "rating must be between 1 and 5",
			"answers.q2": `"Maybe" is not a valid option`,
			"answers.q9": "unknown question",
		}, fieldErrors(t, err))

		_, err = svc.Submit(ctx, s.ID, "u1", survey.Submission{Answers: map[string]survey.Answer{
			"q2": {Choices: []string{"Yes", "No"}},
			"q3": {Text: "   "},
		}})
		assert.Equal(t, map[string]string{
			"answers.q1": "this question is required",
			"answers.q2": "choose only one option",
		}, fieldErrors(t, err))
	})

	t.Run("valid", func(t *testing.T) {
		r, err := svc.Submit(ctx, s.ID, "u1", survey.Submission{Answers: map[string]survey.Answer{
			"q1": {Rating: 4, Text: "dropped"},
			"q2": {Choices: []string{" Yes "}},
			"q3": {Text: "  "},
		}})
		require.NoError(t, err)
		assert.Equal(t, map[string]survey.Answer{"q1": {Rating: 4}, "q2": {Choices: []string{"Yes"}}}, r.Answers)

		got, err := svc.GetByID(ctx, s.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, got.Responses)

		ok, err := svc.HasResponded(ctx, s.ID, "u1")
		require.NoError(t, err)
		assert.True(t, ok)
		ok, err = svc.HasResponded(ctx, s.ID, "u2")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("only once", func(t *testing.T) {
		_, err := svc.Submit(ctx, s.ID, "u1", survey.Submission{Answers: map[string]survey.Answer{
			"q1": {Rating: 1}, "q2": {Choices: []string{"No"}},
		}})
		var vErr *core.ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Equal(t, survey.ErrAlreadyResponded, vErr.Err)
	})

	t.Run("inactive or missing survey", func(t *testing.T) {
		_, err := svc.Submit(ctx, draft.ID, "u1", survey.Submission{})
		var vErr *core.ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Equal(t, survey.ErrNotActive, vErr.Err)

		_, err = svc.Submit(ctx, "nope", "u1", survey.Submission{})
		assert.Equal(t, survey.ErrNotFound, err)
	})
}

func TestService_AvailableFor(t *testing.T) {
	ctx := context.Background()
	svc, repo := setup(t)
	testutil.CreateSurvey(t, repo, "All")
	testutil.CreateSurvey(t, repo, "Done", survey.StatusCompleted)
	first, err := repo.CreateSurvey(ctx, survey.Survey{Title: "Freshers", Status: survey.StatusActive, TargetAudience: survey.AudienceFirstYear})
	require.NoError(t, err)
	_, err = repo.CreateSurvey(ctx, survey.Survey{Title: "Mentors", Status: survey.StatusActive, TargetAudience: survey.AudienceMentors})
	require.NoError(t, err)

	titles := func(surveys []survey.Survey) []string {
		ts := make([]string, 0, len(surveys))
		for _, s := range surveys {
			ts = append(ts, s.Title)
		}
		return ts
	}

	surveys, err := svc.AvailableFor(ctx, survey.YearAudience("1st"))
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"All", first.Title}, titles(surveys))

	surveys, err = svc.AvailableFor(ctx, survey.AudienceMentors)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"All", "Mentors"}, titles(surveys))

	surveys, err = svc.AvailableFor(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"All"}, titles(surveys))
}

func TestService_Results(t *testing.T) {
	ctx := context.Background()
	svc, repo := setup(t)
	s := testutil.CreateSurvey(t, repo, "Food")

	submissions := []map[string]survey.Answer{
		{"q1": {Rating: 5}, "q2": {Choices: []string{"Yes"}}, "q3": {Text: "great"}},
		{"q1": {Rating: 4}, "q2": {Choices: []string{"Yes"}}},
		{"q1": {Rating: 2}, "q2": {Choices: []string{"No"}}},
	}
	for i, answers := range submissions {
		_, err := svc.Submit(ctx, s.ID, string(rune('a'+i)), survey.Submission{Answers: answers})
		require.NoError(t, err)
	}

	res, err := svc.Results(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Responses)
	require.Len(t, res.Questions, 3)

	assert.Equal(t, 3, res.Questions[0].Answered)
	assert.InDelta(t, 11.0/3, res.Questions[0].RatingMean, 1e-9)
	assert.Equal(t, map[string]int{"Yes": 2, "No": 1}, res.Questions[1].OptionCounts)
	assert.Equal(t, 1, res.Questions[2].Answered)
	assert.Equal(t, []string{"great"}, res.Questions[2].Texts)

	t.Run("delete removes responses", func(t *testing.T) {
		require.NoError(t, svc.Delete(ctx, s.ID))
		responses, err := svc.Responses(ctx, survey.ResponseFilter{SurveyID: s.ID})
		require.NoError(t, err)
		assert.Empty(t, responses)
		_, err = svc.Results(ctx, s.ID)
		assert.Equal(t, survey.ErrNotFound, err)
	})
}
