package echoapi_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/mentorship/core/survey"
	"github.com/trezcool/mentorship/core/user"
	"github.com/trezcool/mentorship/tests"
)

type surveyFixtures struct {
	admin, mentor, studUsr                  user.User
	general, draft, second, first, mentors survey.Survey
}

func createSurvey(t *testing.T, repo survey.Repository, title, status, audience string) survey.Survey {
	t.Helper()
	s := testutil.CreateSurvey(t, repo, title, status)
	s.TargetAudience = audience
	s, err := repo.UpdateSurvey(context.Background(), s)
	require.NoError(t, err)
	return s
}

func newSurveyFixtures(t *testing.T, app testApp) surveyFixtures {
	john := testutil.CreateStudent(t, app.studentRepo, "John Smith", "CS001", "1st", "Dr. X", 92, 85)
	studUsr := testutil.CreateUser(t, app.userRepo, "John Smith", "johns", "john@uni.edu", "", user.StudentRoles, true)

	return surveyFixtures{
		admin:   testutil.CreateUser(t, app.userRepo, "Admin", "admin", "admin@uni.edu", "", user.AdminRoles, true),
		mentor:  testutil.CreateUser(t, app.userRepo, "Dr. X", "drxxx", "drx@uni.edu", "", user.MentorRoles, true),
		studUsr: linkStudent(t, app.userRepo, studUsr, john),
		general: createSurvey(t, app.surveyRepo, "Course Feedback", survey.StatusActive, survey.AudienceAllStudents),
		draft:   createSurvey(t, app.surveyRepo, "Draft", survey.StatusDraft, survey.AudienceAllStudents),
		second:  createSurvey(t, app.surveyRepo, "Second Years", survey.StatusActive, survey.AudienceSecondYear),
		first:   createSurvey(t, app.surveyRepo, "First Years", survey.StatusActive, survey.AudienceFirstYear),
		mentors: createSurvey(t, app.surveyRepo, "Mentoring", survey.StatusActive, survey.AudienceMentors),
	}
}

func surveyIDs(surveys []survey.Survey) []string {
	ids := make([]string, 0, len(surveys))
	for _, s := range surveys {
		ids = append(ids, s.ID)
	}
	return ids
}

func Test_surveyApi_query(t *testing.T) {
	app := setup(t)
	f := newSurveyFixtures(t, app)

	tests := []struct {
		name  string
		path  string
		usr   user.User
		wants []survey.Survey
	}{
		{"admin: all", "/v1/surveys", f.admin, []survey.Survey{f.general, f.draft, f.second, f.first, f.mentors}},
		{"admin: status filter", "/v1/surveys?status=Draft", f.admin, []survey.Survey{f.draft}},
		{"admin: audience filter", "/v1/surveys?audience=Mentors&audience=2nd+Year", f.admin, []survey.Survey{f.second, f.mentors}},
		{"student: available", "/v1/surveys", f.studUsr, []survey.Survey{f.general, f.first}},
		{"student: filters ignored", "/v1/surveys?status=Draft", f.studUsr, []survey.Survey{f.general, f.first}},
		{"mentor: available", "/v1/surveys", f.mentor, []survey.Survey{f.general, f.mentors}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			rec := app.do(http.MethodGet, tt.path, app.token(t, tt.usr))
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			var got []survey.Survey
			unmarshall(t, rec, &got)
			assert.ElementsMatch(t, surveyIDs(tt.wants), surveyIDs(got))
		})
	}
}

func Test_surveyApi_create(t *testing.T) {
	app := setup(t)
	f := newSurveyFixtures(t, app)
	body := []byte(`{
		"title": "Mentor Feedback",
		"description": "How is your mentor doing?",
		"questions": [
			{"type": "Rating", "question": "Rate your mentor", "required": true},
			{"type": "checkbox", "question": "Topics", "options": ["Career", " ", "Career", "Courses"]}
		]
	}`)

	app.run(t, []httpTest{
		{name: "Admin required", method: http.MethodPost, path: "/v1/surveys", token: app.token(t, f.mentor), body: body, wantCode: http.StatusForbidden},
		{
			name: "no questions", method: http.MethodPost, path: "/v1/surveys", token: app.token(t, f.admin),
			body:     []byte(`{"title": "Empty", "description": "Nothing to ask"}`),
			wantCode: http.StatusBadRequest,
			wantData: marshallObj(t, map[string]string{"questions": "this field is required"}),
		},
	})

	rec := app.do(http.MethodPost, "/v1/surveys", app.token(t, f.admin), body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var s survey.Survey
	unmarshall(t, rec, &s)
	assert.Equal(t, survey.StatusDraft, s.Status)
	assert.Equal(t, survey.AudienceAllStudents, s.TargetAudience)
	assert.Equal(t, "admin", s.CreatedBy)
	assert.Zero(t, s.Responses)
	require.Len(t, s.Questions, 2)
	assert.Equal(t, "q1", s.Questions[0].ID)
	assert.Equal(t, survey.QuestionRating, s.Questions[0].Type)
	assert.Equal(t, []string{"Career", "Courses"}, s.Questions[1].Options)
}

func Test_surveyApi_detail(t *testing.T) {
	app := setup(t)
	f := newSurveyFixtures(t, app)
	adminToken := app.token(t, f.admin)
	studToken := app.token(t, f.studUsr)

	app.run(t, []httpTest{
		{name: "student: available", path: "/v1/surveys/" + f.first.ID, token: studToken, wantData: marshallObj(t, f.first)},
		{name: "student: other audience", path: "/v1/surveys/" + f.second.ID, token: studToken, wantCode: http.StatusNotFound},
		{name: "student: draft", path: "/v1/surveys/" + f.draft.ID, token: studToken, wantCode: http.StatusNotFound},
		{name: "admin: draft", path: "/v1/surveys/" + f.draft.ID, token: adminToken, wantData: marshallObj(t, f.draft)},
		{name: "unknown", path: "/v1/surveys/lol", token: adminToken, wantCode: http.StatusNotFound},
		{name: "student cannot update", method: http.MethodPut, path: "/v1/surveys/" + f.first.ID, token: studToken, body: []byte(`{"title": "x"}`), wantCode: http.StatusForbidden},
		{name: "student cannot delete", method: http.MethodDelete, path: "/v1/surveys/" + f.first.ID, token: studToken, wantCode: http.StatusForbidden},
		{
			name: "invalid status", method: http.MethodPut, path: "/v1/surveys/" + f.draft.ID, token: adminToken,
			body:     []byte(`{"status": "Archived"}`),
			wantCode: http.StatusBadRequest,
			wantData: marshallObj(t, map[string]string{"status": "status must be one of Draft, Active or Completed"}),
		},
	})

	rec := app.do(http.MethodPut, "/v1/surveys/"+f.draft.ID, adminToken, []byte(`{"status": "Active", "target_audience": "1st Year"}`))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var s survey.Survey
	unmarshall(t, rec, &s)
	assert.Equal(t, survey.StatusActive, s.Status)
	assert.Equal(t, f.draft.Title, s.Title)

	rec = app.do(http.MethodGet, "/v1/surveys/"+f.draft.ID, studToken)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = app.do(http.MethodDelete, "/v1/surveys/"+f.draft.ID, adminToken)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = app.do(http.MethodGet, "/v1/surveys/"+f.draft.ID, adminToken)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func Test_surveyApi_responses(t *testing.T) {
	app := setup(t)
	f := newSurveyFixtures(t, app)
	adminToken := app.token(t, f.admin)
	studToken := app.token(t, f.studUsr)
	responsesPath := "/v1/surveys/" + f.general.ID + "/responses"

	app.run(t, []httpTest{
		{
			name: "invalid answers", method: http.MethodPost, path: responsesPath, token: studToken,
			body:     []byte(`{"answers": {"q1": {"rating": 9}, "q9": {"text": "hi"}}}`),
			wantCode: http.StatusBadRequest,
			wantData: marshallObj(t, map[string]string{
				"answers.q1": "rating must be between 1 and 5",
				"answers.q2": "this question is required",
				"answers.q9": "unknown question",
			}),
		},
		{
			name: "not yet responded", path: "/v1/surveys/" + f.general.ID + "/responded", token: studToken,
			wantData: marshallObj(t, map[string]bool{"responded": false}),
		},
	})

	rec := app.do(http.MethodPost, responsesPath, studToken, []byte(`{"answers": {"q1": {"rating": 4}, "q2": {"choices": [" Yes "]}}}`))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var r survey.Response
	unmarshall(t, rec, &r)
	assert.Equal(t, f.studUsr.ID, r.UserID)
	assert.Equal(t, []string{"Yes"}, r.Answers["q2"].Choices)
	assert.NotContains(t, r.Answers, "q3")

	mentorRec := app.do(http.MethodPost, responsesPath, app.token(t, f.mentor), []byte(`{"answers": {"q1": {"rating": 2}, "q2": {"choices": ["No"]}, "q3": {"text": "meh"}}}`))
	require.Equal(t, http.StatusCreated, mentorRec.Code, mentorRec.Body.String())

	app.run(t, []httpTest{
		{
			name: "only once", method: http.MethodPost, path: responsesPath, token: studToken,
			body:     []byte(`{"answers": {"q1": {"rating": 5}, "q2": {"choices": ["No"]}}}`),
			wantCode: http.StatusBadRequest, wantData: marshallObj(t, httpErr{Error: survey.ErrAlreadyResponded.Error()}),
		},
		{
			name: "responded", path: "/v1/surveys/" + f.general.ID + "/responded", token: studToken,
			wantData: marshallObj(t, map[string]bool{"responded": true}),
		},
		{name: "Admin required (responses)", path: responsesPath, token: studToken, wantCode: http.StatusForbidden},
		{name: "Admin required (results)", path: "/v1/surveys/" + f.general.ID + "/results", token: studToken, wantCode: http.StatusForbidden},
		{
			name: "questions locked", method: http.MethodPut, path: "/v1/surveys/" + f.general.ID, token: adminToken,
			body:     []byte(`{"questions": [{"type": "text", "question": "New?"}]}`),
			wantCode: http.StatusBadRequest,
			wantData: marshallObj(t, map[string]string{"questions": survey.ErrQuestionsLocked.Error()}),
		},
	})

	rec = app.do(http.MethodGet, responsesPath, adminToken)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var responses []survey.Response
	unmarshall(t, rec, &responses)
	assert.Len(t, responses, 2)

	rec = app.do(http.MethodGet, "/v1/surveys/"+f.general.ID, adminToken)
	require.Equal(t, http.StatusOK, rec.Code)
	var s survey.Survey
	unmarshall(t, rec, &s)
	assert.Equal(t, 2, s.Responses)

	rec = app.do(http.MethodGet, "/v1/surveys/"+f.general.ID+"/results", adminToken)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var res survey.Results
	unmarshall(t, rec, &res)
	assert.Equal(t, 2, res.Responses)
	require.Len(t, res.Questions, 3)
	assert.Equal(t, 2, res.Questions[0].Answered)
	assert.InDelta(t, 3.0, res.Questions[0].RatingMean, 1e-9)
	assert.Equal(t, map[string]int{"Yes": 1, "No": 1}, res.Questions[1].OptionCounts)
	assert.Equal(t, []string{"meh"}, res.Questions[2].Texts)

	t.Run("inactive survey", func(t *testing.T) {
		rec := app.do(http.MethodPut, "/v1/surveys/"+f.first.ID, adminToken, []byte(`{"status": "Completed"}`))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		// completed surveys are hidden from students
		rec = app.do(http.MethodPost, "/v1/surveys/"+f.first.ID+"/responses", studToken, []byte(`{"answers": {"q1": {"rating": 5}}}`))
		assert.Equal(t, http.StatusNotFound, rec.Code)
		// admins get the reason
		rec = app.do(http.MethodPost, "/v1/surveys/"+f.first.ID+"/responses", adminToken, []byte(`{"answers": {"q1": {"rating": 5}}}`))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.JSONEq(t, string(marshallObj(t, httpErr{Error: survey.ErrNotActive.Error()})), rec.Body.String())
	})
}
