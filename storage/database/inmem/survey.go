package inmemdb

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/mentorship/core"
	"github.com/trezcool/mentorship/core/survey"
)

type surveyRepository struct {
	db *DB
}

var _ survey.Repository = (*surveyRepository)(nil)

func NewSurveyRepository(db *DB) survey.Repository {
	return &surveyRepository{db: db}
}

func (repo *surveyRepository) CreateSurvey(_ context.Context, s survey.Survey) (survey.Survey, error) {
	repo.db.survey.mutex.Lock()
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	stored := cloneSurvey(s)
	repo.db.survey.table[s.ID] = &stored
	repo.db.survey.mutex.Unlock()

	return s, errors.Wrap(repo.db.commit(), "saving surveys")
}

func (repo *surveyRepository) QuerySurveys(_ context.Context, filter *survey.QueryFilter, ordering []core.DBOrdering) ([]survey.Survey, error) {
	repo.db.survey.mutex.RLock()
	defer repo.db.survey.mutex.RUnlock()

	surveys := make([]survey.Survey, 0, len(repo.db.survey.table))
	for _, s := range repo.db.survey.table {
		if filter == nil || filter.IsEmpty() || matchSurvey(*s, filter) {
			surveys = append(surveys, cloneSurvey(*s))
		}
	}

	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "created_at", Ascending: false}}
	}
	sort.SliceStable(surveys, func(i, j int) bool {
		return less(ordering, func(field string) int { return compareSurveys(surveys[i], surveys[j], field) })
	})
	return surveys, nil
}

func matchSurvey(s survey.Survey, filter *survey.QueryFilter) bool {
	if filter.Search != "" && !contains(s.Title, filter.Search) && !contains(s.Description, filter.Search) {
		return false
	}
	if filter.Status != "" && s.Status != filter.Status {
		return false
	}
	if filter.Audiences != nil && !core.StringInSlice(s.TargetAudience, filter.Audiences) {
		return false
	}
	if filter.CreatedBy != "" && s.CreatedBy != filter.CreatedBy {
		return false
	}
	return true
}

func compareSurveys(a, b survey.Survey, field string) int {
	switch field {
	case "title":
		return compareStrings(a.Title, b.Title)
	case "status":
		return compareStrings(a.Status, b.Status)
	case "end_date":
		switch {
		case !a.EndDate.Valid && !b.EndDate.Valid:
			return 0
		case !a.EndDate.Valid:
			return 1
		case !b.EndDate.Valid:
			return -1
		}
		return compareTimes(a.EndDate.Time, b.EndDate.Time)
	case "responses":
		return compareInts(a.Responses, b.Responses)
	case "created_at":
		return compareTimes(a.CreatedAt, b.CreatedAt)
	}
	return 0
}

func (repo *surveyRepository) GetSurvey(_ context.Context, id string) (survey.Survey, error) {
	repo.db.survey.mutex.RLock()
	defer repo.db.survey.mutex.RUnlock()

	if s, ok := repo.db.survey.table[id]; ok {
		return cloneSurvey(*s), nil
	}
	return survey.Survey{}, survey.ErrNotFound
}

func (repo *surveyRepository) UpdateSurvey(_ context.Context, s survey.Survey) (survey.Survey, error) {
	repo.db.survey.mutex.Lock()
	orig, ok := repo.db.survey.table[s.ID]
	if !ok {
		repo.db.survey.mutex.Unlock()
		return survey.Survey{}, survey.ErrNotFound
	}
	// the counter belongs to CreateResponse
	s.Responses = orig.Responses
	stored := cloneSurvey(s)
	repo.db.survey.table[s.ID] = &stored
	repo.db.survey.mutex.Unlock()

	return s, errors.Wrap(repo.db.commit(), "saving surveys")
}

func (repo *surveyRepository) DeleteSurveysByID(_ context.Context, ids ...string) (int, error) {
	repo.db.survey.mutex.Lock()
	repo.db.response.mutex.Lock()
	var deleted int
	for _, id := range ids {
		if _, ok := repo.db.survey.table[id]; !ok {
			continue
		}
		delete(repo.db.survey.table, id)
		deleted++
		for rID, r := range repo.db.response.table {
			if r.SurveyID == id {
				delete(repo.db.response.table, rID)
			}
		}
	}
	repo.db.response.mutex.Unlock()
	repo.db.survey.mutex.Unlock()

	if deleted == 0 {
		return 0, nil
	}
	return deleted, errors.Wrap(repo.db.commit(), "saving surveys")
}

func (repo *surveyRepository) CreateResponse(_ context.Context, r survey.Response) (survey.Response, error) {
	repo.db.survey.mutex.Lock()
	repo.db.response.mutex.Lock()
	unlock := func() {
		repo.db.response.mutex.Unlock()
		repo.db.survey.mutex.Unlock()
	}

	s, ok := repo.db.survey.table[r.SurveyID]
	if !ok {
		unlock()
		return survey.Response{}, survey.ErrNotFound
	}
	for _, existing := range repo.db.response.table {
		if existing.SurveyID == r.SurveyID && existing.UserID == r.UserID {
			unlock()
			return survey.Response{}, survey.ErrAlreadyResponded
		}
	}
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	stored := cloneResponse(r)
	repo.db.response.table[r.ID] = &stored
	s.Responses++
	unlock()

	return r, errors.Wrap(repo.db.commit(), "saving survey responses")
}

func (repo *surveyRepository) QueryResponses(_ context.Context, filter survey.ResponseFilter) ([]survey.Response, error) {
	repo.db.response.mutex.RLock()
	defer repo.db.response.mutex.RUnlock()

	responses := make([]survey.Response, 0)
	for _, r := range repo.db.response.table {
		if filter.SurveyID != "" && r.SurveyID != filter.SurveyID {
			continue
		}
		if filter.UserID != "" && r.UserID != filter.UserID {
			continue
		}
		responses = append(responses, cloneResponse(*r))
	}
	sort.SliceStable(responses, func(i, j int) bool {
		return responses[i].SubmittedAt.Before(responses[j].SubmittedAt)
	})
	return responses, nil
}

func cloneSurvey(s survey.Survey) survey.Survey {
	questions := make([]survey.Question, len(s.Questions))
	for i, q := range s.Questions {
		q.Options = append([]string(nil), q.Options...)
		questions[i] = q
	}
	s.Questions = questions
	return s
}

func cloneResponse(r survey.Response) survey.Response {
	answers := make(map[string]survey.Answer, len(r.Answers))
	for id, a := range r.Answers {
		a.Choices = append([]string(nil), a.Choices...)
		answers[id] = a
	}
	r.Answers = answers
	return r
}
