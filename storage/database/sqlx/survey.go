package sqlxrepos

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/mentorship/core"
	"github.com/trezcool/mentorship/core/survey"
)

const (
	surveyColumns = `id, title, description, status, target_audience, end_date, created_by, questions, responses,
	created_at, updated_at`
	responseColumns = `id, survey_id, user_id, answers, submitted_at`
)

// jsonb columns

type questions []survey.Question

func (qs questions) Value() (driver.Value, error) {
	if qs == nil {
		qs = questions{}
	}
	return json.Marshal(qs)
}

func (qs *questions) Scan(src interface{}) error {
	return scanJSON(src, qs)
}

type answers map[string]survey.Answer

func (as answers) Value() (driver.Value, error) {
	if as == nil {
		as = answers{}
	}
	return json.Marshal(as)
}

func (as *answers) Scan(src interface{}) error {
	return scanJSON(src, as)
}

func scanJSON(src interface{}, dst interface{}) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, dst)
	case string:
		return json.Unmarshal([]byte(v), dst)
	case nil:
		return nil
	}
	return errors.Errorf("cannot scan %T into jsonb", src)
}

type surveyRow struct {
	ID             string    `db:"id"`
	Title          string    `db:"title"`
	Description    string    `db:"description"`
	Status         string    `db:"status"`
	TargetAudience string    `db:"target_audience"`
	EndDate        null.Time `db:"end_date"`
	CreatedBy      string    `db:"created_by"`
	Questions      questions `db:"questions"`
	Responses      int       `db:"responses"`
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
}

func newSurveyRow(s survey.Survey) surveyRow {
	return surveyRow{
		ID:             s.ID,
		Title:          s.Title,
		Description:    s.Description,
		Status:         s.Status,
		TargetAudience: s.TargetAudience,
		EndDate:        s.EndDate,
		CreatedBy:      s.CreatedBy,
		Questions:      questions(s.Questions),
		Responses:      s.Responses,
		CreatedAt:      s.CreatedAt,
		UpdatedAt:      s.UpdatedAt,
	}
}

func (row surveyRow) survey() survey.Survey {
	s := survey.Survey{
		ID:             row.ID,
		Title:          row.Title,
		Description:    row.Description,
		Status:         row.Status,
		TargetAudience: row.TargetAudience,
		EndDate:        row.EndDate,
		CreatedBy:      row.CreatedBy,
		Questions:      []survey.Question(row.Questions),
		Responses:      row.Responses,
		CreatedAt:      row.CreatedAt.UTC(),
		UpdatedAt:      row.UpdatedAt.UTC(),
	}
	if s.EndDate.Valid {
		s.EndDate.Time = s.EndDate.Time.UTC()
	}
	return s
}

type responseRow struct {
	ID          string    `db:"id"`
	SurveyID    string    `db:"survey_id"`
	UserID      string    `db:"user_id"`
	Answers     answers   `db:"answers"`
	SubmittedAt time.Time `db:"submitted_at"`
}

func (row responseRow) response() survey.Response {
	return survey.Response{
		ID:          row.ID,
		SurveyID:    row.SurveyID,
		UserID:      row.UserID,
		Answers:     map[string]survey.Answer(row.Answers),
		SubmittedAt: row.SubmittedAt.UTC(),
	}
}

type surveyRepository struct {
	db *sqlx.DB
}

var _ survey.Repository = (*surveyRepository)(nil)

func NewSurveyRepository(db *sqlx.DB) survey.Repository {
	return &surveyRepository{db: db}
}

func (repo *surveyRepository) CreateSurvey(ctx context.Context, s survey.Survey) (survey.Survey, error) {
	q := `INSERT INTO survey (title, description, status, target_audience, end_date, created_by, questions,
			responses, created_at, updated_at)
		VALUES (:title, :description, :status, :target_audience, :end_date, :created_by, :questions,
			:responses, :created_at, :updated_at)
		RETURNING id`
	if s.ID != "" {
		q = `INSERT INTO survey (id, title, description, status, target_audience, end_date, created_by, questions,
				responses, created_at, updated_at)
			VALUES (:id, :title, :description, :status, :target_audience, :end_date, :created_by, :questions,
				:responses, :created_at, :updated_at)
			RETURNING id`
	}
	stmt, err := repo.db.PrepareNamedContext(ctx, q)
	if err != nil {
		return survey.Survey{}, errors.Wrap(err, "preparing survey insert")
	}
	//goland:noinspection GoUnhandledErrorResult
	defer stmt.Close()

	if err = stmt.GetContext(ctx, &s.ID, newSurveyRow(s)); err != nil {
		return survey.Survey{}, errors.Wrap(err, "inserting survey")
	}
	return s, nil
}

func (repo *surveyRepository) QuerySurveys(ctx context.Context, filter *survey.QueryFilter, ordering []core.DBOrdering) ([]survey.Survey, error) {
	var w where
	if filter != nil {
		if filter.Search != "" {
			p := likePattern(filter.Search)
			w.add("(title ILIKE ? OR description ILIKE ?)", p, p)
		}
		if filter.Status != "" {
			w.add("status = ?", filter.Status)
		}
		if filter.Audiences != nil {
			w.add("target_audience = ANY(?)", pq.Array(filter.Audiences))
		}
		if filter.CreatedBy != "" {
			w.add("created_by = ?", filter.CreatedBy)
		}
	}

	q := `SELECT ` + surveyColumns + ` FROM survey` + w.String() + orderBy(ordering, "created_at DESC", survey.OrderingFields...)
	var rows []surveyRow
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(q), w.args...); err != nil {
		return nil, errors.Wrap(err, "selecting surveys")
	}
	surveys := make([]survey.Survey, 0, len(rows))
	for _, row := range rows {
		surveys = append(surveys, row.survey())
	}
	return surveys, nil
}

func (repo *surveyRepository) GetSurvey(ctx context.Context, id string) (survey.Survey, error) {
	var row surveyRow
	if err := repo.db.GetContext(ctx, &row, `SELECT `+surveyColumns+` FROM survey WHERE id::text = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return survey.Survey{}, survey.ErrNotFound
		}
		return survey.Survey{}, errors.Wrap(err, "selecting survey")
	}
	return row.survey(), nil
}

// UpdateSurvey leaves the response counter alone; it belongs to CreateResponse.
func (repo *surveyRepository) UpdateSurvey(ctx context.Context, s survey.Survey) (survey.Survey, error) {
	q := `UPDATE survey SET title = :title, description = :description, status = :status,
			target_audience = :target_audience, end_date = :end_date, questions = :questions, updated_at = :updated_at
		WHERE CAST(id AS text) = :id
		RETURNING responses`
	stmt, err := repo.db.PrepareNamedContext(ctx, q)
	if err != nil {
		return survey.Survey{}, errors.Wrap(err, "preparing survey update")
	}
	//goland:noinspection GoUnhandledErrorResult
	defer stmt.Close()

	if err = stmt.GetContext(ctx, &s.Responses, newSurveyRow(s)); err != nil {
		if err == sql.ErrNoRows {
			return survey.Survey{}, survey.ErrNotFound
		}
		return survey.Survey{}, errors.Wrap(err, "updating survey")
	}
	return s, nil
}

// DeleteSurveysByID relies on the cascade of survey_response.survey_id.
func (repo *surveyRepository) DeleteSurveysByID(ctx context.Context, ids ...string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res, err := repo.db.ExecContext(ctx, `DELETE FROM survey WHERE id::text = ANY($1)`, pq.Array(ids))
	if err != nil {
		return 0, errors.Wrap(err, "deleting surveys")
	}
	n, err := res.RowsAffected()
	return int(n), errors.Wrap(err, "counting deleted surveys")
}

func (repo *surveyRepository) CreateResponse(ctx context.Context, r survey.Response) (survey.Response, error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return survey.Response{}, errors.Wrap(err, "beginning transaction")
	}
	//goland:noinspection GoUnhandledErrorResult
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `UPDATE survey SET responses = responses + 1 WHERE id::text = $1`, r.SurveyID)
	if err != nil {
		return survey.Response{}, errors.Wrap(err, "incrementing survey responses")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return survey.Response{}, survey.ErrNotFound
	}

	row := responseRow{ID: r.ID, SurveyID: r.SurveyID, UserID: r.UserID, Answers: answers(r.Answers), SubmittedAt: r.SubmittedAt}
	q := `INSERT INTO survey_response (survey_id, user_id, answers, submitted_at)
		VALUES (:survey_id, :user_id, :answers, :submitted_at)
		RETURNING id`
	if r.ID != "" {
		q = `INSERT INTO survey_response (id, survey_id, user_id, answers, submitted_at)
			VALUES (:id, :survey_id, :user_id, :answers, :submitted_at)
			RETURNING id`
	}
	stmt, err := tx.PrepareNamedContext(ctx, q)
	if err != nil {
		return survey.Response{}, errors.Wrap(err, "preparing response insert")
	}
	//goland:noinspection GoUnhandledErrorResult
	defer stmt.Close()

	if err = stmt.GetContext(ctx, &r.ID, row); err != nil {
		if isUniqueViolation(err, "survey_response_survey_id_user_id_key") {
			return survey.Response{}, survey.ErrAlreadyResponded
		}
		return survey.Response{}, errors.Wrap(err, "inserting response")
	}
	return r, errors.Wrap(tx.Commit(), "committing response")
}

func (repo *surveyRepository) QueryResponses(ctx context.Context, filter survey.ResponseFilter) ([]survey.Response, error) {
	var w where
	if filter.SurveyID != "" {
		w.add("survey_id::text = ?", filter.SurveyID)
	}
	if filter.UserID != "" {
		w.add("user_id = ?", filter.UserID)
	}

	q := `SELECT ` + responseColumns + ` FROM survey_response` + w.String() + ` ORDER BY submitted_at ASC`
	var rows []responseRow
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(q), w.args...); err != nil {
		return nil, errors.Wrap(err, "selecting responses")
	}
	responses := make([]survey.Response, 0, len(rows))
	for _, row := range rows {
		responses = append(responses, row.response())
	}
	return responses, nil
}
