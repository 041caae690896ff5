package sqlxrepos

import (
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/mentorship/core"
	"github.com/trezcool/mentorship/core/survey"
)

func TestWhere(t *testing.T) {
	var w where
	assert.Equal(t, "", w.String())

	w.add("status = ?", "Active")
	w.add("(title ILIKE ? OR description ILIKE ?)", "%a%", "%a%")
	assert.Equal(t, " WHERE status = ? AND (title ILIKE ? OR description ILIKE ?)", w.String())
	assert.Equal(t, []interface{}{"Active", "%a%", "%a%"}, w.args)
}

func TestLikePattern(t *testing.T) {
	assert.Equal(t, `%john%`, likePattern("john"))
	assert.Equal(t, `%100\%\_x%`, likePattern("100%_x"))
}

func TestOrderBy(t *testing.T) {
	allowed := []string{"name", "created_at"}
	assert.Equal(t, " ORDER BY id ASC", orderBy(nil, "id ASC", allowed...))
	assert.Equal(t, " ORDER BY id ASC", orderBy([]core.DBOrdering{{Field: "1; DROP TABLE student"}}, "id ASC", allowed...))
	assert.Equal(t,
		" ORDER BY name ASC, created_at DESC",
		orderBy([]core.DBOrdering{{Field: "name", Ascending: true}, {Field: "created_at"}}, "id ASC", allowed...),
	)
}

func TestIsUniqueViolation(t *testing.T) {
	err := &pq.Error{Code: "23505", Constraint: "student_roll_no_key"}
	assert.True(t, isUniqueViolation(err, ""))
	assert.True(t, isUniqueViolation(err, "student_roll_no_key"))
	assert.False(t, isUniqueViolation(err, "other"))
	assert.False(t, isUniqueViolation(&pq.Error{Code: "23503"}, ""))
	assert.False(t, isUniqueViolation(assert.AnError, ""))
}

func TestJSONColumns(t *testing.T) {
	qs := questions{{ID: "q1", Type: survey.QuestionRadio, Question: "Pick", Options: []string{"A", "B"}, Required: true}}
	v, err := qs.Value()
	require.NoError(t, err)

	var got questions
	require.NoError(t, got.Scan(v))
	assert.Equal(t, qs, got)

	v, err = questions(nil).Value()
	require.NoError(t, err)
	assert.Equal(t, []byte("[]"), v)

	var as answers
	require.NoError(t, as.Scan(`{"q1": {"rating": 3}, "q2": {"choices": ["A"]}}`))
	assert.Equal(t, answers{"q1": {Rating: 3}, "q2": {Choices: []string{"A"}}}, as)

	assert.Error(t, as.Scan(42))
}
