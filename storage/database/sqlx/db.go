package sqlxrepos

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/trezcool/mentorship/core"
)

// NewDB wraps an open postgres connection for the repositories.
func NewDB(db *sql.DB) *sqlx.DB {
	return sqlx.NewDb(db, "postgres")
}

// isUniqueViolation reports whether err is a postgres unique constraint violation on constraint
// (any constraint if empty).
func isUniqueViolation(err error, constraint string) bool {
	pqErr, ok := err.(*pq.Error)
	if !ok || pqErr.Code != "23505" {
		return false
	}
	return constraint == "" || pqErr.Constraint == constraint
}

// where accumulates AND conditions written with `?` bind vars.
type where struct {
	conds []string
	args  []interface{}
}

func (w *where) add(cond string, args ...interface{}) {
	w.conds = append(w.conds, cond)
	w.args = append(w.args, args...)
}

func (w *where) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}

// orderBy renders the orderings on allowed columns; others are ignored.
func orderBy(ordering []core.DBOrdering, def string, allowed ...string) string {
	clauses := make([]string, 0, len(ordering))
	for _, ord := range core.FilterOrderings(ordering, allowed...) {
		clauses = append(clauses, ord.String())
	}
	if len(clauses) == 0 {
		return fmt.Sprintf(" ORDER BY %s", def)
	}
	return " ORDER BY " + strings.Join(clauses, ", ")
}
