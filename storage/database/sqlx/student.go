package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/mentorship/core"
	"github.com/trezcool/mentorship/core/student"
)

const studentColumns = `id, name, roll_no, year, email, attendance, avg_marks, status, department, mentor,
	created_at, updated_at`

type studentRow struct {
	ID         int          `db:"id"`
	Name       string       `db:"name"`
	RollNo     string       `db:"roll_no"`
	Year       string       `db:"year"`
	Email      string       `db:"email"`
	Attendance null.Float64 `db:"attendance"`
	AvgMarks   null.Float64 `db:"avg_marks"`
	Status     string       `db:"status"`
	Department string       `db:"department"`
	Mentor     string       `db:"mentor"`
	CreatedAt  time.Time    `db:"created_at"`
	UpdatedAt  time.Time    `db:"updated_at"`
}

func (row studentRow) student() student.Student {
	s := student.Student(row)
	s.CreatedAt = s.CreatedAt.UTC()
	s.UpdatedAt = s.UpdatedAt.UTC()
	return s
}

type studentRepository struct {
	db *sqlx.DB
}

var _ student.Repository = (*studentRepository)(nil)

func NewStudentRepository(db *sqlx.DB) student.Repository {
	return &studentRepository{db: db}
}

func (repo *studentRepository) CheckRollNoUniqueness(ctx context.Context, rollNo string, excludedIDs ...int) error {
	q, args, err := sqlx.In(`SELECT count(*) FROM student WHERE lower(roll_no) = lower(?)`, rollNo)
	if len(excludedIDs) > 0 {
		q, args, err = sqlx.In(`SELECT count(*) FROM student WHERE lower(roll_no) = lower(?) AND id NOT IN (?)`, rollNo, excludedIDs)
	}
	if err != nil {
		return errors.Wrap(err, "building roll number query")
	}

	var count int
	if err = repo.db.GetContext(ctx, &count, repo.db.Rebind(q), args...); err != nil {
		return errors.Wrap(err, "counting students")
	}
	if count > 0 {
		return student.ErrRollNoExists
	}
	return nil
}

func (repo *studentRepository) CreateStudent(ctx context.Context, s student.Student) (student.Student, error) {
	q := `INSERT INTO student (name, roll_no, year, email, attendance, avg_marks, status, department, mentor,
			created_at, updated_at)
		VALUES (:name, :roll_no, :year, :email, :attendance, :avg_marks, :status, :department, :mentor,
			:created_at, :updated_at)
		RETURNING id`
	stmt, err := repo.db.PrepareNamedContext(ctx, q)
	if err != nil {
		return student.Student{}, errors.Wrap(err, "preparing student insert")
	}
	//goland:noinspection GoUnhandledErrorResult
	defer stmt.Close()

	if err = stmt.GetContext(ctx, &s.ID, studentRow(s)); err != nil {
		if isUniqueViolation(err, "") {
			return student.Student{}, student.ErrRollNoExists
		}
		return student.Student{}, errors.Wrap(err, "inserting student")
	}
	return s, nil
}

func (repo *studentRepository) QueryStudents(ctx context.Context, filter *student.QueryFilter, ordering []core.DBOrdering) ([]student.Student, error) {
	var w where
	if filter != nil {
		if filter.Search != "" {
			p := likePattern(filter.Search)
			w.add("(name ILIKE ? OR roll_no ILIKE ? OR email ILIKE ?)", p, p, p)
		}
		if filter.Mentor != "" {
			w.add("lower(mentor) = lower(?)", filter.Mentor)
		}
		if filter.Year != "" {
			w.add("year = ?", filter.Year)
		}
		if filter.Department != "" {
			w.add("lower(department) = lower(?)", filter.Department)
		}
		if filter.Status != "" {
			w.add("status = ?", filter.Status)
		}
	}

	q := `SELECT ` + studentColumns + ` FROM student` + w.String() + orderBy(ordering, "id ASC", student.OrderingFields...)
	var rows []studentRow
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(q), w.args...); err != nil {
		return nil, errors.Wrap(err, "selecting students")
	}
	students := make([]student.Student, 0, len(rows))
	for _, row := range rows {
		students = append(students, row.student())
	}
	return students, nil
}

func (repo *studentRepository) GetStudent(ctx context.Context, id int) (student.Student, error) {
	var row studentRow
	if err := repo.db.GetContext(ctx, &row, `SELECT `+studentColumns+` FROM student WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return student.Student{}, student.ErrNotFound
		}
		return student.Student{}, errors.Wrap(err, "selecting student")
	}
	return row.student(), nil
}

func (repo *studentRepository) UpdateStudent(ctx context.Context, s student.Student) (student.Student, error) {
	q := `UPDATE student SET name = :name, roll_no = :roll_no, year = :year, email = :email,
			attendance = :attendance, avg_marks = :avg_marks, status = :status, department = :department,
			mentor = :mentor, updated_at = :updated_at
		WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, q, studentRow(s))
	if err != nil {
		if isUniqueViolation(err, "") {
			return student.Student{}, student.ErrRollNoExists
		}
		return student.Student{}, errors.Wrap(err, "updating student")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return student.Student{}, student.ErrNotFound
	}
	return s, nil
}

func (repo *studentRepository) DeleteStudentsByID(ctx context.Context, ids ...int) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	q, args, err := sqlx.In(`DELETE FROM student WHERE id IN (?)`, ids)
	if err != nil {
		return 0, errors.Wrap(err, "building student delete")
	}
	res, err := repo.db.ExecContext(ctx, repo.db.Rebind(q), args...)
	if err != nil {
		return 0, errors.Wrap(err, "deleting students")
	}
	n, err := res.RowsAffected()
	return int(n), errors.Wrap(err, "counting deleted students")
}
