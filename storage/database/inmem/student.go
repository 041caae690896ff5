package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/mentorship/core"
	"github.com/trezcool/mentorship/core/student"
)

type studentRepository struct {
	db *DB
}

var _ student.Repository = (*studentRepository)(nil)

func NewStudentRepository(db *DB) student.Repository {
	return &studentRepository{db: db}
}

func (repo *studentRepository) CheckRollNoUniqueness(_ context.Context, rollNo string, excludedIDs ...int) error {
	repo.db.student.mutex.RLock()
	defer repo.db.student.mutex.RUnlock()

	for _, s := range repo.db.student.table {
		if strings.EqualFold(s.RollNo, rollNo) && !intInSlice(s.ID, excludedIDs) {
			return student.ErrRollNoExists
		}
	}
	return nil
}

func (repo *studentRepository) CreateStudent(_ context.Context, s student.Student) (student.Student, error) {
	repo.db.student.mutex.Lock()
	repo.db.student.seq++
	s.ID = repo.db.student.seq
	stored := s
	repo.db.student.table[s.ID] = &stored
	repo.db.student.mutex.Unlock()

	return s, errors.Wrap(repo.db.commit(), "saving students")
}

func (repo *studentRepository) QueryStudents(_ context.Context, filter *student.QueryFilter, ordering []core.DBOrdering) ([]student.Student, error) {
	repo.db.student.mutex.RLock()
	defer repo.db.student.mutex.RUnlock()

	students := make([]student.Student, 0, len(repo.db.student.table))
	for _, s := range repo.db.student.table {
		if filter == nil || filter.IsEmpty() || matchStudent(*s, filter) {
			students = append(students, *s)
		}
	}

	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "id", Ascending: true}}
	}
	sort.SliceStable(students, func(i, j int) bool {
		return less(ordering, func(field string) int { return compareStudents(students[i], students[j], field) })
	})
	return students, nil
}

func matchStudent(s student.Student, filter *student.QueryFilter) bool {
	if filter.Search != "" && !contains(s.Name, filter.Search) && !contains(s.RollNo, filter.Search) &&
		!contains(s.Email, filter.Search) {
		return false
	}
	if filter.Mentor != "" && !strings.EqualFold(s.Mentor, filter.Mentor) {
		return false
	}
	if filter.Year != "" && s.Year != filter.Year {
		return false
	}
	if filter.Department != "" && !strings.EqualFold(s.Department, filter.Department) {
		return false
	}
	if filter.Status != "" && s.Status != filter.Status {
		return false
	}
	return true
}

func compareStudents(a, b student.Student, field string) int {
	switch field {
	case "id":
		return compareInts(a.ID, b.ID)
	case "name":
		return compareStrings(a.Name, b.Name)
	case "roll_no":
		return compareStrings(a.RollNo, b.RollNo)
	case "year":
		return compareStrings(a.Year, b.Year)
	case "attendance":
		return compareNullFloats(a.Attendance, b.Attendance)
	case "avg_marks":
		return compareNullFloats(a.AvgMarks, b.AvgMarks)
	case "status":
		return compareStrings(a.Status, b.Status)
	case "created_at":
		return compareTimes(a.CreatedAt, b.CreatedAt)
	}
	return 0
}

// compareNullFloats sorts nulls first.
func compareNullFloats(a, b null.Float64) int {
	switch {
	case !a.Valid && !b.Valid:
		return 0
	case !a.Valid:
		return -1
	case !b.Valid:
		return 1
	}
	return compareFloats(a.Float64, b.Float64)
}

func (repo *studentRepository) GetStudent(_ context.Context, id int) (student.Student, error) {
	repo.db.student.mutex.RLock()
	defer repo.db.student.mutex.RUnlock()

	if s, ok := repo.db.student.table[id]; ok {
		return *s, nil
	}
	return student.Student{}, student.ErrNotFound
}

func (repo *studentRepository) UpdateStudent(_ context.Context, s student.Student) (student.Student, error) {
	repo.db.student.mutex.Lock()
	if _, ok := repo.db.student.table[s.ID]; !ok {
		repo.db.student.mutex.Unlock()
		return student.Student{}, student.ErrNotFound
	}
	stored := s
	repo.db.student.table[s.ID] = &stored
	repo.db.student.mutex.Unlock()

	return s, errors.Wrap(repo.db.commit(), "saving students")
}

func (repo *studentRepository) DeleteStudentsByID(_ context.Context, ids ...int) (int, error) {
	repo.db.student.mutex.Lock()
	var deleted int
	for _, id := range ids {
		if _, ok := repo.db.student.table[id]; ok {
			delete(repo.db.student.table, id)
			deleted++
		}
	}
	repo.db.student.mutex.Unlock()

	if deleted == 0 {
		return 0, nil
	}
	return deleted, errors.Wrap(repo.db.commit(), "saving students")
}

func intInSlice(i int, list []int) bool {
	for _, item := range list {
		if item == i {
			return true
		}
	}
	return false
}
