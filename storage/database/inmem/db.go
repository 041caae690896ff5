package inmemdb

import (
	"os"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/mentorship/core"
	"github.com/trezcool/mentorship/core/student"
	"github.com/trezcool/mentorship/core/survey"
	"github.com/trezcool/mentorship/core/user"
)

// Lock order: user, student, survey, response.
type (
	DB struct {
		user     *userTable
		student  *studentTable
		survey   *surveyTable
		response *responseTable

		path   string // snapshot file; empty keeps data in memory only
		saveMu sync.Mutex
	}

	userTable struct {
		table map[string]*user.User
		mutex sync.RWMutex
	}

	studentTable struct {
		table map[int]*student.Student
		seq   int
		mutex sync.RWMutex
	}

	surveyTable struct {
		table map[string]*survey.Survey
		mutex sync.RWMutex
	}

	responseTable struct {
		table map[string]*survey.Response
		mutex sync.RWMutex
	}
)

// Open builds an empty in-memory DB.
func Open() (*DB, error) {
	db := &DB{
		user:     &userTable{table: make(map[string]*user.User)},
		student:  &studentTable{table: make(map[int]*student.Student)},
		survey:   &surveyTable{table: make(map[string]*survey.Survey)},
		response: &responseTable{table: make(map[string]*survey.Response)},
	}
	return db, nil
}

// OpenFile builds an in-memory DB backed by the snapshot file at path.
// The snapshot is loaded if the file exists and every write saves it back.
func OpenFile(path string) (*DB, error) {
	db, err := Open()
	if err != nil {
		return nil, err
	}
	db.path = path

	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return db, nil
		}
		return nil, errors.Wrap(err, "opening snapshot")
	}
	//goland:noinspection GoUnhandledErrorResult
	defer file.Close()

	if err = db.Import(file); err != nil {
		return nil, errors.Wrapf(err, "loading snapshot %s", path)
	}
	return db, nil
}

// Reset empties every table and saves the empty snapshot.
func (db *DB) Reset() error {
	db.user.mutex.Lock()
	db.student.mutex.Lock()
	db.survey.mutex.Lock()
	db.response.mutex.Lock()
	db.user.table = make(map[string]*user.User)
	db.student.table = make(map[int]*student.Student)
	db.student.seq = 0
	db.survey.table = make(map[string]*survey.Survey)
	db.response.table = make(map[string]*survey.Response)
	db.response.mutex.Unlock()
	db.survey.mutex.Unlock()
	db.student.mutex.Unlock()
	db.user.mutex.Unlock()
	return db.commit()
}

// Save writes the snapshot file, if any.
func (db *DB) Save() error {
	if db.path == "" {
		return nil
	}
	db.saveMu.Lock()
	defer db.saveMu.Unlock()

	tmp := db.path + ".tmp"
	file, err := os.Create(tmp)
	if err != nil {
		return errors.Wrap(err, "creating snapshot")
	}
	if err = db.Export(file); err != nil {
		_ = file.Close()
		return err
	}
	if err = file.Close(); err != nil {
		return errors.Wrap(err, "closing snapshot")
	}
	return errors.Wrap(os.Rename(tmp, db.path), "replacing snapshot")
}

// commit persists a write; it must be called without holding any table lock.
func (db *DB) commit() error {
	return db.Save()
}

// Helpers

func contains(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

func compareStrings(a, b string) int {
	return strings.Compare(strings.ToLower(a), strings.ToLower(b))
}

func compareInts(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func compareFloats(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func compareBools(a, b bool) int {
	switch {
	case a == b:
		return 0
	case b:
		return -1
	}
	return 1
}

func compareTimes(a, b time.Time) int {
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	}
	return 0
}

// less applies ordering: the first field that differs decides.
func less(ordering []core.DBOrdering, cmp func(field string) int) bool {
	for _, ord := range ordering {
		c := cmp(ord.Field)
		if c == 0 {
			continue
		}
		if ord.Ascending {
			return c < 0
		}
		return c > 0
	}
	return false
}
