package inmemdb

import (
	"encoding/json"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/mentorship/core/student"
	"github.com/trezcool/mentorship/core/survey"
	"github.com/trezcool/mentorship/core/user"
)

// SnapshotVersion is the version of the snapshot format written by Export.
const SnapshotVersion = "1.0.0"

var ErrInvalidSnapshot = errors.New("invalid snapshot")

type (
	// Snapshot is the JSON document of a full export.
	Snapshot struct {
		Users      []UserRecord      `json:"users"`
		Students   []student.Student `json:"students"`
		Surveys    []survey.Survey   `json:"surveys"`
		Responses  []survey.Response `json:"responses"`
		Version    string            `json:"version"`
		ExportedAt time.Time         `json:"exported_at"`
	}

	// UserRecord is a user with its password hash, which the API never shows.
	UserRecord struct {
		user.User
		PasswordHash []byte `json:"password_hash"`
	}
)

// Export writes a snapshot of the whole DB to w.
func (db *DB) Export(w io.Writer) error {
	snap := db.snapshot()
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return errors.Wrap(enc.Encode(snap), "encoding snapshot")
}

func (db *DB) snapshot() Snapshot {
	db.user.mutex.RLock()
	db.student.mutex.RLock()
	db.survey.mutex.RLock()
	db.response.mutex.RLock()
	defer func() {
		db.response.mutex.RUnlock()
		db.survey.mutex.RUnlock()
		db.student.mutex.RUnlock()
		db.user.mutex.RUnlock()
	}()

	snap := Snapshot{
		Users:      make([]UserRecord, 0, len(db.user.table)),
		Students:   make([]student.Student, 0, len(db.student.table)),
		Surveys:    make([]survey.Survey, 0, len(db.survey.table)),
		Responses:  make([]survey.Response, 0, len(db.response.table)),
		Version:    SnapshotVersion,
		ExportedAt: time.Now().UTC(),
	}
	for _, usr := range db.user.table {
		u := cloneUser(*usr)
		snap.Users = append(snap.Users, UserRecord{User: u, PasswordHash: u.PasswordHash})
	}
	for _, s := range db.student.table {
		snap.Students = append(snap.Students, *s)
	}
	for _, s := range db.survey.table {
		snap.Surveys = append(snap.Surveys, cloneSurvey(*s))
	}
	for _, r := range db.response.table {
		snap.Responses = append(snap.Responses, cloneResponse(*r))
	}

	sort.Slice(snap.Users, func(i, j int) bool { return snap.Users[i].CreatedAt.Before(snap.Users[j].CreatedAt) })
	sort.Slice(snap.Students, func(i, j int) bool { return snap.Students[i].ID < snap.Students[j].ID })
	sort.Slice(snap.Surveys, func(i, j int) bool { return snap.Surveys[i].CreatedAt.Before(snap.Surveys[j].CreatedAt) })
	sort.Slice(snap.Responses, func(i, j int) bool {
		return snap.Responses[i].SubmittedAt.Before(snap.Responses[j].SubmittedAt)
	})
	return snap
}

// importDoc is a Snapshot whose collections may be absent; absent ones keep their table.
type importDoc struct {
	Users     *[]UserRecord      `json:"users"`
	Students  *[]student.Student `json:"students"`
	Surveys   *[]survey.Survey   `json:"surveys"`
	Responses *[]survey.Response `json:"responses"`
	Version   string             `json:"version"`
}

// Import replaces the tables of the DB with the collections of the snapshot read from r.
// Collections missing from the snapshot are kept as they are; responses to surveys that
// no longer exist are dropped.
// The DB is left untouched if the snapshot is invalid.
func (db *DB) Import(r io.Reader) error {
	var doc importDoc
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return errors.Wrap(err, "decoding snapshot")
	}
	if !strings.HasPrefix(doc.Version, "1.") {
		return errors.Wrapf(ErrInvalidSnapshot, "unsupported version %q", doc.Version)
	}

	var users map[string]*user.User
	if doc.Users != nil {
		users = make(map[string]*user.User, len(*doc.Users))
		for _, rec := range *doc.Users {
			if rec.ID == "" {
				return errors.Wrap(ErrInvalidSnapshot, "user without id")
			}
			usr := rec.User
			usr.PasswordHash = rec.PasswordHash
			usr = cloneUser(usr)
			users[usr.ID] = &usr
		}
	}

	var (
		students map[int]*student.Student
		seq      int
	)
	if doc.Students != nil {
		students = make(map[int]*student.Student, len(*doc.Students))
		for i := range *doc.Students {
			s := (*doc.Students)[i]
			if s.ID <= 0 {
				return errors.Wrap(ErrInvalidSnapshot, "student without id")
			}
			students[s.ID] = &s
			if s.ID > seq {
				seq = s.ID
			}
		}
	}

	var surveys map[string]*survey.Survey
	if doc.Surveys != nil {
		surveys = make(map[string]*survey.Survey, len(*doc.Surveys))
		for _, s := range *doc.Surveys {
			if s.ID == "" {
				return errors.Wrap(ErrInvalidSnapshot, "survey without id")
			}
			s = cloneSurvey(s)
			surveys[s.ID] = &s
		}
	}

	db.user.mutex.Lock()
	defer db.user.mutex.Unlock()
	db.student.mutex.Lock()
	defer db.student.mutex.Unlock()
	db.survey.mutex.Lock()
	defer db.survey.mutex.Unlock()
	db.response.mutex.Lock()
	defer db.response.mutex.Unlock()

	if surveys == nil {
		surveys = db.survey.table
	}

	var responses map[string]*survey.Response
	if doc.Responses != nil {
		responses = make(map[string]*survey.Response, len(*doc.Responses))
		for _, r := range *doc.Responses {
			if r.ID == "" {
				return errors.Wrap(ErrInvalidSnapshot, "response without id")
			}
			if _, ok := surveys[r.SurveyID]; !ok {
				return errors.Wrapf(ErrInvalidSnapshot, "response %s to unknown survey %s", r.ID, r.SurveyID)
			}
			r = cloneResponse(r)
			responses[r.ID] = &r
		}
	} else {
		responses = make(map[string]*survey.Response, len(db.response.table))
		for id, r := range db.response.table {
			if _, ok := surveys[r.SurveyID]; ok {
				responses[id] = r
			}
		}
	}

	if users != nil {
		db.user.table = users
	}
	if students != nil {
		db.student.table = students
		db.student.seq = seq
	}
	db.survey.table = surveys
	db.response.table = responses
	return nil
}
