package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/mentorship/core"
	"github.com/trezcool/mentorship/core/student"
	"github.com/trezcool/mentorship/core/survey"
	"github.com/trezcool/mentorship/core/user"
	"github.com/trezcool/mentorship/storage/database/inmem"
)

// PrepareDB returns an empty in-memory DB.
func PrepareDB(t *testing.T) *inmemdb.DB {
	t.Helper()
	db, err := inmemdb.Open()
	if err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	return db
}

// NewValidator returns a validator with every validator & translation of the app registered.
func NewValidator() (*validator.Validate, ut.Translator) {
	_en := en.New()
	translator, _ := ut.New(_en, _en).GetTranslator("en")
	validate := validator.New()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	student.InitValidators(validate, translator)
	survey.InitValidators(validate, translator)
	return validate, translator
}

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, uname, email, pwd string,
	roles []string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	t.Helper()
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		Name:      name,
		Username:  uname,
		Email:     email,
		Roles:     roles,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	usr.SetActive(isActive)
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

// CreateStudent adds a student with the given performance; negative values leave it unset.
func CreateStudent(
	t *testing.T,
	repo student.Repository,
	name, rollNo, year, mentor string,
	attendance, avgMarks float64,
) student.Student {
	t.Helper()
	now := time.Now().UTC()
	s := student.Student{
		Name:       name,
		RollNo:     rollNo,
		Year:       year,
		Status:     student.StatusActive,
		Department: "Computer Science",
		Mentor:     mentor,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if attendance >= 0 {
		s.Attendance = null.Float64From(attendance)
	}
	if avgMarks >= 0 {
		s.AvgMarks = null.Float64From(avgMarks)
	}
	s, err := repo.CreateStudent(context.Background(), s)
	if err != nil {
		t.Fatalf("CreateStudent() failed: %v", err)
	}
	return s
}

// CreateSurvey adds an active survey for all students with a required rating question (q1),
// a required radio question (q2: Yes, No) and an optional text question (q3).
func CreateSurvey(t *testing.T, repo survey.Repository, title string, status ...string) survey.Survey {
	t.Helper()
	now := time.Now().UTC()
	s := survey.Survey{
		Title:          title,
		Description:    title + " description",
		Status:         survey.StatusActive,
		TargetAudience: survey.AudienceAllStudents,
		CreatedBy:      "admin",
		Questions: []survey.Question{
			{ID: "q1", Type: survey.QuestionRating, Question: "Rate it", Required: true},
			{ID: "q2", Type: survey.QuestionRadio, Question: "Again?", Options: []string{"Yes", "No"}, Required: true},
			{ID: "q3", Type: survey.QuestionText, Question: "Comments"},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if len(status) > 0 {
		s.Status = status[0]
	}
	s, err := repo.CreateSurvey(context.Background(), s)
	if err != nil {
		t.Fatalf("CreateSurvey() failed: %v", err)
	}
	return s
}
