package inmemdb

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/mentorship/core/student"
	"github.com/trezcool/mentorship/core/survey"
	"github.com/trezcool/mentorship/core/user"
)

const (
	seedDepartment = "Computer Science"
	seedMentor     = "Dr. Sarah Miller"
)

type seedStudent struct {
	name, rollNo, year, email string
	attendance, avgMarks      float64
	status                    string
}

var seedStudents = []seedStudent{
	{"John Doe", "CS001", "1st", "john.doe@email.com", 92, 85, student.StatusActive},
	{"Jane Smith", "CS002", "1st", "jane.smith@email.com", 88, 90, student.StatusActive},
	{"Mike Johnson", "CS053", "2nd", "mike.j@email.com", 78, 76, student.StatusWarning},
	{"Sarah Wilson", "CS104", "3rd", "sarah.w@email.com", 95, 88, student.StatusActive},
	{"David Brown", "CS155", "4th", "david.b@email.com", 82, 79, student.StatusActive},
	{"Emily Chen", "CS006", "1st", "emily.chen@email.com", 94, 87, student.StatusActive},
	{"Alex Rodriguez", "CS057", "2nd", "alex.r@email.com", 86, 74, student.StatusActive},
	{"Lisa Wang", "CS108", "3rd", "lisa.w@email.com", 91, 89, student.StatusActive},
	{"Maria Garcia", "CS059", "2nd", "maria.g@email.com", 79, 81, student.StatusWarning},
	{"Kevin Kim", "CS110", "3rd", "kevin.k@email.com", 77, 73, student.StatusWarning},
	{"Rachel Green", "CS011", "1st", "rachel.g@email.com", 83, 72, student.StatusWarning},
	{"Tyler Ross", "CS112", "3rd", "tyler.r@email.com", 65, 58, student.StatusCritical},
	{"Ashley Martinez", "CS013", "1st", "ashley.m@email.com", 58, 61, student.StatusCritical},
	{"Brandon Lee", "CS064", "2nd", "brandon.l@email.com", 70, 54, student.StatusCritical},
	{"Jessica Taylor", "CS165", "4th", "jessica.t@email.com", 62, 67, student.StatusCritical},
	{"Daniel White", "CS116", "3rd", "daniel.w@email.com", 59, 59, student.StatusCritical},
}

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func seedSurveys() []survey.Survey {
	rating := func(q string) survey.Question {
		return survey.Question{Type: survey.QuestionRating, Question: q, Required: true}
	}
	radio := func(q string, opts ...string) survey.Question {
		return survey.Question{Type: survey.QuestionRadio, Question: q, Options: opts, Required: true}
	}
	textarea := func(q string) survey.Question {
		return survey.Question{Type: survey.QuestionTextarea, Question: q}
	}
	withIDs := func(qs ...survey.Question) []survey.Question {
		for i := range qs {
			qs[i].ID = "q" + string(rune('1'+i))
		}
		return qs
	}

	return []survey.Survey{
		{
			Title:          "Academic Performance Survey",
			Description:    "Help us understand how we can improve our academic programs and support systems.",
			Status:         survey.StatusActive,
			TargetAudience: survey.AudienceAllStudents,
			EndDate:        null.TimeFrom(date(2024, time.October, 1)),
			CreatedBy:      "admin",
			Responses:      45,
			CreatedAt:      date(2024, time.September, 1),
			Questions: withIDs(
				rating("How satisfied are you with the quality of teaching in your courses?"),
				radio("Which subject do you find most challenging?", "Mathematics", "Physics", "Chemistry", "Computer Science", "English"),
				textarea("What suggestions do you have for improving the academic experience?"),
				survey.Question{
					Type:     survey.QuestionCheckbox,
					Question: "Which support services have you used? (Select all that apply)",
					Options:  []string{"Library", "Tutoring", "Career Counseling", "Academic Advising", "Mentorship Program"},
				},
			),
		},
		{
			Title:          "Campus Facilities Feedback",
			Description:    "Share your thoughts on our campus facilities and help us identify areas for improvement.",
			Status:         survey.StatusActive,
			TargetAudience: survey.AudienceAllStudents,
			EndDate:        null.TimeFrom(date(2024, time.October, 10)),
			CreatedBy:      "admin",
			Responses:      32,
			CreatedAt:      date(2024, time.September, 10),
			Questions: withIDs(
				rating("How would you rate the overall condition of campus facilities?"),
				radio("Which facility needs the most improvement?", "Library", "Cafeteria", "Laboratories", "Sports Complex", "Dormitories"),
				textarea("Please describe any specific issues you've encountered with campus facilities."),
			),
		},
		{
			Title:          "Mentorship Program Evaluation",
			Description:    "Evaluate your experience with our mentorship program and help us enhance it.",
			Status:         survey.StatusCompleted,
			TargetAudience: survey.AudienceAllStudents,
			EndDate:        null.TimeFrom(date(2024, time.September, 15)),
			CreatedBy:      "admin",
			Responses:      67,
			CreatedAt:      date(2024, time.August, 15),
			Questions: withIDs(
				rating("How helpful has your mentor been in your academic journey?"),
				radio("How often do you meet with your mentor?", "Weekly", "Bi-weekly", "Monthly", "Rarely", "Never"),
				textarea("What improvements would you suggest for the mentorship program?"),
			),
		},
	}
}

// Seed loads the default students, users and surveys into the empty tables of db.
// Tables that already hold data are left untouched.
func Seed(ctx context.Context, db *DB) error {
	now := time.Now().UTC()

	studentRepo := NewStudentRepository(db)
	students, err := studentRepo.QueryStudents(ctx, nil, nil)
	if err != nil {
		return errors.Wrap(err, "querying students")
	}
	var firstStudent null.Int
	for _, s := range students {
		if s.RollNo == seedStudents[0].rollNo {
			firstStudent = null.IntFrom(s.ID)
		}
	}
	if len(students) == 0 {
		for _, ss := range seedStudents {
			s, err := studentRepo.CreateStudent(ctx, student.Student{
				Name:       ss.name,
				RollNo:     ss.rollNo,
				Year:       ss.year,
				Email:      ss.email,
				Attendance: null.Float64From(ss.attendance),
				AvgMarks:   null.Float64From(ss.avgMarks),
				Status:     ss.status,
				Department: seedDepartment,
				Mentor:     seedMentor,
				CreatedAt:  now,
				UpdatedAt:  now,
			})
			if err != nil {
				return errors.Wrapf(err, "seeding student %s", ss.rollNo)
			}
			if !firstStudent.Valid {
				firstStudent = null.IntFrom(s.ID)
			}
		}
	}

	userRepo := NewUserRepository(db)
	users, err := userRepo.QueryUsers(ctx, nil, nil)
	if err != nil {
		return errors.Wrap(err, "querying users")
	}
	if len(users) == 0 {
		seeds := []struct {
			usr user.User
			pwd string
		}{
			{user.User{Name: "Admin User", Username: "admin", Email: "admin@university.edu", Roles: user.AdminRoles}, "admin123"},
			{user.User{Name: seedMentor, Username: "mentor", Email: "sarah.miller@university.edu", Roles: user.MentorRoles, Department: seedDepartment}, "mentor123"},
			{user.User{Name: "John Doe", Username: "student", Email: "john.doe@university.edu", Roles: user.StudentRoles, Department: seedDepartment, StudentID: firstStudent}, "student123"},
		}
		for _, seed := range seeds {
			usr := seed.usr
			usr.SetActive(true)
			usr.CreatedAt, usr.UpdatedAt = now, now
			if err := usr.SetPassword(seed.pwd); err != nil {
				return errors.Wrap(err, "setting password")
			}
			if _, err := userRepo.CreateUser(ctx, usr); err != nil {
				return errors.Wrapf(err, "seeding user %s", usr.Username)
			}
		}
	}

	surveyRepo := NewSurveyRepository(db)
	surveys, err := surveyRepo.QuerySurveys(ctx, nil, nil)
	if err != nil {
		return errors.Wrap(err, "querying surveys")
	}
	if len(surveys) == 0 {
		for _, s := range seedSurveys() {
			s.UpdatedAt = s.CreatedAt
			if _, err := surveyRepo.CreateSurvey(ctx, s); err != nil {
				return errors.Wrapf(err, "seeding survey %q", s.Title)
			}
		}
	}
	return nil
}
