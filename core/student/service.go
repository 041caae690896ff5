package student

import (
	"context"
	"sort"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/mentorship/core"
	"github.com/trezcool/mentorship/core/metrics"
	"github.com/trezcool/mentorship/core/risk"
)

var (
	// errors
	ErrNotFound     = errors.New("student not found")
	ErrRollNoExists = errors.New("a student with this roll number already exists")
)

type (
	Repository interface {
		CheckRollNoUniqueness(ctx context.Context, rollNo string, excludedIDs ...int) error
		CreateStudent(ctx context.Context, s Student) (Student, error)
		// QueryStudents applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on one of Student.Name, Student.RollNo or Student.Email.
		QueryStudents(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Student, error)
		GetStudent(ctx context.Context, id int) (Student, error)
		UpdateStudent(ctx context.Context, s Student) (Student, error)
		DeleteStudentsByID(ctx context.Context, ids ...int) (int, error)
	}

	ServiceInterface interface {
		CheckUniqueness(ctx context.Context, rollNo string, excludedIDs ...int) error
		Create(ctx context.Context, ns NewStudent) (Student, error)
		Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Student, error)
		GetByID(ctx context.Context, id int) (Student, error)
		Update(ctx context.Context, id int, us UpdateStudent) (Student, error)
		Delete(ctx context.Context, ids ...int) error
		Profile(ctx context.Context, id int) (Profile, error)
		RiskReport(ctx context.Context, filter *QueryFilter) (RiskReport, error)
		Digests(ctx context.Context, filter *QueryFilter) ([]Digest, error)
	}

	Service struct {
		repo       Repository
		aggregator *metrics.Aggregator
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(repo Repository, aggregator *metrics.Aggregator) *Service {
	return &Service{repo: repo, aggregator: aggregator}
}

// OrderingFields are the fields students can be sorted by.
var OrderingFields = []string{"id", "name", "roll_no", "year", "attendance", "avg_marks", "status", "created_at"}

func (svc *Service) CheckUniqueness(ctx context.Context, rollNo string, excludedIDs ...int) error {
	if err := svc.repo.CheckRollNoUniqueness(ctx, rollNo, excludedIDs...); err != nil {
		if errors.Cause(err) == ErrRollNoExists {
			return core.NewValidationError(ErrRollNoExists, core.FieldError{Field: "roll_no", Error: ErrRollNoExists.Error()})
		}
		return errors.Wrap(err, "checking roll number uniqueness")
	}
	return nil
}

// Create adds a student; new students are Active unless told otherwise.
func (svc *Service) Create(ctx context.Context, ns NewStudent) (Student, error) {
	now := time.Now().UTC()
	s := Student{
		Name:       ns.Name,
		RollNo:     ns.RollNo,
		Year:       ns.Year,
		Email:      ns.Email,
		Attendance: ns.Attendance,
		AvgMarks:   ns.AvgMarks,
		Status:     ns.Status,
		Department: ns.Department,
		Mentor:     ns.Mentor,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if s.Status == "" {
		s.Status = StatusActive
	}
	s, err := svc.repo.CreateStudent(ctx, s)
	return s, errors.Wrap(err, "creating student")
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Student, error) {
	if filter != nil {
		filter.Clean()
	}
	students, err := svc.repo.QueryStudents(ctx, filter, core.FilterOrderings(ordering, OrderingFields...))
	return students, errors.Wrap(err, "querying students")
}

func (svc *Service) GetByID(ctx context.Context, id int) (Student, error) {
	return svc.repo.GetStudent(ctx, id)
}

func (svc *Service) Update(ctx context.Context, id int, us UpdateStudent) (Student, error) {
	orig, err := svc.repo.GetStudent(ctx, id)
	if err != nil {
		return Student{}, err
	}
	orig.Name = us.Name
	orig.RollNo = us.RollNo
	orig.Year = us.Year
	orig.Email = us.Email
	orig.Attendance = us.Attendance
	orig.AvgMarks = us.AvgMarks
	orig.Status = us.Status
	orig.Department = us.Department
	orig.Mentor = us.Mentor
	orig.UpdatedAt = time.Now().UTC()

	s, err := svc.repo.UpdateStudent(ctx, orig)
	return s, errors.Wrap(err, "updating student")
}

func (svc *Service) Delete(ctx context.Context, ids ...int) error {
	_, err := svc.repo.DeleteStudentsByID(ctx, ids...)
	return errors.Wrap(err, "deleting students")
}

// Profile is what a student dashboard shows.
type Profile struct {
	Student    Student                `json:"student"`
	Metrics    metrics.StudentMetrics `json:"metrics"`
	Assessment risk.Assessment        `json:"assessment"`
}

// Profile aggregates the metrics of a student then classifies them.
func (svc *Service) Profile(ctx context.Context, id int) (Profile, error) {
	s, err := svc.repo.GetStudent(ctx, id)
	if err != nil {
		return Profile{}, err
	}
	m, a, err := svc.assess(s)
	if err != nil {
		return Profile{}, err
	}
	return Profile{Student: s, Metrics: m, Assessment: a}, nil
}

func (svc *Service) assess(s Student) (metrics.StudentMetrics, risk.Assessment, error) {
	m := svc.aggregator.Aggregate(s.ID, s.Baseline())
	a, err := risk.Assess(m.RiskFactors())
	if err != nil {
		return m, risk.Assessment{}, errors.Wrapf(err, "assessing student %d", s.ID)
	}
	return m, a, nil
}

type (
	// RosterEntry is a student listed in a risk report.
	RosterEntry struct {
		ID              int          `json:"id"`
		Name            string       `json:"name"`
		RollNo          string       `json:"roll_no"`
		Year            string       `json:"year"`
		Mentor          string       `json:"mentor"`
		Score           int          `json:"score"`
		Zone            risk.Zone    `json:"zone"`
		Urgency         risk.Urgency `json:"urgency"`
		Recommendations []string     `json:"recommendations"`
	}

	// Unscored is a student whose data could not be assessed.
	Unscored struct {
		ID     int    `json:"id"`
		Name   string `json:"name"`
		RollNo string `json:"roll_no"`
		Reason string `json:"reason"`
	}

	RiskReport struct {
		Summary  risk.Summary  `json:"summary"`
		Green    []RosterEntry `json:"green"`
		Yellow   []RosterEntry `json:"yellow"`
		Red      []RosterEntry `json:"red"`
		Unscored []Unscored    `json:"unscored"`
	}

	// Digest lists the mentees of a mentor who need attention.
	Digest struct {
		Mentor   string        `json:"mentor"`
		Students []RosterEntry `json:"students"`
	}
)

// RiskReport assesses every student matching filter and buckets them per zone.
// Students that cannot be assessed are listed in Unscored instead of failing the report.
func (svc *Service) RiskReport(ctx context.Context, filter *QueryFilter) (RiskReport, error) {
	students, err := svc.Query(ctx, filter, []core.DBOrdering{{Field: "id", Ascending: true}})
	if err != nil {
		return RiskReport{}, err
	}

	report := RiskReport{
		Green:    make([]RosterEntry, 0),
		Yellow:   make([]RosterEntry, 0),
		Red:      make([]RosterEntry, 0),
		Unscored: make([]Unscored, 0),
	}
	for _, s := range students {
		_, a, err := svc.assess(s)
		if err != nil {
			report.Unscored = append(report.Unscored, Unscored{ID: s.ID, Name: s.Name, RollNo: s.RollNo, Reason: errors.Cause(err).Error()})
			continue
		}

		entry := RosterEntry{
			ID:              s.ID,
			Name:            s.Name,
			RollNo:          s.RollNo,
			Year:            s.Year,
			Mentor:          s.Mentor,
			Score:           a.Score,
			Zone:            a.Zone,
			Urgency:         a.Urgency,
			Recommendations: a.Recommendations,
		}
		report.Summary.Add(a.Zone)
		switch a.Zone {
		case risk.ZoneGreen:
			report.Green = append(report.Green, entry)
		case risk.ZoneYellow:
			report.Yellow = append(report.Yellow, entry)
		case risk.ZoneRed:
			report.Red = append(report.Red, entry)
		}
	}
	return report, nil
}

// Digests groups the yellow and red students of the report per mentor, riskiest first.
// Students without a mentor are left out.
func (svc *Service) Digests(ctx context.Context, filter *QueryFilter) ([]Digest, error) {
	report, err := svc.RiskReport(ctx, filter)
	if err != nil {
		return nil, err
	}

	byMentor := make(map[string][]RosterEntry)
	for _, entry := range append(append([]RosterEntry(nil), report.Red...), report.Yellow...) {
		if entry.Mentor == "" {
			continue
		}
		byMentor[entry.Mentor] = append(byMentor[entry.Mentor], entry)
	}

	digests := make([]Digest, 0, len(byMentor))
	for mentor, entries := range byMentor {
		sort.SliceStable(entries, func(i, j int) bool {
			if entries[i].Zone != entries[j].Zone {
				return entries[i].Zone == risk.ZoneRed
			}
			return entries[i].Score < entries[j].Score
		})
		digests = append(digests, Digest{Mentor: mentor, Students: entries})
	}
	sort.Slice(digests, func(i, j int) bool { return digests[i].Mentor < digests[j].Mentor })
	return digests, nil
}
