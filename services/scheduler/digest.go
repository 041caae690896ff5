package scheduler

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"net/mail"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/trezcool/mentorship/core"
	"github.com/trezcool/mentorship/core/student"
	"github.com/trezcool/mentorship/core/user"
)

const (
	DigestTemplate = "risk_digest"
	DigestSubject  = "Mentees needing attention"
	digestTimeout  = time.Minute
)

// DigestJob emails every mentor the list of their yellow and red zone mentees.
type DigestJob struct {
	log      zerolog.Logger
	students student.ServiceInterface
	users    user.ServiceInterface
	mailer   core.EmailService
}

type DigestConfig struct {
	Log      zerolog.Logger
	Students student.ServiceInterface
	Users    user.ServiceInterface
	Mailer   core.EmailService
}

func NewDigestJob(cfg DigestConfig) *DigestJob {
	return &DigestJob{
		log:      cfg.Log.With().Str("job", DigestTemplate).Logger(),
		students: cfg.Students,
		users:    cfg.Users,
		mailer:   cfg.Mailer,
	}
}

func (j *DigestJob) Name() string {
	return DigestTemplate
}

func (j *DigestJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), digestTimeout)
	defer cancel()

	_, err := j.Send(ctx)
	return err
}

// Send builds the digests and mails them. It returns the number of mentors notified.
// Mentors without an account or an email address are skipped.
func (j *DigestJob) Send(ctx context.Context) (int, error) {
	digests, err := j.students.Digests(ctx, nil)
	if err != nil {
		return 0, errors.Wrap(err, "building digests")
	}

	msgs := make([]*core.EmailMessage, 0, len(digests))
	for _, d := range digests {
		mentor, err := j.users.GetMentorByName(ctx, d.Mentor)
		if err != nil {
			if errors.Cause(err) == user.ErrNotFound {
				j.log.Warn().Str("mentor", d.Mentor).Msg("No mentor account, skipping digest")
				continue
			}
			return 0, errors.Wrapf(err, "finding mentor %q", d.Mentor)
		}
		if mentor.Email == "" || !mentor.Active() {
			j.log.Warn().Str("mentor", d.Mentor).Msg("Mentor cannot be emailed, skipping digest")
			continue
		}

		msg, err := DigestMessage(mentor, d)
		if err != nil {
			return 0, err
		}
		msgs = append(msgs, msg)
	}

	if len(msgs) > 0 {
		j.mailer.SendMessages(msgs...)
	}
	j.log.Info().Int("digests", len(digests)).Int("sent", len(msgs)).Msg("Risk digests sent")
	return len(msgs), nil
}

// DigestMessage builds the digest email of a mentor, with the roster attached as CSV.
func DigestMessage(mentor user.User, d student.Digest) (*core.EmailMessage, error) {
	msg := &core.EmailMessage{
		To:           []mail.Address{{Name: mentor.Name, Address: mentor.Email}},
		Subject:      DigestSubject,
		TemplateName: DigestTemplate,
		TemplateData: d,
	}

	roster, err := RosterCSV(d.Students)
	if err != nil {
		return nil, err
	}
	if err = msg.Attach(bytes.NewReader(roster), "at-risk-mentees.csv", "text/csv"); err != nil {
		return nil, errors.Wrap(err, "attaching roster")
	}
	return msg, nil
}

// RosterCSV renders roster entries as CSV with a header row.
func RosterCSV(entries []student.RosterEntry) ([]byte, error) {
	buf := new(bytes.Buffer)
	w := csv.NewWriter(buf)
	_ = w.Write([]string{"id", "name", "roll_no", "year", "zone", "score", "urgency", "recommendations"})
	for _, e := range entries {
		_ = w.Write([]string{
			strconv.Itoa(e.ID),
			e.Name,
			e.RollNo,
			e.Year,
			string(e.Zone),
			strconv.Itoa(e.Score),
			string(e.Urgency),
			strings.Join(e.Recommendations, "; "),
		})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, errors.Wrap(err, fmt.Sprintf("writing %d roster rows", len(entries)))
	}
	return buf.Bytes(), nil
}
