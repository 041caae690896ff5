package dig_container

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"go.uber.org/dig"

	echoapi "github.com/trezcool/mentorship/apps/api/echo"
	"github.com/trezcool/mentorship/core"
	"github.com/trezcool/mentorship/core/metrics"
	"github.com/trezcool/mentorship/core/student"
	"github.com/trezcool/mentorship/core/survey"
	"github.com/trezcool/mentorship/core/user"
	emailsvc "github.com/trezcool/mentorship/services/email"
	logsvc "github.com/trezcool/mentorship/services/logger"
	"github.com/trezcool/mentorship/services/scheduler"
	"github.com/trezcool/mentorship/storage"
)

type (
	DBLoggerParam struct {
		dig.In
		Logger core.Logger `name:"dbLogger"`
	}

	Repositories struct {
		dig.Out
		Users    user.Repository
		Students student.Repository
		Surveys  survey.Repository
	}

	ServerParams struct {
		dig.In
		Conf       *core.Config
		Logger     core.Logger
		Validate   *validator.Validate
		Translator ut.Translator
		UserSvc    user.ServiceInterface
		StudentSvc student.ServiceInterface
		SurveySvc  survey.ServiceInterface
	}

	DigestParams struct {
		dig.In
		Log        zerolog.Logger
		StudentSvc student.ServiceInterface
		UserSvc    user.ServiceInterface
		Mailer     core.EmailService
	}
)

func newLogger(conf *core.Config, zlog zerolog.Logger) core.Logger {
	if conf.Debug {
		return logsvc.NewZeroLogger(zlog.With().Str("component", "api").Logger())
	}
	stdLogger := log.New(os.Stdout, "API : ", log.LstdFlags)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(true)
	return logger
}

func newDBLogger(conf *core.Config, zlog zerolog.Logger) core.Logger {
	if conf.Debug {
		return logsvc.NewZeroLogger(zlog.With().Str("component", "db").Logger())
	}
	stdLogger := log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(true)
	return logger
}

func newZerolog(conf *core.Config) zerolog.Logger {
	level := "info"
	if conf.Debug {
		level = "debug"
	}
	return logsvc.NewZerolog(logsvc.Config{Level: level, Pretty: conf.Debug}).
		With().
		Str("app", conf.AppName).
		Logger()
}

func newStore(conf *core.Config, loggerParam DBLoggerParam) *storage.Store {
	store, err := storage.Open(context.Background(), conf)
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up %s store: %v", conf.Store.Engine, err), err)
	}
	return store
}

func newRepositories(store *storage.Store) Repositories {
	return Repositories{
		Users:    store.Users,
		Students: store.Students,
		Surveys:  store.Surveys,
	}
}

func newAggregator(conf *core.Config) *metrics.Aggregator {
	return metrics.NewAggregator(metrics.WithTotalFees(conf.Risk.TotalFees))
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug {
		return emailsvc.NewConsoleService(conf, logger)
	}
	return emailsvc.NewSendgridService(conf, logger)
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

func newUserService(repo user.Repository) user.ServiceInterface {
	return user.NewService(repo)
}

func newStudentService(repo student.Repository, aggregator *metrics.Aggregator) student.ServiceInterface {
	return student.NewService(repo, aggregator)
}

func newSurveyService(repo survey.Repository) survey.ServiceInterface {
	return survey.NewService(repo)
}

func newServer(p ServerParams) *echoapi.Server {
	return echoapi.NewServer(echoapi.ServerDeps{
		Conf:       p.Conf,
		Logger:     p.Logger,
		Validate:   p.Validate,
		Translator: p.Translator,
		UserSvc:    p.UserSvc,
		StudentSvc: p.StudentSvc,
		SurveySvc:  p.SurveySvc,
	})
}

func newDigestJob(p DigestParams) *scheduler.DigestJob {
	return scheduler.NewDigestJob(scheduler.DigestConfig{
		Log:      p.Log,
		Students: p.StudentSvc,
		Users:    p.UserSvc,
		Mailer:   p.Mailer,
	})
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newZerolog))
	must(c.Provide(newStore))
	must(c.Provide(newRepositories))
	must(c.Provide(newAggregator))
	must(c.Provide(newEmailService))
	must(c.Provide(validator.New))
	must(c.Provide(newTranslator))
	must(c.Provide(newUserService))
	must(c.Provide(newStudentService))
	must(c.Provide(newSurveyService))
	must(c.Provide(newServer))
	must(c.Provide(scheduler.New))
	must(c.Provide(newDigestJob))

	return c
}

// Visualize writes the dependency graph of c in DOT format.
func Visualize(c *dig.Container, w io.Writer) error {
	return dig.Visualize(c, w)
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
