package logsvc

import (
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"

	"github.com/trezcool/mentorship/core"
)

// RollbarLogger reports to Rollbar and echoes every entry to a std logger.
type RollbarLogger struct {
	std *log.Logger
}

var _ core.Logger = (*RollbarLogger)(nil)

func NewRollbarLogger(std *log.Logger, conf *core.Config) *RollbarLogger {
	rollbar.SetToken(conf.RollbarToken)
	rollbar.SetEnvironment(conf.Env)
	rollbar.SetServerHost(conf.Server.Host)
	rollbar.SetCodeVersion(conf.Build)
	rollbar.SetStackTracer(errors.StackTracer)
	return &RollbarLogger{std: std}
}

func (l RollbarLogger) Enable(enabled bool) {
	rollbar.SetEnabled(enabled)
}

type rollbarEntry struct {
	msg    string
	err    error
	extras map[string]interface{}
	person *core.Person
	other  []interface{}
}

// parse splits args into the error, the extras and the first core.Person; extras maps are merged.
func parse(msg string, args []interface{}) rollbarEntry {
	e := rollbarEntry{msg: msg}
	for _, arg := range args {
		switch a := arg.(type) {
		case core.Person:
			if e.person == nil {
				p := a
				e.person = &p
			}
		case error:
			if e.err == nil {
				e.err = a
			} else {
				e.other = append(e.other, a)
			}
		case map[string]interface{}:
			if e.extras == nil {
				e.extras = make(map[string]interface{}, len(a))
			}
			for k, v := range a {
				e.extras[k] = v
			}
		default:
			e.other = append(e.other, a)
		}
	}
	return e
}

// rollbarArgs sets the person of the entry and returns the arguments of a rollbar.Log call.
func (e rollbarEntry) rollbarArgs() []interface{} {
	if e.person != nil {
		rollbar.SetPerson(e.person.ID, e.person.Username, e.person.Email)
	} else {
		rollbar.ClearPerson()
	}

	args := []interface{}{e.msg}
	if e.err != nil {
		args = append(args, e.err)
	}
	if e.extras != nil {
		args = append(args, e.extras)
	}
	return append(args, e.other...)
}

func (e rollbarEntry) String() string {
	var b strings.Builder
	b.WriteString(e.msg)
	if e.err != nil {
		fmt.Fprintf(&b, " error=%q", e.err.Error())
	}
	if e.person != nil {
		fmt.Fprintf(&b, " person=%s(%s)", e.person.Username, e.person.ID)
	}
	keys := make([]string, 0, len(e.extras))
	for k := range e.extras {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, e.extras[k])
	}
	for _, o := range e.other {
		fmt.Fprintf(&b, " %+v", o)
	}
	return b.String()
}

func (l RollbarLogger) print(level string, e rollbarEntry) {
	l.std.Println(level + " " + e.String())
}

func (l RollbarLogger) Debug(msg string, args ...interface{}) {
	e := parse(msg, args)
	rollbar.Debug(e.rollbarArgs()...)
	l.print("DEBUG", e)
}

func (l RollbarLogger) Info(msg string, args ...interface{}) {
	e := parse(msg, args)
	rollbar.Info(e.rollbarArgs()...)
	l.print("INFO", e)
}

func (l RollbarLogger) Warn(msg string, args ...interface{}) {
	e := parse(msg, args)
	rollbar.Warning(e.rollbarArgs()...)
	l.print("WARN", e)
}

func (l RollbarLogger) Error(msg string, args ...interface{}) {
	e := parse(msg, args)
	rollbar.Error(e.rollbarArgs()...)
	l.print("ERROR", e)
}

func (l RollbarLogger) Fatal(msg string, args ...interface{}) {
	e := parse(msg, args)
	rollbar.Critical(e.rollbarArgs()...)
	l.print("FATAL", e)
	rollbar.Wait()
	l.std.Fatal(msg)
}
