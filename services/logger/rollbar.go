package logsvc

import (
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/session"
	"github.com/trezcool/academia/core/user"
)

// RollbarLogger reports to Rollbar and echoes every entry to a standard logger.
type RollbarLogger struct {
	std *log.Logger
	// rollbar's person is global: entries are serialized
	mu sync.Mutex
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

func (l *RollbarLogger) Enable(enabled bool) {
	rollbar.SetEnabled(enabled)
}

// Close waits for the queued reports to be sent.
func (l *RollbarLogger) Close() {
	rollbar.Close()
}

// prepare extracts the person the entry is about and returns the remaining arguments, msg first.
// Expected args: error, map[string]interface{}, user.User or *session.Session.
func prepare(msg string, args []interface{}) (*user.User, []interface{}) {
	var person *user.User
	rest := make([]interface{}, 0, len(args)+1)
	rest = append(rest, msg)
	for _, arg := range args {
		switch v := arg.(type) {
		case user.User:
			if person == nil {
				person = &v
			}
		case *session.Session:
			if person == nil && v.Authenticated() {
				u := v.User()
				person = &u
			}
		default:
			rest = append(rest, arg)
		}
	}
	return person, rest
}

func (l *RollbarLogger) log(level, msg string, args []interface{}) {
	person, rest := prepare(msg, args)

	l.mu.Lock()
	if person != nil {
		rollbar.SetPerson(person.ID, person.Username, person.Email)
	} else {
		rollbar.ClearPerson()
	}
	rollbar.Log(level, rest...)
	l.mu.Unlock()

	l.std.Print(format(level, msg, rest[1:]))
}

func format(level, msg string, args []interface{}) string {
	var b strings.Builder
	_, _ = fmt.Fprintf(&b, "[%s] %s", strings.ToUpper(level), msg)
	for _, arg := range args {
		_, _ = fmt.Fprintf(&b, "\n\t%+v", arg)
	}
	return b.String()
}

func (l *RollbarLogger) Debug(msg string, args ...interface{}) {
	l.log(rollbar.DEBUG, msg, args)
}

func (l *RollbarLogger) Info(msg string, args ...interface{}) {
	l.log(rollbar.INFO, msg, args)
}

func (l *RollbarLogger) Warn(msg string, args ...interface{}) {
	l.log(rollbar.WARN, msg, args)
}

func (l *RollbarLogger) Error(msg string, args ...interface{}) {
	l.log(rollbar.ERR, msg, args)
}

func (l *RollbarLogger) Fatal(msg string, args ...interface{}) {
	l.log(rollbar.CRIT, msg, args)
	rollbar.Close()
	l.std.Fatal(msg)
}
