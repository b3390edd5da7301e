package logsvc

import (
	"log"

	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"

	"github.com/ricardious/semestrix/core"
	"github.com/ricardious/semestrix/core/user"
)

// RollbarLogger reports to Rollbar and mirrors everything to a standard logger.
// Args may carry an error, extra maps and at most one user.User; the user is
// attached to the Rollbar item as the person, not forwarded as a payload arg.
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

func (l *RollbarLogger) Enable(enabled bool) {
	rollbar.SetEnabled(enabled)
}

func (l *RollbarLogger) log(level, msg string, args []interface{}) {
	payload := make([]interface{}, 0, len(args)+1)
	payload = append(payload, msg)

	tagged := false
	for _, arg := range args {
		usr, ok := arg.(user.User)
		if !ok {
			payload = append(payload, arg)
			continue
		}
		if !tagged {
			rollbar.SetPerson(usr.ID, usr.Username, usr.Email)
			tagged = true
		}
	}
	if !tagged {
		rollbar.ClearPerson()
	}
	rollbar.Log(level, payload...)

	l.std.Println(msg)
	for _, arg := range args {
		l.std.Printf("%+v\n", arg)
	}
}

func (l *RollbarLogger) Debug(msg string, args ...interface{}) { l.log(rollbar.DEBUG, msg, args) }
func (l *RollbarLogger) Info(msg string, args ...interface{})  { l.log(rollbar.INFO, msg, args) }
func (l *RollbarLogger) Warn(msg string, args ...interface{})  { l.log(rollbar.WARN, msg, args) }
func (l *RollbarLogger) Error(msg string, args ...interface{}) { l.log(rollbar.ERR, msg, args) }

func (l *RollbarLogger) Fatal(msg string, args ...interface{}) {
	l.log(rollbar.CRIT, msg, args)
	l.std.Fatal(msg)
}
