package logsvc

import (
	"context"
	"log"
	"net/http"
	"os"

	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"

	"github.com/rotinas-pei/backend/core"
	"github.com/rotinas-pei/backend/core/routine"
	"github.com/rotinas-pei/backend/core/user"
)

// RollbarLogger writes to a std logger and reports to Rollbar when enabled.
type RollbarLogger struct {
	std *log.Logger
}

var _ core.Logger = (*RollbarLogger)(nil)

func NewRollbarLogger(std *log.Logger, conf *core.Config) *RollbarLogger {
	host, _ := os.Hostname()
	rollbar.SetToken(conf.RollbarToken)
	rollbar.SetEnvironment(conf.Env)
	rollbar.SetServerHost(host)
	rollbar.SetCodeVersion(conf.Build)
	rollbar.SetStackTracer(errors.StackTracer)
	return &RollbarLogger{std: std}
}

func (l RollbarLogger) Enable(enabled bool) {
	rollbar.SetEnabled(enabled)
}

// prepare turns args into rollbar.Log arguments.
// args may hold errors, extra data maps, requests and one person (user.User or routine.Principal),
// which is attached to the item through its context rather than the global client.
// Any other value is reported under the "details" extra.
func (l RollbarLogger) prepare(msg string, args []interface{}) []interface{} {
	var (
		person  *rollbar.Person
		extras  map[string]interface{}
		details []interface{}
	)
	newArgs := make([]interface{}, 0, len(args)+3)
	newArgs = append(newArgs, msg)
	for _, arg := range args {
		switch v := arg.(type) {
		case user.User:
			if person == nil {
				person = &rollbar.Person{Id: v.ID, Username: v.Name, Email: v.Email}
			}
		case routine.Principal:
			if person == nil {
				person = &rollbar.Person{Id: v.ID, Username: v.Name}
			}
		case error, *http.Request:
			newArgs = append(newArgs, arg)
		case map[string]interface{}:
			if extras == nil {
				extras = make(map[string]interface{}, len(v)+1)
			}
			for k, val := range v {
				extras[k] = val
			}
		default:
			details = append(details, arg)
		}
	}
	if len(details) > 0 {
		if extras == nil {
			extras = make(map[string]interface{}, 1)
		}
		extras["details"] = details
	}
	if extras != nil {
		newArgs = append(newArgs, extras)
	}
	if person != nil {
		newArgs = append(newArgs, rollbar.NewPersonContext(context.Background(), person))
	}
	return newArgs
}

func (l RollbarLogger) print(msg string, args []interface{}) {
	l.std.Println(msg)
	for _, arg := range args {
		l.std.Printf("%+v\n", arg)
	}
}

func (l RollbarLogger) log(level, msg string, args []interface{}) {
	rollbar.Log(level, l.prepare(msg, args)...)
	l.print(msg, args)
}

func (l RollbarLogger) Debug(msg string, args ...interface{}) { l.log(rollbar.DEBUG, msg, args) }
func (l RollbarLogger) Info(msg string, args ...interface{})  { l.log(rollbar.INFO, msg, args) }
func (l RollbarLogger) Warn(msg string, args ...interface{})  { l.log(rollbar.WARN, msg, args) }
func (l RollbarLogger) Error(msg string, args ...interface{}) { l.log(rollbar.ERR, msg, args) }

func (l RollbarLogger) Fatal(msg string, args ...interface{}) {
	l.log(rollbar.CRIT, msg, args)
	rollbar.Wait()
	l.std.Fatal(msg)
}
