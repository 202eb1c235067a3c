package logsvc

import (
	"bytes"
	"context"
	"log"
	"testing"

	"github.com/pkg/errors"
	"github.com/rollbar/rollbar-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rotinas-pei/backend/core"
	"github.com/rotinas-pei/backend/core/routine"
	"github.com/rotinas-pei/backend/core/user"
)

func newTestLogger() (*RollbarLogger, *bytes.Buffer) {
	buf := new(bytes.Buffer)
	l := NewRollbarLogger(log.New(buf, "", 0), &core.Config{Env: "TEST", Build: "test"})
	l.Enable(false)
	return l, buf
}

func TestRollbarLogger_prepare(t *testing.T) {
	l, _ := newTestLogger()
	err := errors.New("boom")

	tests := []struct {
		name string
		args []interface{}
		want []interface{}
	}{
		{"no args", nil, []interface{}{"msg"}},
		{"error", []interface{}{err}, []interface{}{"msg", err}},
		{
			"extras are merged",
			[]interface{}{map[string]interface{}{"a": 1}, map[string]interface{}{"b": 2}},
			[]interface{}{"msg", map[string]interface{}{"a": 1, "b": 2}},
		},
		{
			"other values become details",
			[]interface{}{"rec-1", 3, map[string]interface{}{"a": 1}},
			[]interface{}{"msg", map[string]interface{}{"a": 1, "details": []interface{}{"rec-1", 3}}},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, l.prepare("msg", tc.args))
		})
	}
}

func TestRollbarLogger_preparePerson(t *testing.T) {
	l, _ := newTestLogger()
	err := errors.New("boom")

	tests := []struct {
		name string
		args []interface{}
		want rollbar.Person
	}{
		{"user", []interface{}{err, user.User{ID: "u1", Name: "Ana", Email: "ana@example.com"}}, rollbar.Person{Id: "u1", Username: "Ana", Email: "ana@example.com"}},
		{"principal", []interface{}{routine.Principal{ID: "p1", Name: "Bia"}, err}, rollbar.Person{Id: "p1", Username: "Bia"}},
		{"first one wins", []interface{}{routine.Principal{ID: "p1"}, user.User{ID: "u1"}}, rollbar.Person{Id: "p1"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			args := l.prepare("msg", tc.args)
			ctx, ok := args[len(args)-1].(context.Context)
			require.True(t, ok)
			person, ok := rollbar.PersonFromContext(ctx)
			require.True(t, ok)
			assert.Equal(t, tc.want, *person)
			for _, arg := range args {
				_, isUser := arg.(user.User)
				_, isPrincipal := arg.(routine.Principal)
				assert.False(t, isUser || isPrincipal)
			}
		})
	}
}

func TestRollbarLogger_print(t *testing.T) {
	l, buf := newTestLogger()
	l.Warn("queue full", "rec-1")
	assert.Equal(t, "queue full\nrec-1\n", buf.String())
}
