package main

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"io/ioutil"
	"log"
	"strconv"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/rotinas-pei/backend/core"
	"github.com/rotinas-pei/backend/core/user"
	emailsvc "github.com/rotinas-pei/backend/services/email"
	inmemdb "github.com/rotinas-pei/backend/storage/database/inmem"
	testutil "github.com/rotinas-pei/backend/tests"
)

var usrRepo user.Repository

func setup(t *testing.T) *commandLine {
	logger = log.New(ioutil.Discard, "", 0)
	conf := testutil.Config()

	// set up DB & repos
	usrRepo = inmemdb.NewUserRepository(inmemdb.Open())

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	// start CLI
	return &commandLine{
		db:         &sql.DB{},
		usrSvc:     user.NewService(usrRepo, emailsvc.NewConsoleServiceMock(conf, nil), conf),
		validate:   validate,
		translator: translator,
	}
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	extra      interface{}
}

func (tt cliTest) check(t *testing.T, err error) {
	t.Helper()
	switch {
	case tt.wantErr != nil:
		if errors.Cause(err) != tt.wantErr {
			t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
		}
	case tt.wantErrStr != "":
		if err == nil || err.Error() != tt.wantErrStr {
			t.Errorf("cli.run() error = %v, wantErrStr %s", err, tt.wantErrStr)
		}
	case err != nil:
		t.Errorf("cli.run() unexpected error = %v", err)
	}
}

func mockPassword(pwd string) {
	readPasswordFunc = func(fd int) ([]byte, error) { return []byte(pwd), nil }
}

func Test_commandLine_migrate(t *testing.T) {
	cli := setup(t)

	gooseRunFunc = func(command string, db *sql.DB, fsys fs.FS, dir string, args ...string) error {
		if dir != "migrations" {
			return fmt.Errorf("unexpected migrations dir %q", dir)
		}
		if _, err := fs.Stat(fsys, "migrations/00001_create_users.sql"); err != nil {
			return err
		}
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to":
			if len(args) == 0 {
				return fmt.Errorf("up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION")
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		case "down-to":
			if len(args) == 0 {
				return fmt.Errorf("down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION")
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "create: no args", args: []string{"migrate", "create"}, wantErrStr: "create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]"},
		{name: "down-to: non-int arg", args: []string{"migrate", "down-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "create", args: []string{"migrate", "create", "routine_notes", "sql"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, cli.run(args))
		})
	}

	t.Run("inmem engine", func(t *testing.T) {
		cli := setup(t)
		cli.db = nil
		cliTest{wantErr: errNoSQLDB}.check(t, cli.run([]string{"admin", "migrate", "up"}))
	})
}

func Test_commandLine_addUser(t *testing.T) {
	cli := setup(t)
	testutil.CreateUser(t, usrRepo, "Ana", "ana@example.com", "s3cure-Pass", user.RoleTeacher)

	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no args", args: []string{"adduser"}, wantErr: errHelp},
		{name: "unknown flag", args: []string{"adduser", "-username", "x"}, wantErr: errHelp},
		{name: "empty password", args: []string{"adduser", "-name", "Bruno", "-email", "bruno@example.com"}, extra: "", wantErr: errNoPwdSet},
		{name: "weak password", args: []string{"adduser", "-name", "Bruno", "-email", "bruno@example.com"}, extra: "abc", wantErrStr: "password: password must contain at least 6 characters"},
		{name: "bad role", args: []string{"adduser", "-name", "Bruno", "-email", "bruno@example.com", "-role", "ADMIN"}, extra: "s3cure-Pass", wantErrStr: "role: role must be one of [TEACHER STUDENT]"},
		{name: "email taken", args: []string{"adduser", "-name", "Ana 2", "-email", "ANA@example.com", "-role", "TEACHER"}, extra: "s3cure-Pass", wantErrStr: "email: a user with this email already exists"},
		{name: "student", args: []string{"adduser", "-name", "Bruno", "-email", "bruno@example.com"}, extra: "s3cure-Pass"},
		{name: "teacher", args: []string{"adduser", "-name", "Rui", "-email", "rui@example.com", "-role", "TEACHER"}, extra: "s3cure-Pass"},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)
		pwd, _ := tt.extra.(string)
		mockPassword(pwd)

		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, cli.run(args))
		})
	}

	usr, err := usrRepo.GetUser(context.Background(), user.GetFilter{Email: "bruno@example.com"})
	if err != nil {
		t.Fatalf("GetUser() failed, %v", err)
	}
	if usr.Role != user.RoleStudent || usr.CheckPassword("s3cure-Pass") != nil {
		t.Errorf("adduser created %+v", usr)
	}
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli := setup(t)
	usr := testutil.CreateUser(t, usrRepo, "Ana", "ana@example.com", "s3cure-Pass", user.RoleTeacher)

	tests := []cliTest{
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "email but no password", args: []string{"resetpassword", "-email", "ana@example.com"}, wantErr: errNoPwdSet},
		{name: "user not found", args: []string{"resetpassword", "-email", "lol@example.com"}, extra: "n3w-Passw0rd", wantErr: user.ErrNotFound},
		{name: "weak password", args: []string{"resetpassword", "-email", "ana@example.com"}, extra: "has space", wantErrStr: "password: password must not contain whitespace"},
		{name: "reset", args: []string{"resetpassword", "-email", "ANA@example.com"}, extra: "n3w-Passw0rd"},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)
		pwd, _ := tt.extra.(string)
		mockPassword(pwd)

		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, cli.run(args))
		})
	}

	refreshed, err := usrRepo.GetUser(context.Background(), user.GetFilter{ID: usr.ID})
	if err != nil {
		t.Fatalf("GetUser() failed, %v", err)
	}
	if bytes.Equal(refreshed.PasswordHash, usr.PasswordHash) {
		t.Error("failed to update new password")
	}
	if err = refreshed.CheckPassword("n3w-Passw0rd"); err != nil {
		t.Errorf("CheckPassword() error = %v", err)
	}
}

func Test_commandLine_link(t *testing.T) {
	cli := setup(t)
	teacher := testutil.CreateUser(t, usrRepo, "Ana", "ana@example.com", "", user.RoleTeacher)
	student := testutil.CreateUser(t, usrRepo, "Bruno", "bruno@example.com", "", user.RoleStudent)

	tests := []cliTest{
		{name: "no args", args: []string{"link", "-teacher", "ana@example.com"}, wantErr: errHelp},
		{name: "unknown teacher", args: []string{"link", "-teacher", "x@example.com", "-student", "bruno@example.com"}, wantErr: user.ErrNotFound},
		{name: "not a teacher", args: []string{"link", "-teacher", "bruno@example.com", "-student", "bruno@example.com"}, wantErrStr: "bruno@example.com is not a teacher"},
		{name: "not a student", args: []string{"link", "-teacher", "ana@example.com", "-student", "ana@example.com"}, wantErrStr: "studentId: user is not a student"},
		{name: "link", args: []string{"link", "-teacher", "ana@example.com", "-student", "bruno@example.com"}},
		{name: "link twice", args: []string{"link", "-teacher", "ana@example.com", "-student", "bruno@example.com"}, wantErrStr: "this student is already linked to this teacher"},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, cli.run(args))
		})
	}

	linked, err := usrRepo.LinkExists(context.Background(), teacher.ID, student.ID)
	if err != nil || !linked {
		t.Errorf("LinkExists() = %v, %v; want true", linked, err)
	}
}
