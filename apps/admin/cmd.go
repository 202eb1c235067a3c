package main

import (
	"database/sql"
	"flag"
	"fmt"
	"sort"
	"strings"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"golang.org/x/term"

	"github.com/rotinas-pei/backend/core"
	"github.com/rotinas-pei/backend/core/user"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp     = errors.New("help provided")
	errNoSQLDB  = errors.New("migrate requires the postgres database engine")
	errNoPwdSet = errors.New("the password cannot be empty")
)

type commandLine struct {
	db         *sql.DB // nil with the inmem engine
	usrSvc     *user.Service
	validate   *validator.Validate
	translator ut.Translator
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  adduser -name NAME -email EMAIL -role TEACHER|STUDENT - create a user (password prompted)")
	fmt.Println("  resetpassword -email EMAIL - reset a user's password (password prompted)")
	fmt.Println("  link -teacher EMAIL -student EMAIL - let a teacher plan a student's routines")
	fmt.Println("  migrate COMMAND [ARGS] - run a goose migration command (up, down, status, ...)")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addUserCmd := flag.NewFlagSet("adduser", flag.ContinueOnError)
	addUserName := addUserCmd.String("name", "", "The user's full name.")
	addUserEmail := addUserCmd.String("email", "", "The user's email, used to log in.")
	addUserRole := addUserCmd.String("role", user.RoleStudent, "TEACHER or STUDENT.")

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ContinueOnError)
	resetPasswordEmail := resetPasswordCmd.String("email", "", "The user's email. The password will be prompted next.")

	linkCmd := flag.NewFlagSet("link", flag.ContinueOnError)
	linkTeacher := linkCmd.String("teacher", "", "The teacher's email.")
	linkStudent := linkCmd.String("student", "", "The student's email.")

	switch args[1] {
	case "adduser":
		if err := addUserCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *addUserName == "" || *addUserEmail == "" {
			addUserCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword()
		if err != nil {
			return err
		}
		return cli.addUser(*addUserName, *addUserEmail, *addUserRole, pwd)

	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *resetPasswordEmail == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword()
		if err != nil {
			return err
		}
		return cli.resetPassword(*resetPasswordEmail, pwd)

	case "link":
		if err := linkCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *linkTeacher == "" || *linkStudent == "" {
			linkCmd.Usage()
			return errHelp
		}
		return cli.link(*linkTeacher, *linkStudent)

	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])

	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) promptPassword() (string, error) {
	fmt.Print("Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", errors.Wrap(err, "reading password")
	}
	if len(pwd) == 0 {
		return "", errNoPwdSet
	}
	return string(pwd), nil
}

// explain flattens validation errors into a single readable error.
func (cli *commandLine) explain(err error) error {
	var msgs []string
	switch vErr := errors.Cause(err).(type) {
	case validator.ValidationErrors:
		for _, fe := range vErr {
			msgs = append(msgs, fe.Field()+": "+fe.Translate(cli.translator))
		}
	case *core.ValidationError:
		if len(vErr.Fields) == 0 {
			return err
		}
		for _, fe := range vErr.Fields {
			msgs = append(msgs, fe.Field+": "+fe.Error)
		}
	default:
		return err
	}
	sort.Strings(msgs)
	return errors.New(strings.Join(msgs, "; "))
}
