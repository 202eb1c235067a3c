package main

import (
	"context"

	"github.com/pkg/errors"

	"github.com/rotinas-pei/backend/core/user"
)

func (cli *commandLine) addUser(name, email, role, pwd string) error {
	ctx := context.Background()
	nu := user.NewUser{Name: name, Email: email, Password: pwd, Role: role}
	if err := nu.Validate(ctx, cli.validate, cli.usrSvc); err != nil {
		return cli.explain(err)
	}
	usr, err := cli.usrSvc.Register(ctx, nu)
	if err != nil {
		return err
	}
	logger.Printf("created %s %s <%s> (%s)", usr.Role, usr.Name, usr.Email, usr.ID)
	return nil
}

func (cli *commandLine) resetPassword(email, pwd string) error {
	ctx := context.Background()
	usr, err := cli.usrSvc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	sp := user.SetPassword{Password: pwd, PasswordConfirm: pwd}
	if err = sp.Validate(cli.validate); err != nil {
		return cli.explain(err)
	}
	return cli.usrSvc.SetPassword(ctx, usr.ID, sp)
}

func (cli *commandLine) link(teacherEmail, studentEmail string) error {
	ctx := context.Background()
	teacher, err := cli.usrSvc.GetByEmail(ctx, teacherEmail)
	if err != nil {
		return errors.Wrap(err, "finding teacher")
	}
	if !teacher.IsTeacher() {
		return errors.Errorf("%s is not a teacher", teacher.Email)
	}
	student, err := cli.usrSvc.GetByEmail(ctx, studentEmail)
	if err != nil {
		return errors.Wrap(err, "finding student")
	}
	if _, err = cli.usrSvc.LinkStudent(ctx, teacher, student.ID); err != nil {
		return cli.explain(err)
	}
	logger.Printf("linked %s to %s", student.Email, teacher.Email)
	return nil
}
