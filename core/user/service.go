package user

import (
	"context"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/rotinas-pei/backend/core"
)

var (
	// errors
	ErrNotFound           = errors.New("user not found")
	ErrEmailExists        = errors.New("a user with this email already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotAStudent        = errors.New("user is not a student")
	ErrLinkExists         = errors.New("this student is already linked to this teacher")
	ErrLinkNotFound       = errors.New("this student is not linked to this teacher")

	studentLinkedTmpl = "student_linked"
)

func init() {
	core.RegisterEmailTemplate(studentLinkedTmpl, `Hi {{.Student}},

{{.Teacher}} can now build your daily routines on {{.AppName}}.
Your next routine will show up on your dashboard on the day it is planned.
`)
}

type (
	Repository interface {
		CheckEmailUniqueness(ctx context.Context, email string) error
		CreateUser(ctx context.Context, usr User) (User, error)
		GetUser(ctx context.Context, filter GetFilter) (User, error)
		UpdatePassword(ctx context.Context, id string, hash []byte, updatedAt time.Time) error
		// QueryStudents returns the students linked to teacherID, ordered by name.
		QueryStudents(ctx context.Context, teacherID string) ([]User, error)
		CreateLink(ctx context.Context, link Link) error
		DeleteLink(ctx context.Context, teacherID, studentID string) error
		LinkExists(ctx context.Context, teacherID, studentID string) (bool, error)
	}

	Service struct {
		repo    Repository
		mailSvc core.EmailService
		conf    *core.Config
	}
)

func NewService(repo Repository, mailSvc core.EmailService, conf *core.Config) *Service {
	return &Service{repo: repo, mailSvc: mailSvc, conf: conf}
}

func (svc *Service) checkUniqueness(ctx context.Context, email string) error {
	if err := svc.repo.CheckEmailUniqueness(ctx, email); err != nil {
		if errors.Cause(err) == ErrEmailExists {
			return core.NewValidationError(ErrEmailExists, core.FieldError{Field: "email", Error: ErrEmailExists.Error()})
		}
		return errors.Wrap(err, "checking email uniqueness")
	}
	return nil
}

// Register creates a new User. nu must have been validated.
func (svc *Service) Register(ctx context.Context, nu NewUser) (User, error) {
	now := time.Now().UTC()
	usr := User{
		Name:      nu.Name,
		Email:     nu.Email,
		Role:      nu.Role,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, errors.Wrap(err, "hashing password")
	}
	return svc.repo.CreateUser(ctx, usr)
}

func (svc *Service) Authenticate(ctx context.Context, email, pwd string) (User, error) {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return User{}, ErrInvalidCredentials
		}
		return User{}, errors.Wrap(err, "finding user by email")
	}
	if err = usr.CheckPassword(pwd); err != nil {
		return User{}, ErrInvalidCredentials
	}
	return usr, nil
}

func (svc *Service) GetByID(ctx context.Context, id string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{ID: id})
}

func (svc *Service) GetByEmail(ctx context.Context, email string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{Email: core.CleanString(email, true /* lower */)})
}

// GetStudent returns the User identified by id if they are a student.
func (svc *Service) GetStudent(ctx context.Context, id string) (User, error) {
	usr, err := svc.GetByID(ctx, id)
	if err != nil {
		return User{}, err
	}
	if !usr.IsStudent() {
		return User{}, ErrNotFound
	}
	return usr, nil
}

func (svc *Service) SetPassword(ctx context.Context, id string, sp SetPassword) error {
	var usr User
	if err := usr.SetPassword(sp.Password); err != nil {
		return errors.Wrap(err, "hashing password")
	}
	return svc.repo.UpdatePassword(ctx, id, usr.PasswordHash, time.Now().UTC())
}

func (svc *Service) ListStudents(ctx context.Context, teacherID string) ([]User, error) {
	return svc.repo.QueryStudents(ctx, teacherID)
}

func (svc *Service) IsLinked(ctx context.Context, teacherID, studentID string) (bool, error) {
	return svc.repo.LinkExists(ctx, teacherID, studentID)
}

// LinkStudent links studentID to teacher and notifies the student by email.
func (svc *Service) LinkStudent(ctx context.Context, teacher User, studentID string) (Link, error) {
	student, err := svc.GetByID(ctx, studentID)
	if err != nil {
		return Link{}, err
	}
	if !student.IsStudent() {
		return Link{}, core.NewValidationError(ErrNotAStudent, core.FieldError{Field: "studentId", Error: ErrNotAStudent.Error()})
	}

	link := Link{TeacherID: teacher.ID, StudentID: student.ID, CreatedAt: time.Now().UTC()}
	if err = svc.repo.CreateLink(ctx, link); err != nil {
		if errors.Cause(err) == ErrLinkExists {
			return Link{}, core.NewValidationError(ErrLinkExists)
		}
		return Link{}, errors.Wrap(err, "creating link")
	}

	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: student.Name, Address: student.Email}},
		Subject:      "You have a new teacher",
		TemplateName: studentLinkedTmpl,
		TemplateData: map[string]string{
			"Student": student.Name,
			"Teacher": teacher.Name,
			"AppName": svc.conf.AppName,
		},
	})
	return link, nil
}

func (svc *Service) UnlinkStudent(ctx context.Context, teacherID, studentID string) error {
	if err := svc.repo.DeleteLink(ctx, teacherID, studentID); err != nil {
		if errors.Cause(err) == ErrLinkNotFound {
			return core.NewValidationError(ErrLinkNotFound)
		}
		return errors.Wrap(err, "deleting link")
	}
	return nil
}
