package user_test

import (
	"context"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/rotinas-pei/backend/core"
	"github.com/rotinas-pei/backend/core/user"
	emailsvc "github.com/rotinas-pei/backend/services/email"
	inmemdb "github.com/rotinas-pei/backend/storage/database/inmem"
	testutil "github.com/rotinas-pei/backend/tests"
)

func setup(t *testing.T) (*user.Service, user.Repository, *validator.Validate) {
	conf := testutil.Config()
	repo := inmemdb.NewUserRepository(inmemdb.Open())
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	emailsvc.ResetSentMessages()
	return user.NewService(repo, emailsvc.NewConsoleServiceMock(conf, nil), conf), repo, validate
}

func TestService_Register(t *testing.T) {
	svc, _, validate := setup(t)
	ctx := context.Background()

	nu := user.NewUser{Name: " Ana ", Email: " Ana@Example.com", Password: "secret", Role: "TEACHER"}
	if err := nu.Validate(ctx, validate, svc); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	usr, err := svc.Register(ctx, nu)
	assert.NoError(t, err)
	assert.NotEmpty(t, usr.ID)
	assert.Equal(t, "Ana", usr.Name)
	assert.Equal(t, "ana@example.com", usr.Email)
	assert.True(t, usr.IsTeacher())
	assert.NoError(t, usr.CheckPassword("secret"))

	dup := user.NewUser{Name: "Other", Email: "ANA@example.com", Password: "s3cure-Pass", Role: "STUDENT"}
	err = dup.Validate(ctx, validate, svc)
	if assert.True(t, core.IsValidationError(err), "err = %v", err) {
		assert.Equal(t, user.ErrEmailExists, errors.Cause(err).(*core.ValidationError).Err)
	}
}

func TestService_Authenticate(t *testing.T) {
	svc, repo, _ := setup(t)
	usr := testutil.CreateUser(t, repo, "Ana", "ana@example.com", "secret", user.RoleTeacher)

	tests := []struct {
		name    string
		email   string
		pwd     string
		wantErr error
	}{
		{name: "valid", email: "ana@example.com", pwd: "secret"},
		{name: "email case", email: " ANA@example.com ", pwd: "secret"},
		{name: "bad password", email: "ana@example.com", pwd: "nope", wantErr: user.ErrInvalidCredentials},
		{name: "unknown email", email: "bob@example.com", pwd: "secret", wantErr: user.ErrInvalidCredentials},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.Authenticate(context.Background(), tt.email, tt.pwd)
			if err != tt.wantErr {
				t.Fatalf("Authenticate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && got.ID != usr.ID {
				t.Errorf("Authenticate() = %v, want %v", got.ID, usr.ID)
			}
		})
	}
}

func TestService_LinkStudent(t *testing.T) {
	svc, repo, _ := setup(t)
	ctx := context.Background()

	teacher := testutil.CreateUser(t, repo, "Ana", "ana@example.com", "secret", user.RoleTeacher)
	student := testutil.CreateUser(t, repo, "Bruno", "bruno@example.com", "secret", user.RoleStudent)

	link, err := svc.LinkStudent(ctx, teacher, student.ID)
	assert.NoError(t, err)
	assert.Equal(t, teacher.ID, link.TeacherID)
	assert.Equal(t, student.ID, link.StudentID)

	linked, err := svc.IsLinked(ctx, teacher.ID, student.ID)
	assert.NoError(t, err)
	assert.True(t, linked)

	// the student is notified
	sent := emailsvc.Sent()
	if assert.Len(t, sent, 1) {
		assert.Equal(t, student.Email, sent[0].To[0].Address)
		assert.Contains(t, sent[0].TextContent, "Ana can now build your daily routines on Rotinas.")
	}

	_, err = svc.LinkStudent(ctx, teacher, student.ID)
	assert.True(t, core.IsValidationError(err), "linking twice: err = %v", err)

	_, err = svc.LinkStudent(ctx, teacher, teacher.ID)
	assert.True(t, core.IsValidationError(err), "linking a teacher: err = %v", err)

	_, err = svc.LinkStudent(ctx, teacher, "8c1f5a84-3f9e-4a55-b3a4-0e5f10cd0f11")
	assert.Equal(t, user.ErrNotFound, errors.Cause(err))

	students, err := svc.ListStudents(ctx, teacher.ID)
	assert.NoError(t, err)
	if assert.Len(t, students, 1) {
		assert.Equal(t, student.ID, students[0].ID)
	}

	assert.NoError(t, svc.UnlinkStudent(ctx, teacher.ID, student.ID))
	err = svc.UnlinkStudent(ctx, teacher.ID, student.ID)
	assert.True(t, core.IsValidationError(err), "unlinking twice: err = %v", err)
}

func TestService_GetStudent(t *testing.T) {
	svc, repo, _ := setup(t)
	teacher := testutil.CreateUser(t, repo, "Ana", "ana@example.com", "", user.RoleTeacher)
	student := testutil.CreateUser(t, repo, "Bruno", "bruno@example.com", "", user.RoleStudent)

	got, err := svc.GetStudent(context.Background(), student.ID)
	assert.NoError(t, err)
	assert.Equal(t, student.ID, got.ID)

	_, err = svc.GetStudent(context.Background(), teacher.ID)
	assert.Equal(t, user.ErrNotFound, err)
}

func TestService_SetPassword(t *testing.T) {
	svc, repo, validate := setup(t)
	usr := testutil.CreateUser(t, repo, "Ana", "ana@example.com", "old", user.RoleTeacher)

	assert.Error(t, user.SetPassword{Password: "a", PasswordConfirm: "b"}.Validate(validate))

	sp := user.SetPassword{Password: "new-secret", PasswordConfirm: "new-secret"}
	assert.NoError(t, sp.Validate(validate))
	assert.NoError(t, svc.SetPassword(context.Background(), usr.ID, sp))

	short := user.SetPassword{Password: "abc", PasswordConfirm: "abc"}
	assert.Error(t, short.Validate(validate))

	_, err := svc.Authenticate(context.Background(), usr.Email, "new-secret")
	assert.NoError(t, err)
}
