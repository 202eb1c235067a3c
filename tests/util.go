// Package testutil provides fixtures shared by the API and CLI tests.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/rotinas-pei/backend/core"
	"github.com/rotinas-pei/backend/core/activity"
	"github.com/rotinas-pei/backend/core/routine"
	"github.com/rotinas-pei/backend/core/user"
)

// Config returns the configuration used by tests.
func Config() *core.Config {
	return &core.Config{
		Env:              "TEST",
		TestMode:         true,
		AppName:          "Rotinas",
		SecretKey:        "test-secret",
		DefaultFromEmail: "noreply@rotinas.test",
		Server: core.ServerConfig{
			JWTExpirationDelta:        time.Hour,
			JWTRefreshExpirationDelta: time.Hour,
		},
		Database: core.DatabaseConfig{Engine: "inmem"},
		Storage: core.StorageConfig{
			PublicBaseURL: "http://images.test",
			MaxUploadSize: 5 * 1024 * 1024,
		},
	}
}

func CreateUser(t *testing.T, repo user.Repository, name, email, pwd, role string, createdAt ...time.Time) user.User {
	t.Helper()
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		Name:      name,
		Email:     email,
		Role:      role,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

func LinkStudent(t *testing.T, repo user.Repository, teacher, student user.User) {
	t.Helper()
	link := user.Link{TeacherID: teacher.ID, StudentID: student.ID, CreatedAt: time.Now().UTC()}
	if err := repo.CreateLink(context.Background(), link); err != nil {
		t.Fatalf("LinkStudent() failed: %v", err)
	}
}

// CreateActivity appends a card to teacher's library. A zero timeInSeconds means no countdown.
func CreateActivity(t *testing.T, repo activity.Repository, teacher user.User, title string, timeInSeconds int) activity.Activity {
	t.Helper()
	act := activity.Activity{
		Title:     title,
		ImageURL:  "virtual-cards/" + teacher.ID + "/" + title + ".png",
		DayPeriod: activity.Morning,
		Creator:   activity.Creator{ID: teacher.ID, Name: teacher.Name},
		CreatedAt: time.Now().UTC(),
	}
	if timeInSeconds > 0 {
		act.TimeInSeconds = &timeInSeconds
	}
	act, err := repo.CreateActivity(context.Background(), act)
	if err != nil {
		t.Fatalf("CreateActivity() failed: %v", err)
	}
	return act
}

func CreateRoutine(t *testing.T, repo routine.Repository, teacher, student user.User, date core.Date, acts ...activity.Activity) routine.Routine {
	t.Helper()
	r, err := repo.CreateRoutine(context.Background(), routine.Routine{
		DateOfRealization: date,
		Creator:           activity.Creator{ID: teacher.ID, Name: teacher.Name},
		StudentID:         student.ID,
		Status:            routine.StatusPending,
		Activities:        acts,
		CreatedAt:         time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("CreateRoutine() failed: %v", err)
	}
	return r
}
