package routine

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/rotinas-pei/backend/core"
	"github.com/rotinas-pei/backend/core/activity"
	"github.com/rotinas-pei/backend/core/user"
)

var (
	// errors
	ErrNotFound          = errors.New("routine not found")
	ErrNotLinked         = errors.New("student not linked to this teacher")
	ErrPastDate          = errors.New("the date of realization cannot be in the past")
	ErrNoActivities      = errors.New("select at least one activity")
	ErrStudentIDRequired = errors.New("studentId is required")
)

type (
	Repository interface {
		// CreateRoutine stores r and its activities, in playback order, in a single transaction.
		CreateRoutine(ctx context.Context, r Routine) (Routine, error)
		GetRoutine(ctx context.Context, id string) (Routine, error)
		// QueryRoutines returns studentID's routines ordered by date, each with its activities in playback order.
		// An empty creatorID or a zero filter.Date does not filter.
		QueryRoutines(ctx context.Context, studentID, creatorID string, filter QueryFilter) ([]Routine, error)
		// ReorderRoutineActivities rewrites the playback positions of routineID in a single transaction.
		// ids must be a permutation of the routine's activities (see ordering.ValidatePermutation).
		ReorderRoutineActivities(ctx context.Context, routineID string, ids []string) error
	}

	Students interface {
		GetStudent(ctx context.Context, id string) (user.User, error)
		IsLinked(ctx context.Context, teacherID, studentID string) (bool, error)
	}

	Library interface {
		List(ctx context.Context, teacherID string) ([]activity.Activity, error)
		ExpandImageURLs(acts []activity.Activity)
	}

	Service struct {
		repo     Repository
		students Students
		library  Library
	}
)

func NewService(repo Repository, students Students, library Library) *Service {
	return &Service{repo: repo, students: students, library: library}
}

// List returns the routines of studentID visible to principal.
// Students may only list their own routines; teachers only see the routines they created for a linked student.
func (svc *Service) List(ctx context.Context, studentID string, principal Principal, filter QueryFilter) (Student, []Routine, error) {
	var creatorID string

	switch principal.Role {
	case user.RoleTeacher:
		if studentID == "" {
			return Student{}, nil, core.NewValidationError(ErrStudentIDRequired)
		}
		if err := svc.checkLink(ctx, principal.ID, studentID); err != nil {
			return Student{}, nil, err
		}
		creatorID = principal.ID
	case user.RoleStudent:
		if studentID == "" {
			studentID = principal.ID
		} else if studentID != principal.ID {
			return Student{}, nil, core.ErrForbidden
		}
	default:
		return Student{}, nil, core.ErrForbidden
	}

	usr, err := svc.students.GetStudent(ctx, studentID)
	if err != nil {
		return Student{}, nil, errors.Wrap(err, "finding student")
	}

	routines, err := svc.repo.QueryRoutines(ctx, studentID, creatorID, filter)
	if err != nil {
		return Student{}, nil, errors.Wrap(err, "querying routines")
	}
	for i := range routines {
		svc.library.ExpandImageURLs(routines[i].Activities)
	}
	return Student{ID: usr.ID, Name: usr.Name}, routines, nil
}

// Create plans a routine for a student linked to teacher. nr must have been validated.
// The activities are played in the order of the teacher's library.
func (svc *Service) Create(ctx context.Context, teacher Principal, nr NewRoutine) (Student, Routine, error) {
	usr, err := svc.students.GetStudent(ctx, nr.StudentID)
	if err != nil {
		return Student{}, Routine{}, errors.Wrap(err, "finding student")
	}
	if err = svc.checkLink(ctx, teacher.ID, usr.ID); err != nil {
		return Student{}, Routine{}, err
	}

	acts, err := svc.selectActivities(ctx, teacher.ID, nr.ActivityIDs)
	if err != nil {
		return Student{}, Routine{}, err
	}

	r, err := svc.repo.CreateRoutine(ctx, Routine{
		DateOfRealization: nr.DateOfRealization,
		Creator:           activity.Creator{ID: teacher.ID, Name: teacher.Name},
		StudentID:         usr.ID,
		Status:            StatusPending,
		Activities:        acts,
		CreatedAt:         time.Now().UTC(),
	})
	if err != nil {
		return Student{}, Routine{}, errors.Wrap(err, "creating routine")
	}
	svc.library.ExpandImageURLs(r.Activities)
	return Student{ID: usr.ID, Name: usr.Name}, r, nil
}

// ReorderActivities persists a full permutation of a routine's activities.
func (svc *Service) ReorderActivities(ctx context.Context, teacher Principal, ra ReorderActivities) error {
	r, err := svc.repo.GetRoutine(ctx, ra.RoutineID)
	if err != nil {
		return errors.Wrap(err, "finding routine")
	}
	if r.Creator.ID != teacher.ID {
		return core.ErrForbidden
	}

	if err = svc.repo.ReorderRoutineActivities(ctx, r.ID, ra.ActivityIDs); err != nil {
		if core.IsValidationError(err) {
			return err
		}
		return errors.Wrap(err, "reordering routine activities")
	}
	return nil
}

func (svc *Service) checkLink(ctx context.Context, teacherID, studentID string) error {
	linked, err := svc.students.IsLinked(ctx, teacherID, studentID)
	if err != nil {
		return errors.Wrap(err, "checking link")
	}
	if !linked {
		return ErrNotLinked
	}
	return nil
}

// selectActivities returns the activities of ids, in library order, if teacherID owns all of them.
func (svc *Service) selectActivities(ctx context.Context, teacherID string, ids []string) ([]activity.Activity, error) {
	wanted := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		wanted[id] = struct{}{}
	}
	if len(wanted) != len(ids) {
		return nil, core.NewValidationError(activity.ErrNotOwned)
	}

	library, err := svc.library.List(ctx, teacherID)
	if err != nil {
		return nil, errors.Wrap(err, "listing library")
	}

	acts := make([]activity.Activity, 0, len(ids))
	for _, act := range library {
		if _, ok := wanted[act.ID]; ok {
			acts = append(acts, act)
		}
	}
	if len(acts) != len(ids) {
		return nil, core.NewValidationError(activity.ErrNotOwned)
	}
	return acts, nil
}
