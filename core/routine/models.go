package routine

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/rotinas-pei/backend/core"
	"github.com/rotinas-pei/backend/core/activity"
)

type Status string

// Statuses
const (
	StatusPending    Status = "PENDING"
	StatusInProgress Status = "IN_PROGRESS"
	StatusDone       Status = "DONE"
)

// Routine is a dated, ordered set of activities planned by a teacher for one student.
// The order of Activities is the playback order.
type Routine struct {
	ID                string              `json:"id"`
	DateOfRealization core.Date           `json:"dateOfRealization"`
	Creator           activity.Creator    `json:"creator"`
	StudentID         string              `json:"-"`
	Status            Status              `json:"status"`
	Activities        []activity.Activity `json:"atividades"`
	CreatedAt         time.Time           `json:"-"`
}

// ActivityIDs returns the ids of the routine's activities in playback order.
func (r Routine) ActivityIDs() []string {
	ids := make([]string, 0, len(r.Activities))
	for _, act := range r.Activities {
		ids = append(ids, act.ID)
	}
	return ids
}

type Student struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Principal is the authenticated caller.
type Principal struct {
	ID   string
	Name string
	Role string
}

type NewRoutine struct {
	StudentID         string    `json:"studentId" validate:"required,notblank"`
	DateOfRealization core.Date `json:"dateOfRealization"`
	ActivityIDs       []string  `json:"atividadeIds"`
}

func (nr *NewRoutine) Validate(validate *validator.Validate, today core.Date) error {
	nr.StudentID = core.CleanString(nr.StudentID)

	if err := validate.Struct(nr); err != nil {
		return err
	}
	if nr.DateOfRealization.IsZero() {
		return core.NewValidationError(nil, core.FieldError{Field: "dateOfRealization", Error: "this field is required"})
	}
	if nr.DateOfRealization.Before(today) {
		return core.NewValidationError(ErrPastDate, core.FieldError{Field: "dateOfRealization", Error: ErrPastDate.Error()})
	}
	if len(nr.ActivityIDs) == 0 {
		return core.NewValidationError(ErrNoActivities, core.FieldError{Field: "atividadeIds", Error: ErrNoActivities.Error()})
	}
	return nil
}

type ReorderActivities struct {
	RoutineID   string   `json:"rotinaId" validate:"required,notblank"`
	ActivityIDs []string `json:"atividadeIds" validate:"required,min=1"`
}

func (ra *ReorderActivities) Validate(validate *validator.Validate) error {
	ra.RoutineID = core.CleanString(ra.RoutineID)
	return validate.Struct(ra)
}

// QueryFilter narrows the routines of a student.
type QueryFilter struct {
	// Date keeps only routines planned for that calendar day.
	Date core.Date
}
