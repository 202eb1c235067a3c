package performance

import (
	"math"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/rotinas-pei/backend/core"
)

type Status string

// Statuses
const (
	StatusCompleted Status = "COMPLETED"
	StatusSkipped   Status = "SKIPPED"
	StatusTimeout   Status = "TIMEOUT"
)

var Statuses = []Status{StatusCompleted, StatusSkipped, StatusTimeout}

// Record is the outcome of one activity attempt by a student. Records are append-only.
type Record struct {
	ID               string    `json:"id"`
	ActivityID       string    `json:"atividadeId"`
	StudentID        string    `json:"studentId"`
	Status           Status    `json:"status"`
	TimeTakenSeconds *int      `json:"timeTakenSeconds"`
	CompletedAt      time.Time `json:"completedAt"`
}

type NewRecord struct {
	ActivityID       string   `json:"atividadeId" validate:"required,notblank"`
	Status           string   `json:"status" validate:"required,oneof=COMPLETED SKIPPED TIMEOUT"`
	TimeTakenSeconds *float64 `json:"timeTakenSeconds" validate:"omitempty,min=0,max=2147483647"`
}

func (nr *NewRecord) Validate(validate *validator.Validate) error {
	nr.ActivityID = core.CleanString(nr.ActivityID)
	nr.Status = core.CleanString(nr.Status)

	if nr.TimeTakenSeconds != nil {
		if v := *nr.TimeTakenSeconds; math.IsNaN(v) || math.IsInf(v, 0) {
			return core.NewValidationError(nil, core.FieldError{Field: "timeTakenSeconds", Error: "this field must be a finite number"})
		}
	}
	return validate.Struct(nr)
}

// timeTaken rounds the reported duration to the nearest second.
func (nr NewRecord) timeTaken() *int {
	if nr.TimeTakenSeconds == nil {
		return nil
	}
	secs := int(math.Round(*nr.TimeTakenSeconds))
	return &secs
}

// EventType names the Event on the wire.
const EventType = "performance.recorded"

// Event is published once a Record has been stored.
type Event struct {
	RecordID         string    `json:"recordId"`
	ActivityID       string    `json:"atividadeId"`
	StudentID        string    `json:"studentId"`
	Status           Status    `json:"status"`
	TimeTakenSeconds *int      `json:"timeTakenSeconds"`
	CompletedAt      time.Time `json:"completedAt"`
}

func newEvent(rec Record) Event {
	return Event{
		RecordID:         rec.ID,
		ActivityID:       rec.ActivityID,
		StudentID:        rec.StudentID,
		Status:           rec.Status,
		TimeTakenSeconds: rec.TimeTakenSeconds,
		CompletedAt:      rec.CompletedAt,
	}
}
