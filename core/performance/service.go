package performance

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/rotinas-pei/backend/core"
	"github.com/rotinas-pei/backend/core/activity"
)

type (
	Repository interface {
		CreateRecord(ctx context.Context, rec Record) (Record, error)
		QueryRecords(ctx context.Context, studentID string) ([]Record, error)
	}

	Activities interface {
		GetActivity(ctx context.Context, id string) (activity.Activity, error)
	}

	// Publisher forwards stored records to downstream consumers.
	Publisher interface {
		Publish(ctx context.Context, evt Event) error
	}

	Service struct {
		repo       Repository
		activities Activities
		publisher  Publisher
		logger     core.Logger
	}
)

func NewService(repo Repository, activities Activities, publisher Publisher, logger core.Logger) *Service {
	return &Service{
		repo:       repo,
		activities: activities,
		publisher:  publisher,
		logger:     logger,
	}
}

// Create stores the outcome of an activity attempt by studentID. nr must have been validated.
// The record event is published best-effort: a publish failure is logged and never fails the call.
func (svc *Service) Create(ctx context.Context, studentID string, nr NewRecord) (Record, error) {
	if _, err := svc.activities.GetActivity(ctx, nr.ActivityID); err != nil {
		return Record{}, errors.Wrap(err, "finding activity")
	}

	rec, err := svc.repo.CreateRecord(ctx, Record{
		ActivityID:       nr.ActivityID,
		StudentID:        studentID,
		Status:           Status(nr.Status),
		TimeTakenSeconds: nr.timeTaken(),
		CompletedAt:      time.Now().UTC(),
	})
	if err != nil {
		return Record{}, errors.Wrap(err, "creating record")
	}
	recordsTotal.WithLabelValues(string(rec.Status)).Inc()

	if svc.publisher != nil {
		if err = svc.publisher.Publish(ctx, newEvent(rec)); err != nil {
			publishFailuresTotal.Inc()
			svc.logger.Error(fmt.Sprintf("publishing record %s: %v", rec.ID, err), err)
		}
	}
	return rec, nil
}

func (svc *Service) List(ctx context.Context, studentID string) ([]Record, error) {
	return svc.repo.QueryRecords(ctx, studentID)
}
