package activity

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/rotinas-pei/backend/core"
)

var NowFunc = time.Now // mockable

type (
	Repository interface {
		// CreateActivity appends act at the end of its creator's library.
		CreateActivity(ctx context.Context, act Activity) (Activity, error)
		// QueryActivities returns creatorID's library ordered by (order, title), missing orders last.
		QueryActivities(ctx context.Context, creatorID string) ([]Activity, error)
		GetActivity(ctx context.Context, id string) (Activity, error)
		// ReorderActivities sets each activity's order to its index in ids, in a single transaction.
		// ids must be a permutation of creatorID's library (see ordering.ValidatePermutation).
		ReorderActivities(ctx context.Context, creatorID string, ids []string) error
	}

	// ImageStore persists card images and resolves their public URL.
	ImageStore interface {
		PutImage(ctx context.Context, key string, img Image) error
		URL(key string) string
	}

	Service struct {
		repo          Repository
		images        ImageStore
		maxUploadSize int64
	}
)

func NewService(repo Repository, images ImageStore, conf *core.Config) *Service {
	return &Service{
		repo:          repo,
		images:        images,
		maxUploadSize: conf.Storage.MaxUploadSize,
	}
}

// ImageURL resolves a stored image reference: absolute URLs are returned as is.
func (svc *Service) ImageURL(ref string) string {
	if ref == "" || isAbsoluteURL(ref) {
		return ref
	}
	return svc.images.URL(ref)
}

// ExpandImageURLs resolves the image URL of every activity in place.
func (svc *Service) ExpandImageURLs(acts []Activity) {
	for i := range acts {
		acts[i].ImageURL = svc.ImageURL(acts[i].ImageURL)
	}
}

func (svc *Service) List(ctx context.Context, teacherID string) ([]Activity, error) {
	acts, err := svc.repo.QueryActivities(ctx, teacherID)
	if err != nil {
		return nil, errors.Wrap(err, "querying activities")
	}
	svc.ExpandImageURLs(acts)
	return acts, nil
}

// Create stores img and appends a new card to teacher's library. na must have been validated.
func (svc *Service) Create(ctx context.Context, teacher Creator, na NewActivity, img Image) (Activity, error) {
	if err := img.Validate(svc.maxUploadSize); err != nil {
		return Activity{}, err
	}

	key := fmt.Sprintf("virtual-cards/%s/%d-%s", teacher.ID, NowFunc().UnixNano()/int64(time.Millisecond), sanitizeFilename(img.Name))
	if err := svc.images.PutImage(ctx, key, img); err != nil {
		return Activity{}, errors.Wrap(err, "storing image")
	}

	act, err := svc.repo.CreateActivity(ctx, Activity{
		Title:         na.Title,
		ImageURL:      key,
		EstimatedTime: na.estimatedTime,
		TimeInSeconds: na.timeInSeconds,
		DayPeriod:     DayPeriod(na.DayPeriod),
		Creator:       teacher,
		CreatedAt:     NowFunc().UTC(),
	})
	if err != nil {
		return Activity{}, errors.Wrap(err, "creating activity")
	}
	act.ImageURL = svc.ImageURL(act.ImageURL)
	return act, nil
}

// Reorder persists a full permutation of teacherID's library.
func (svc *Service) Reorder(ctx context.Context, teacherID string, ids []string) error {
	if err := svc.repo.ReorderActivities(ctx, teacherID, ids); err != nil {
		if core.IsValidationError(err) {
			return err
		}
		return errors.Wrap(err, "reordering activities")
	}
	return nil
}
