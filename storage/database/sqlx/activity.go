package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/rotinas-pei/backend/core"
	"github.com/rotinas-pei/backend/core/activity"
	"github.com/rotinas-pei/backend/core/ordering"
)

type activityRow struct {
	ID            string    `db:"id"`
	Title         string    `db:"title"`
	ImageURL      string    `db:"image_url"`
	EstimatedTime null.Int  `db:"estimated_time"`
	TimeInSeconds null.Int  `db:"time_in_seconds"`
	DayPeriod     string    `db:"day_period"`
	Order         null.Int  `db:"sort_order"`
	CreatorID     string    `db:"creator_id"`
	CreatorName   string    `db:"creator_name"`
	CreatedAt     time.Time `db:"created_at"`
}

func (r activityRow) activity() activity.Activity {
	return activity.Activity{
		ID:            r.ID,
		Title:         r.Title,
		ImageURL:      r.ImageURL,
		EstimatedTime: r.EstimatedTime.Ptr(),
		TimeInSeconds: r.TimeInSeconds.Ptr(),
		DayPeriod:     activity.DayPeriod(r.DayPeriod),
		Order:         r.Order.Ptr(),
		Creator:       activity.Creator{ID: r.CreatorID, Name: r.CreatorName},
		CreatedAt:     r.CreatedAt.UTC(),
	}
}

const activitySelect = `SELECT a.id, a.title, a.image_url, a.estimated_time, a.time_in_seconds, a.day_period,
		a.sort_order, a.creator_id, u.name AS creator_name, a.created_at
	FROM activities a
	JOIN users u ON u.id = a.creator_id`

type activityRepository struct {
	db core.DB
}

var _ activity.Repository = (*activityRepository)(nil) // interface compliance check

func NewActivityRepository(db core.DB) *activityRepository {
	return &activityRepository{db: db}
}

// lockLibrary serializes the writes on creatorID's library until the end of the transaction.
func lockLibrary(ctx context.Context, tx core.DBExecutor, creatorID string) error {
	var id string
	if err := tx.GetContext(ctx, &id, "SELECT id FROM users WHERE id = $1 FOR UPDATE", creatorID); err != nil {
		return trapNoRowsErr(err, activity.ErrNotFound, "locking library")
	}
	return nil
}

func (repo activityRepository) CreateActivity(ctx context.Context, act activity.Activity) (activity.Activity, error) {
	act.ID = uuid.New().String()

	err := core.WithTx(ctx, repo.db, func(tx core.DBExecutor) error {
		if err := lockLibrary(ctx, tx, act.Creator.ID); err != nil {
			return err
		}

		var count int
		if err := tx.GetContext(ctx, &count, "SELECT COUNT(*) FROM activities WHERE creator_id = $1", act.Creator.ID); err != nil {
			return errors.Wrap(err, "counting activities")
		}
		act.Order = &count

		q := `INSERT INTO activities (id, title, image_url, estimated_time, time_in_seconds, day_period, sort_order, creator_id, created_at)
			VALUES (:id, :title, :image_url, :estimated_time, :time_in_seconds, :day_period, :sort_order, :creator_id, :created_at)`
		_, err := sqlx.NamedExecContext(ctx, tx, q, activityRow{
			ID:            act.ID,
			Title:         act.Title,
			ImageURL:      act.ImageURL,
			EstimatedTime: null.IntFromPtr(act.EstimatedTime),
			TimeInSeconds: null.IntFromPtr(act.TimeInSeconds),
			DayPeriod:     string(act.DayPeriod),
			Order:         null.IntFrom(count),
			CreatorID:     act.Creator.ID,
			CreatedAt:     act.CreatedAt.UTC(),
		})
		return errors.Wrap(err, "inserting activity")
	})
	if err != nil {
		return activity.Activity{}, err
	}
	return act, nil
}

func (repo activityRepository) QueryActivities(ctx context.Context, creatorID string) ([]activity.Activity, error) {
	if !validUUIDs(creatorID) {
		return []activity.Activity{}, nil
	}
	var rows []activityRow
	q := activitySelect + " WHERE a.creator_id = $1 ORDER BY a.sort_order ASC NULLS LAST, a.title ASC"
	if err := repo.db.SelectContext(ctx, &rows, q, creatorID); err != nil {
		return nil, errors.Wrap(err, "querying activities")
	}
	acts := make([]activity.Activity, 0, len(rows))
	for _, r := range rows {
		acts = append(acts, r.activity())
	}
	return acts, nil
}

func (repo activityRepository) GetActivity(ctx context.Context, id string) (activity.Activity, error) {
	if !validUUIDs(id) {
		return activity.Activity{}, activity.ErrNotFound
	}
	var row activityRow
	if err := repo.db.GetContext(ctx, &row, activitySelect+" WHERE a.id = $1", id); err != nil {
		return activity.Activity{}, trapNoRowsErr(err, activity.ErrNotFound, "finding activity")
	}
	return row.activity(), nil
}

func (repo activityRepository) ReorderActivities(ctx context.Context, creatorID string, ids []string) error {
	if !validUUIDs(creatorID) {
		return ordering.ValidatePermutation(ids, nil)
	}

	return core.WithTx(ctx, repo.db, func(tx core.DBExecutor) error {
		if err := lockLibrary(ctx, tx, creatorID); err != nil {
			return err
		}

		var members []string
		if err := tx.SelectContext(ctx, &members, "SELECT id FROM activities WHERE creator_id = $1", creatorID); err != nil {
			return errors.Wrap(err, "querying library")
		}
		if err := ordering.ValidatePermutation(ids, members); err != nil {
			return err
		}

		q := `UPDATE activities a SET sort_order = v.ord - 1
			FROM unnest($1::uuid[]) WITH ORDINALITY AS v(id, ord)
			WHERE a.id = v.id AND a.creator_id = $2`
		_, err := tx.ExecContext(ctx, q, pq.Array(ids), creatorID)
		return errors.Wrap(err, "updating orders")
	})
}
