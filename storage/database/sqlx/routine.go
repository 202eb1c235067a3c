package sqlxrepos

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/rotinas-pei/backend/core"
	"github.com/rotinas-pei/backend/core/activity"
	"github.com/rotinas-pei/backend/core/ordering"
	"github.com/rotinas-pei/backend/core/routine"
	"github.com/rotinas-pei/backend/core/user"
)

type routineRow struct {
	ID                string    `db:"id"`
	DateOfRealization core.Date `db:"date_of_realization"`
	CreatorID         string    `db:"creator_id"`
	CreatorName       string    `db:"creator_name"`
	StudentID         string    `db:"student_id"`
	Status            string    `db:"status"`
	CreatedAt         time.Time `db:"created_at"`
}

func (r routineRow) routine() routine.Routine {
	return routine.Routine{
		ID:                r.ID,
		DateOfRealization: r.DateOfRealization,
		Creator:           activity.Creator{ID: r.CreatorID, Name: r.CreatorName},
		StudentID:         r.StudentID,
		Status:            routine.Status(r.Status),
		Activities:        []activity.Activity{},
		CreatedAt:         r.CreatedAt.UTC(),
	}
}

// routineActivityRow is an activity as a member of a routine: its order is the routine position.
type routineActivityRow struct {
	RoutineID string `db:"routine_id"`
	activityRow
}

const routineSelect = `SELECT r.id, r.date_of_realization, r.creator_id, u.name AS creator_name,
		r.student_id, r.status, r.created_at
	FROM routines r
	JOIN users u ON u.id = r.creator_id`

const routineActivitiesSelect = `SELECT ra.routine_id, a.id, a.title, a.image_url, a.estimated_time, a.time_in_seconds,
		a.day_period, ra.position AS sort_order, a.creator_id, u.name AS creator_name, a.created_at
	FROM routine_activities ra
	JOIN activities a ON a.id = ra.activity_id
	JOIN users u ON u.id = a.creator_id
	WHERE ra.routine_id = ANY($1::uuid[])
	ORDER BY ra.routine_id, ra.position`

type routineRepository struct {
	db core.DB
}

var _ routine.Repository = (*routineRepository)(nil) // interface compliance check

func NewRoutineRepository(db core.DB) *routineRepository {
	return &routineRepository{db: db}
}

func (repo routineRepository) CreateRoutine(ctx context.Context, r routine.Routine) (routine.Routine, error) {
	r.ID = uuid.New().String()
	if r.Status == "" {
		r.Status = routine.StatusPending
	}

	err := core.WithTx(ctx, repo.db, func(tx core.DBExecutor) error {
		q := `INSERT INTO routines (id, date_of_realization, creator_id, student_id, status, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)`
		if _, err := tx.ExecContext(ctx, q, r.ID, r.DateOfRealization, r.Creator.ID, r.StudentID, string(r.Status), r.CreatedAt.UTC()); err != nil {
			if isPQError(err, foreignKeyViolation) {
				return user.ErrNotFound
			}
			return errors.Wrap(err, "inserting routine")
		}

		q = `INSERT INTO routine_activities (routine_id, activity_id, position)
			SELECT $1, v.id, v.ord - 1 FROM unnest($2::uuid[]) WITH ORDINALITY AS v(id, ord)`
		if _, err := tx.ExecContext(ctx, q, r.ID, pq.Array(r.ActivityIDs())); err != nil {
			if isPQError(err, foreignKeyViolation) {
				return activity.ErrNotFound
			}
			return errors.Wrap(err, "inserting routine activities")
		}
		return nil
	})
	if err != nil {
		return routine.Routine{}, err
	}

	acts := make([]activity.Activity, len(r.Activities))
	copy(acts, r.Activities)
	for i := range acts {
		pos := i
		acts[i].Order = &pos
	}
	r.Activities = acts
	return r, nil
}

func (repo routineRepository) GetRoutine(ctx context.Context, id string) (routine.Routine, error) {
	if !validUUIDs(id) {
		return routine.Routine{}, routine.ErrNotFound
	}
	var row routineRow
	if err := repo.db.GetContext(ctx, &row, routineSelect+" WHERE r.id = $1", id); err != nil {
		return routine.Routine{}, trapNoRowsErr(err, routine.ErrNotFound, "finding routine")
	}

	routines := []routine.Routine{row.routine()}
	if err := repo.loadActivities(ctx, routines); err != nil {
		return routine.Routine{}, err
	}
	return routines[0], nil
}

func (repo routineRepository) QueryRoutines(ctx context.Context, studentID, creatorID string, filter routine.QueryFilter) ([]routine.Routine, error) {
	if !validUUIDs(studentID) || (creatorID != "" && !validUUIDs(creatorID)) {
		return []routine.Routine{}, nil
	}

	q := routineSelect + " WHERE r.student_id = $1"
	args := []interface{}{studentID}
	if creatorID != "" {
		args = append(args, creatorID)
		q += fmt.Sprintf(" AND r.creator_id = $%d", len(args))
	}
	if !filter.Date.IsZero() {
		args = append(args, filter.Date)
		q += fmt.Sprintf(" AND r.date_of_realization = $%d", len(args))
	}
	q += " ORDER BY r.date_of_realization ASC, r.created_at ASC"

	var rows []routineRow
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying routines")
	}

	routines := make([]routine.Routine, 0, len(rows))
	for _, row := range rows {
		routines = append(routines, row.routine())
	}
	if err := repo.loadActivities(ctx, routines); err != nil {
		return nil, err
	}
	return routines, nil
}

// loadActivities fills the activities of routines, in playback order.
func (repo routineRepository) loadActivities(ctx context.Context, routines []routine.Routine) error {
	if len(routines) == 0 {
		return nil
	}
	ids := make([]string, 0, len(routines))
	index := make(map[string]int, len(routines))
	for i, r := range routines {
		ids = append(ids, r.ID)
		index[r.ID] = i
	}

	var rows []routineActivityRow
	if err := repo.db.SelectContext(ctx, &rows, routineActivitiesSelect, pq.Array(ids)); err != nil {
		return errors.Wrap(err, "querying routine activities")
	}
	for _, row := range rows {
		i := index[row.RoutineID]
		routines[i].Activities = append(routines[i].Activities, row.activity())
	}
	return nil
}

func (repo routineRepository) ReorderRoutineActivities(ctx context.Context, routineID string, ids []string) error {
	if !validUUIDs(routineID) {
		return routine.ErrNotFound
	}

	return core.WithTx(ctx, repo.db, func(tx core.DBExecutor) error {
		var id string
		if err := tx.GetContext(ctx, &id, "SELECT id FROM routines WHERE id = $1 FOR UPDATE", routineID); err != nil {
			return trapNoRowsErr(err, routine.ErrNotFound, "locking routine")
		}

		var members []string
		if err := tx.SelectContext(ctx, &members, "SELECT activity_id FROM routine_activities WHERE routine_id = $1", routineID); err != nil {
			return errors.Wrap(err, "querying routine activities")
		}
		if err := ordering.ValidatePermutation(ids, members); err != nil {
			return err
		}

		q := `UPDATE routine_activities ra SET position = v.ord - 1
			FROM unnest($1::uuid[]) WITH ORDINALITY AS v(id, ord)
			WHERE ra.routine_id = $2 AND ra.activity_id = v.id`
		_, err := tx.ExecContext(ctx, q, pq.Array(ids), routineID)
		return errors.Wrap(err, "updating positions")
	})
}
