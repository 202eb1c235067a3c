package inmemdb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/rotinas-pei/backend/core/activity"
	"github.com/rotinas-pei/backend/core/ordering"
	"github.com/rotinas-pei/backend/core/routine"
	"github.com/rotinas-pei/backend/core/user"
)

type routineRepository struct {
	db *DB
}

var _ routine.Repository = (*routineRepository)(nil) // interface compliance check

func NewRoutineRepository(db *DB) *routineRepository {
	return &routineRepository{db: db}
}

// load must be called with the lock held.
func (repo *routineRepository) load(entry *routineEntry) routine.Routine {
	r := entry.routine
	r.Creator = repo.db.creator(r.Creator.ID)
	r.Activities = make([]activity.Activity, 0, len(entry.activityIDs))
	for i, id := range entry.activityIDs {
		act, ok := repo.db.activities[id]
		if !ok {
			continue
		}
		a := *act
		pos := i
		a.Order = &pos
		a.Creator = repo.db.creator(act.Creator.ID)
		r.Activities = append(r.Activities, a)
	}
	return r
}

func (repo *routineRepository) CreateRoutine(_ context.Context, r routine.Routine) (routine.Routine, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.users[r.Creator.ID]; !ok {
		return routine.Routine{}, user.ErrNotFound
	}
	if _, ok := repo.db.users[r.StudentID]; !ok {
		return routine.Routine{}, user.ErrNotFound
	}
	ids := r.ActivityIDs()
	for _, id := range ids {
		if _, ok := repo.db.activities[id]; !ok {
			return routine.Routine{}, activity.ErrNotFound
		}
	}

	r.ID = uuid.New().String()
	if r.Status == "" {
		r.Status = routine.StatusPending
	}
	repo.db.seq++
	entry := &routineEntry{routine: r, activityIDs: ids, seq: repo.db.seq}
	entry.routine.Activities = nil
	repo.db.routines[r.ID] = entry
	return repo.load(entry), nil
}

func (repo *routineRepository) GetRoutine(_ context.Context, id string) (routine.Routine, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	entry, ok := repo.db.routines[id]
	if !ok {
		return routine.Routine{}, routine.ErrNotFound
	}
	return repo.load(entry), nil
}

func (repo *routineRepository) QueryRoutines(_ context.Context, studentID, creatorID string, filter routine.QueryFilter) ([]routine.Routine, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	entries := make([]*routineEntry, 0)
	for _, entry := range repo.db.routines {
		r := entry.routine
		if r.StudentID != studentID {
			continue
		}
		if creatorID != "" && r.Creator.ID != creatorID {
			continue
		}
		if !filter.Date.IsZero() && r.DateOfRealization != filter.Date {
			continue
		}
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool {
		ri, rj := entries[i].routine, entries[j].routine
		if ri.DateOfRealization != rj.DateOfRealization {
			return ri.DateOfRealization.Before(rj.DateOfRealization)
		}
		if !ri.CreatedAt.Equal(rj.CreatedAt) {
			return ri.CreatedAt.Before(rj.CreatedAt)
		}
		return entries[i].seq < entries[j].seq
	})

	routines := make([]routine.Routine, 0, len(entries))
	for _, entry := range entries {
		routines = append(routines, repo.load(entry))
	}
	return routines, nil
}

func (repo *routineRepository) ReorderRoutineActivities(_ context.Context, routineID string, ids []string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	entry, ok := repo.db.routines[routineID]
	if !ok {
		return routine.ErrNotFound
	}
	if err := ordering.ValidatePermutation(ids, entry.activityIDs); err != nil {
		return err
	}
	entry.activityIDs = append([]string(nil), ids...)
	return nil
}
