package inmemdb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/rotinas-pei/backend/core/activity"
	"github.com/rotinas-pei/backend/core/ordering"
)

type activityRepository struct {
	db *DB
}

var _ activity.Repository = (*activityRepository)(nil) // interface compliance check

func NewActivityRepository(db *DB) *activityRepository {
	return &activityRepository{db: db}
}

// library must be called with the lock held.
func (repo *activityRepository) library(creatorID string) []activity.Activity {
	acts := make([]activity.Activity, 0)
	for _, act := range repo.db.activities {
		if act.Creator.ID == creatorID {
			a := *act
			a.Creator = repo.db.creator(creatorID)
			acts = append(acts, a)
		}
	}
	sort.SliceStable(acts, func(i, j int) bool {
		ki, kj := ordering.Key(acts[i].Order), ordering.Key(acts[j].Order)
		if ki != kj {
			return ki < kj
		}
		return acts[i].Title < acts[j].Title
	})
	return acts
}

func (repo *activityRepository) CreateActivity(_ context.Context, act activity.Activity) (activity.Activity, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	order := len(repo.library(act.Creator.ID))
	act.ID = uuid.New().String()
	act.Order = &order
	stored := act
	repo.db.activities[act.ID] = &stored
	return act, nil
}

func (repo *activityRepository) QueryActivities(_ context.Context, creatorID string) ([]activity.Activity, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	return repo.library(creatorID), nil
}

func (repo *activityRepository) GetActivity(_ context.Context, id string) (activity.Activity, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	act, ok := repo.db.activities[id]
	if !ok {
		return activity.Activity{}, activity.ErrNotFound
	}
	a := *act
	a.Creator = repo.db.creator(act.Creator.ID)
	return a, nil
}

func (repo *activityRepository) ReorderActivities(_ context.Context, creatorID string, ids []string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	lib := repo.library(creatorID)
	members := make([]string, 0, len(lib))
	for _, act := range lib {
		members = append(members, act.ID)
	}
	if err := ordering.ValidatePermutation(ids, members); err != nil {
		return err
	}

	for i, id := range ids {
		order := i
		repo.db.activities[id].Order = &order
	}
	return nil
}
