package inmemdb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/rotinas-pei/backend/core/activity"
	"github.com/rotinas-pei/backend/core/performance"
)

type performanceRepository struct {
	db *DB
}

var _ performance.Repository = (*performanceRepository)(nil) // interface compliance check

func NewPerformanceRepository(db *DB) *performanceRepository {
	return &performanceRepository{db: db}
}

func (repo *performanceRepository) CreateRecord(_ context.Context, rec performance.Record) (performance.Record, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.activities[rec.ActivityID]; !ok {
		return performance.Record{}, activity.ErrNotFound
	}
	rec.ID = uuid.New().String()
	repo.db.records = append(repo.db.records, rec)
	return rec, nil
}

func (repo *performanceRepository) QueryRecords(_ context.Context, studentID string) ([]performance.Record, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	recs := make([]performance.Record, 0)
	for _, rec := range repo.db.records {
		if rec.StudentID == studentID {
			recs = append(recs, rec)
		}
	}
	sort.SliceStable(recs, func(i, j int) bool { return recs[i].CompletedAt.Before(recs[j].CompletedAt) })
	return recs, nil
}
