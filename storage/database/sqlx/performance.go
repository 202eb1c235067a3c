package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/rotinas-pei/backend/core"
	"github.com/rotinas-pei/backend/core/activity"
	"github.com/rotinas-pei/backend/core/performance"
)

type recordRow struct {
	ID               string    `db:"id"`
	ActivityID       string    `db:"activity_id"`
	StudentID        string    `db:"student_id"`
	Status           string    `db:"status"`
	TimeTakenSeconds null.Int  `db:"time_taken_seconds"`
	CompletedAt      time.Time `db:"completed_at"`
}

func (r recordRow) record() performance.Record {
	return performance.Record{
		ID:               r.ID,
		ActivityID:       r.ActivityID,
		StudentID:        r.StudentID,
		Status:           performance.Status(r.Status),
		TimeTakenSeconds: r.TimeTakenSeconds.Ptr(),
		CompletedAt:      r.CompletedAt.UTC(),
	}
}

type performanceRepository struct {
	db core.DB
}

var _ performance.Repository = (*performanceRepository)(nil) // interface compliance check

func NewPerformanceRepository(db core.DB) *performanceRepository {
	return &performanceRepository{db: db}
}

func (repo performanceRepository) CreateRecord(ctx context.Context, rec performance.Record) (performance.Record, error) {
	rec.ID = uuid.New().String()

	q := `INSERT INTO performance_records (id, activity_id, student_id, status, time_taken_seconds, completed_at)
		VALUES (:id, :activity_id, :student_id, :status, :time_taken_seconds, :completed_at)`
	_, err := sqlx.NamedExecContext(ctx, repo.db, q, recordRow{
		ID:               rec.ID,
		ActivityID:       rec.ActivityID,
		StudentID:        rec.StudentID,
		Status:           string(rec.Status),
		TimeTakenSeconds: null.IntFromPtr(rec.TimeTakenSeconds),
		CompletedAt:      rec.CompletedAt.UTC(),
	})
	if err != nil {
		if isPQError(err, foreignKeyViolation) {
			return performance.Record{}, activity.ErrNotFound
		}
		return performance.Record{}, errors.Wrap(err, "inserting record")
	}
	return rec, nil
}

func (repo performanceRepository) QueryRecords(ctx context.Context, studentID string) ([]performance.Record, error) {
	if !validUUIDs(studentID) {
		return []performance.Record{}, nil
	}
	var rows []recordRow
	q := `SELECT id, activity_id, student_id, status, time_taken_seconds, completed_at
		FROM performance_records WHERE student_id = $1 ORDER BY completed_at ASC`
	if err := repo.db.SelectContext(ctx, &rows, q, studentID); err != nil {
		return nil, errors.Wrap(err, "querying records")
	}
	recs := make([]performance.Record, 0, len(rows))
	for _, r := range rows {
		recs = append(recs, r.record())
	}
	return recs, nil
}
