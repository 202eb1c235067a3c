//go:build integration

package sqlxrepos

import (
	"context"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	postgrescontainer "github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/rotinas-pei/backend/core"
	"github.com/rotinas-pei/backend/core/activity"
	"github.com/rotinas-pei/backend/core/performance"
	"github.com/rotinas-pei/backend/core/routine"
	"github.com/rotinas-pei/backend/core/user"
	"github.com/rotinas-pei/backend/storage/database"
)

func openTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	ctx := context.Background()

	pg, err := postgrescontainer.RunContainer(ctx,
		postgrescontainer.WithDatabase("rotinas"),
		postgrescontainer.WithUsername("rotinas"),
		postgrescontainer.WithPassword("rotinas"),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pg.Terminate(ctx) })

	connStr, err := pg.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := sqlx.Open("postgres", connStr)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	deadline := time.Now().Add(30 * time.Second)
	for {
		if err = db.PingContext(ctx); err == nil {
			break
		}
		require.True(t, time.Now().Before(deadline), "database not ready: %v", err)
		time.Sleep(500 * time.Millisecond)
	}

	require.NoError(t, database.Migrate(db, "up"))
	return db
}

func createUser(t *testing.T, repo *userRepository, name, email, role string) user.User {
	t.Helper()
	now := time.Now().UTC()
	usr, err := repo.CreateUser(context.Background(), user.User{
		Name: name, Email: email, Role: role, PasswordHash: []byte("hash"), CreatedAt: now, UpdatedAt: now,
	})
	require.NoError(t, err)
	return usr
}

func libraryIDs(t *testing.T, repo *activityRepository, creatorID string) []string {
	t.Helper()
	acts, err := repo.QueryActivities(context.Background(), creatorID)
	require.NoError(t, err)
	ids := make([]string, 0, len(acts))
	for _, act := range acts {
		ids = append(ids, act.ID)
	}
	return ids
}

func TestRepositories(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	users := NewUserRepository(db)
	acts := NewActivityRepository(db)
	routines := NewRoutineRepository(db)
	records := NewPerformanceRepository(db)

	teacher := createUser(t, users, "Ana", "ana@example.com", user.RoleTeacher)
	other := createUser(t, users, "Bia", "bia@example.com", user.RoleTeacher)
	student := createUser(t, users, "Caio", "caio@example.com", user.RoleStudent)

	t.Run("users", func(t *testing.T) {
		_, err := users.CreateUser(ctx, user.User{Name: "x", Email: "ana@example.com", Role: user.RoleTeacher, PasswordHash: []byte("h")})
		assert.Equal(t, user.ErrEmailExists, err)

		got, err := users.GetUser(ctx, user.GetFilter{Email: "caio@example.com"})
		require.NoError(t, err)
		assert.Equal(t, student.ID, got.ID)

		_, err = users.GetUser(ctx, user.GetFilter{ID: "not-a-uuid"})
		assert.Equal(t, user.ErrNotFound, err)

		require.NoError(t, users.CreateLink(ctx, user.Link{TeacherID: teacher.ID, StudentID: student.ID, CreatedAt: time.Now()}))
		assert.Equal(t, user.ErrLinkExists, users.CreateLink(ctx, user.Link{TeacherID: teacher.ID, StudentID: student.ID, CreatedAt: time.Now()}))

		linked, err := users.LinkExists(ctx, teacher.ID, student.ID)
		require.NoError(t, err)
		assert.True(t, linked)

		students, err := users.QueryStudents(ctx, teacher.ID)
		require.NoError(t, err)
		require.Len(t, students, 1)
		assert.Equal(t, student.ID, students[0].ID)
	})

	var a, b, c activity.Activity
	t.Run("activities are appended to the library", func(t *testing.T) {
		var err error
		for _, p := range []struct {
			dst   *activity.Activity
			title string
		}{{&a, "Brush teeth"}, {&b, "Breakfast"}, {&c, "Get dressed"}} {
			*p.dst, err = acts.CreateActivity(ctx, activity.Activity{
				Title: p.title, ImageURL: "virtual-cards/x.png", DayPeriod: activity.Morning,
				Creator: activity.Creator{ID: teacher.ID}, CreatedAt: time.Now(),
			})
			require.NoError(t, err)
		}
		require.NotNil(t, c.Order)
		assert.Equal(t, 2, *c.Order)
		assert.Equal(t, []string{a.ID, b.ID, c.ID}, libraryIDs(t, acts, teacher.ID))
	})

	t.Run("library reorder", func(t *testing.T) {
		require.NoError(t, acts.ReorderActivities(ctx, teacher.ID, []string{c.ID, a.ID, b.ID}))
		assert.Equal(t, []string{c.ID, a.ID, b.ID}, libraryIDs(t, acts, teacher.ID))

		err := acts.ReorderActivities(ctx, teacher.ID, []string{c.ID, a.ID})
		assert.True(t, core.IsValidationError(err))
		err = acts.ReorderActivities(ctx, other.ID, []string{c.ID, a.ID, b.ID})
		assert.True(t, core.IsValidationError(err))
		assert.Equal(t, []string{c.ID, a.ID, b.ID}, libraryIDs(t, acts, teacher.ID))
	})

	var r routine.Routine
	t.Run("routines", func(t *testing.T) {
		var err error
		date := core.DateOf(time.Now())
		r, err = routines.CreateRoutine(ctx, routine.Routine{
			DateOfRealization: date,
			Creator:           activity.Creator{ID: teacher.ID, Name: teacher.Name},
			StudentID:         student.ID,
			Activities:        []activity.Activity{b, a},
			CreatedAt:         time.Now(),
		})
		require.NoError(t, err)
		assert.Equal(t, routine.StatusPending, r.Status)

		got, err := routines.QueryRoutines(ctx, student.ID, "", routine.QueryFilter{Date: date})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, []string{b.ID, a.ID}, got[0].ActivityIDs())
		assert.Equal(t, date, got[0].DateOfRealization)
		assert.Equal(t, teacher.Name, got[0].Creator.Name)
		assert.Equal(t, 1, *got[0].Activities[1].Order)

		got, err = routines.QueryRoutines(ctx, student.ID, other.ID, routine.QueryFilter{})
		require.NoError(t, err)
		assert.Empty(t, got)

		require.NoError(t, routines.ReorderRoutineActivities(ctx, r.ID, []string{a.ID, b.ID}))
		fetched, err := routines.GetRoutine(ctx, r.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{a.ID, b.ID}, fetched.ActivityIDs())

		err = routines.ReorderRoutineActivities(ctx, r.ID, []string{a.ID, c.ID})
		assert.True(t, core.IsValidationError(err))

		_, err = routines.GetRoutine(ctx, "00000000-0000-0000-0000-000000000000")
		assert.Equal(t, routine.ErrNotFound, err)
	})

	t.Run("records", func(t *testing.T) {
		secs := 42
		rec, err := records.CreateRecord(ctx, performance.Record{
			ActivityID: a.ID, StudentID: student.ID, Status: performance.StatusCompleted,
			TimeTakenSeconds: &secs, CompletedAt: time.Now(),
		})
		require.NoError(t, err)
		assert.NotEmpty(t, rec.ID)

		_, err = records.CreateRecord(ctx, performance.Record{
			ActivityID: "00000000-0000-0000-0000-000000000000", StudentID: student.ID,
			Status: performance.StatusSkipped, CompletedAt: time.Now(),
		})
		assert.Equal(t, activity.ErrNotFound, err)

		got, err := records.QueryRecords(ctx, student.ID)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, 42, *got[0].TimeTakenSeconds)
	})
}
