package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/rotinas-pei/backend/core"
	"github.com/rotinas-pei/backend/core/user"
)

type userRow struct {
	ID           string    `db:"id"`
	Name         string    `db:"name"`
	Email        string    `db:"email"`
	Role         string    `db:"role"`
	PasswordHash []byte    `db:"password_hash"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

func (r userRow) user() user.User {
	return user.User{
		ID:           r.ID,
		Name:         r.Name,
		Email:        r.Email,
		Role:         r.Role,
		PasswordHash: r.PasswordHash,
		CreatedAt:    r.CreatedAt.UTC(),
		UpdatedAt:    r.UpdatedAt.UTC(),
	}
}

const userColumns = "id, name, email, role, password_hash, created_at, updated_at"

type userRepository struct {
	db core.DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db core.DB) *userRepository {
	return &userRepository{db: db}
}

func (repo userRepository) CheckEmailUniqueness(ctx context.Context, email string) error {
	var exists bool
	q := "SELECT EXISTS (SELECT 1 FROM users WHERE email = $1)"
	if err := repo.db.GetContext(ctx, &exists, q, email); err != nil {
		return errors.Wrap(err, "checking email uniqueness")
	}
	if exists {
		return user.ErrEmailExists
	}
	return nil
}

func (repo userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	usr.ID = uuid.New().String()
	q := `INSERT INTO users (` + userColumns + `)
		VALUES (:id, :name, :email, :role, :password_hash, :created_at, :updated_at)`
	row := userRow{
		ID:           usr.ID,
		Name:         usr.Name,
		Email:        usr.Email,
		Role:         usr.Role,
		PasswordHash: usr.PasswordHash,
		CreatedAt:    usr.CreatedAt.UTC(),
		UpdatedAt:    usr.UpdatedAt.UTC(),
	}
	if _, err := sqlx.NamedExecContext(ctx, repo.db, q, row); err != nil {
		if isPQError(err, uniqueViolation, "users_email_key") {
			return user.User{}, user.ErrEmailExists
		}
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return usr, nil
}

func (repo userRepository) GetUser(ctx context.Context, filter user.GetFilter) (user.User, error) {
	var row userRow
	var err error

	switch {
	case filter.ID != "":
		if _, err = uuid.Parse(filter.ID); err != nil {
			return user.User{}, user.ErrNotFound
		}
		err = repo.db.GetContext(ctx, &row, "SELECT "+userColumns+" FROM users WHERE id = $1", filter.ID)
	case filter.Email != "":
		err = repo.db.GetContext(ctx, &row, "SELECT "+userColumns+" FROM users WHERE email = $1", filter.Email)
	default:
		return user.User{}, user.ErrNotFound
	}
	if err != nil {
		return user.User{}, trapNoRowsErr(err, user.ErrNotFound, "finding user")
	}
	return row.user(), nil
}

func (repo userRepository) UpdatePassword(ctx context.Context, id string, hash []byte, updatedAt time.Time) error {
	if _, err := uuid.Parse(id); err != nil {
		return user.ErrNotFound
	}
	res, err := repo.db.ExecContext(ctx,
		"UPDATE users SET password_hash = $1, updated_at = $2 WHERE id = $3", hash, updatedAt.UTC(), id)
	if err != nil {
		return errors.Wrap(err, "updating password")
	}
	if n, err := res.RowsAffected(); err != nil {
		return errors.Wrap(err, "updating password")
	} else if n == 0 {
		return user.ErrNotFound
	}
	return nil
}

func (repo userRepository) QueryStudents(ctx context.Context, teacherID string) ([]user.User, error) {
	if _, err := uuid.Parse(teacherID); err != nil {
		return []user.User{}, nil
	}
	var rows []userRow
	q := `SELECT u.id, u.name, u.email, u.role, u.password_hash, u.created_at, u.updated_at
		FROM users u
		JOIN teacher_student_links l ON l.student_id = u.id
		WHERE l.teacher_id = $1
		ORDER BY u.name, u.email`
	if err := repo.db.SelectContext(ctx, &rows, q, teacherID); err != nil {
		return nil, errors.Wrap(err, "querying students")
	}
	users := make([]user.User, 0, len(rows))
	for _, r := range rows {
		users = append(users, r.user())
	}
	return users, nil
}

func (repo userRepository) CreateLink(ctx context.Context, link user.Link) error {
	q := "INSERT INTO teacher_student_links (teacher_id, student_id, created_at) VALUES ($1, $2, $3)"
	if _, err := repo.db.ExecContext(ctx, q, link.TeacherID, link.StudentID, link.CreatedAt.UTC()); err != nil {
		if isPQError(err, uniqueViolation) {
			return user.ErrLinkExists
		}
		if isPQError(err, foreignKeyViolation) {
			return user.ErrNotFound
		}
		return errors.Wrap(err, "inserting link")
	}
	return nil
}

func (repo userRepository) DeleteLink(ctx context.Context, teacherID, studentID string) error {
	if !validUUIDs(teacherID, studentID) {
		return user.ErrLinkNotFound
	}
	res, err := repo.db.ExecContext(ctx,
		"DELETE FROM teacher_student_links WHERE teacher_id = $1 AND student_id = $2", teacherID, studentID)
	if err != nil {
		return errors.Wrap(err, "deleting link")
	}
	if n, err := res.RowsAffected(); err != nil {
		return errors.Wrap(err, "deleting link")
	} else if n == 0 {
		return user.ErrLinkNotFound
	}
	return nil
}

func (repo userRepository) LinkExists(ctx context.Context, teacherID, studentID string) (bool, error) {
	if !validUUIDs(teacherID, studentID) {
		return false, nil
	}
	var exists bool
	q := "SELECT EXISTS (SELECT 1 FROM teacher_student_links WHERE teacher_id = $1 AND student_id = $2)"
	if err := repo.db.GetContext(ctx, &exists, q, teacherID, studentID); err != nil {
		return false, errors.Wrap(err, "checking link")
	}
	return exists, nil
}
