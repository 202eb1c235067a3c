package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/rotinas-pei/backend/core/user"
)

type userRepository struct {
	db *DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *DB) *userRepository {
	return &userRepository{db: db}
}

// findByEmail must be called with the lock held.
func (repo *userRepository) findByEmail(email string) (*user.User, bool) {
	for _, usr := range repo.db.users {
		if usr.Email == email {
			return usr, true
		}
	}
	return nil, false
}

func (repo *userRepository) CheckEmailUniqueness(_ context.Context, email string) error {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if _, ok := repo.findByEmail(email); ok {
		return user.ErrEmailExists
	}
	return nil
}

func (repo *userRepository) CreateUser(_ context.Context, usr user.User) (user.User, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.findByEmail(usr.Email); ok {
		return user.User{}, user.ErrEmailExists
	}
	usr.ID = uuid.New().String()
	repo.db.users[usr.ID] = &usr
	return usr, nil
}

func (repo *userRepository) GetUser(_ context.Context, filter user.GetFilter) (user.User, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	switch {
	case filter.ID != "":
		if usr, ok := repo.db.users[filter.ID]; ok {
			return *usr, nil
		}
	case filter.Email != "":
		if usr, ok := repo.findByEmail(filter.Email); ok {
			return *usr, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) UpdatePassword(_ context.Context, id string, hash []byte, updatedAt time.Time) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	usr, ok := repo.db.users[id]
	if !ok {
		return user.ErrNotFound
	}
	usr.PasswordHash = hash
	usr.UpdatedAt = updatedAt
	return nil
}

func (repo *userRepository) QueryStudents(_ context.Context, teacherID string) ([]user.User, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	students := make([]user.User, 0)
	for key := range repo.db.links {
		if key.teacherID != teacherID {
			continue
		}
		if usr, ok := repo.db.users[key.studentID]; ok {
			students = append(students, *usr)
		}
	}
	sort.Slice(students, func(i, j int) bool {
		if students[i].Name != students[j].Name {
			return students[i].Name < students[j].Name
		}
		return students[i].Email < students[j].Email
	})
	return students, nil
}

func (repo *userRepository) CreateLink(_ context.Context, link user.Link) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.users[link.TeacherID]; !ok {
		return user.ErrNotFound
	}
	if _, ok := repo.db.users[link.StudentID]; !ok {
		return user.ErrNotFound
	}
	key := linkKey{teacherID: link.TeacherID, studentID: link.StudentID}
	if _, ok := repo.db.links[key]; ok {
		return user.ErrLinkExists
	}
	repo.db.links[key] = link
	return nil
}

func (repo *userRepository) DeleteLink(_ context.Context, teacherID, studentID string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	key := linkKey{teacherID: teacherID, studentID: studentID}
	if _, ok := repo.db.links[key]; !ok {
		return user.ErrLinkNotFound
	}
	delete(repo.db.links, key)
	return nil
}

func (repo *userRepository) LinkExists(_ context.Context, teacherID, studentID string) (bool, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	_, ok := repo.db.links[linkKey{teacherID: teacherID, studentID: studentID}]
	return ok, nil
}
