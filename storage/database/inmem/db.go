// Package inmemdb implements the repositories in memory, for tests and local development.
package inmemdb

import (
	"sync"

	"github.com/rotinas-pei/backend/core/activity"
	"github.com/rotinas-pei/backend/core/performance"
	"github.com/rotinas-pei/backend/core/routine"
	"github.com/rotinas-pei/backend/core/user"
)

type (
	linkKey struct {
		teacherID string
		studentID string
	}

	routineEntry struct {
		routine     routine.Routine // without activities
		activityIDs []string        // playback order
		seq         int             // insertion rank, breaks created_at ties
	}

	// DB holds every table behind a single lock; multi-table writes are atomic.
	DB struct {
		mu         sync.RWMutex
		users      map[string]*user.User
		links      map[linkKey]user.Link
		activities map[string]*activity.Activity
		routines   map[string]*routineEntry
		records    []performance.Record
		seq        int
	}
)

func Open() *DB {
	return &DB{
		users:      make(map[string]*user.User),
		links:      make(map[linkKey]user.Link),
		activities: make(map[string]*activity.Activity),
		routines:   make(map[string]*routineEntry),
	}
}

// Close is a no-op; it lets DB stand in for a real connection.
func (db *DB) Close() error { return nil }

// creator must be called with db.mu held.
func (db *DB) creator(id string) activity.Creator {
	c := activity.Creator{ID: id}
	if usr, ok := db.users[id]; ok {
		c.Name = usr.Name
	}
	return c
}
