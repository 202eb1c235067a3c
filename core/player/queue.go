package player

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rotinas-pei/backend/core"
)

// Poster delivers one event to the server.
type Poster interface {
	PostRecord(ctx context.Context, evt Event) error
}

// Queue forwards player events to a Poster in the background, at most once each.
// Events are posted independently of each other: they may arrive out of order,
// and an event that cannot be queued or posted is logged and dropped.
type Queue struct {
	poster  Poster
	logger  core.Logger
	timeout time.Duration
	workers int

	events chan Event
	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

func NewQueue(poster Poster, logger core.Logger, size, workers int) *Queue {
	if workers < 1 {
		workers = 1
	}
	return &Queue{
		poster:  poster,
		logger:  logger,
		timeout: 10 * time.Second,
		workers: workers,
		events:  make(chan Event, size),
	}
}

// Start launches the workers. They stop once Close has drained the queue.
func (q *Queue) Start(ctx context.Context) {
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go func() {
			defer q.wg.Done()
			for evt := range q.events {
				q.post(ctx, evt)
			}
		}()
	}
}

// Record queues evt without blocking.
func (q *Queue) Record(evt Event) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		q.logger.Warn(fmt.Sprintf("queue closed: dropping %s record of activity %s", evt.Status, evt.ActivityID))
		return
	}
	select {
	case q.events <- evt:
	default:
		q.logger.Warn(fmt.Sprintf("queue full: dropping %s record of activity %s", evt.Status, evt.ActivityID))
	}
}

// Close stops accepting events and waits for the queued ones to be posted.
func (q *Queue) Close() {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.events)
	}
	q.mu.Unlock()
	q.wg.Wait()
}

func (q *Queue) post(ctx context.Context, evt Event) {
	ctx, cancel := context.WithTimeout(ctx, q.timeout)
	defer cancel()

	if err := q.poster.PostRecord(ctx, evt); err != nil {
		q.logger.Error(fmt.Sprintf("posting %s record of activity %s: %v", evt.Status, evt.ActivityID, err), err)
	}
}
