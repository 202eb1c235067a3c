package player

import (
	"context"
	"testing"
	"time"

	"github.com/juju/clock/testclock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rotinas-pei/backend/core"
	"github.com/rotinas-pei/backend/core/activity"
	"github.com/rotinas-pei/backend/core/performance"
)

const waitTimeout = 5 * time.Second

// chanSink hands the session's outputs over to the test goroutine.
type chanSink struct {
	events   chan Event
	finished chan struct{}
}

func newChanSink() *chanSink {
	return &chanSink{events: make(chan Event, 16), finished: make(chan struct{}, 1)}
}

func (s *chanSink) Record(evt Event) { s.events <- evt }
func (s *chanSink) Finished()        { s.finished <- struct{}{} }

func (s *chanSink) next(t *testing.T) Event {
	t.Helper()
	select {
	case evt := <-s.events:
		return evt
	case <-time.After(waitTimeout):
		t.Fatal("no event received")
	}
	return Event{}
}

func runSession(t *testing.T, acts ...activity.Activity) (*Session, *chanSink, *testclock.Clock, chan error) {
	clk := testclock.NewClock(time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC))
	sink := newChanSink()
	sess := NewSession(New(clk, acts, sink), nil)

	errc := make(chan error, 1)
	go func() { errc <- sess.Run(context.Background()) }()
	return sess, sink, clk, errc
}

func TestSession_Timeout(t *testing.T) {
	sess, sink, clk, errc := runSession(t, newActivity("a", core.IntPtr(3)), newActivity("b", nil))

	require.True(t, sess.Start())
	for i := 0; i < 3; i++ {
		require.NoError(t, clk.WaitAdvance(time.Second, waitTimeout, 1))
	}

	evt := sink.next(t)
	assert.Equal(t, performance.StatusTimeout, evt.Status)
	assert.Equal(t, "a", evt.ActivityID)
	require.NotNil(t, evt.TimeTakenSeconds)
	assert.Equal(t, 3, *evt.TimeTakenSeconds)

	// "b" has no countdown and waits for the student
	require.True(t, sess.Complete())
	evt = sink.next(t)
	assert.Equal(t, performance.StatusCompleted, evt.Status)
	assert.Equal(t, "b", evt.ActivityID)

	select {
	case <-sink.finished:
	case <-time.After(waitTimeout):
		t.Fatal("routine not finished")
	}
	assert.NoError(t, <-errc)
	assert.False(t, sess.Skip(), "session is over")
}

func TestSession_CompleteMidCountdown(t *testing.T) {
	sess, sink, clk, errc := runSession(t, newActivity("a", core.IntPtr(10)))

	require.True(t, sess.Start())
	for i := 0; i < 4; i++ {
		require.NoError(t, clk.WaitAdvance(time.Second, waitTimeout, 1))
	}
	// the 4th tick may still be in flight: wait for the timer to be re-armed
	require.NoError(t, clk.WaitAdvance(0, waitTimeout, 1))
	require.True(t, sess.Complete())

	evt := sink.next(t)
	assert.Equal(t, performance.StatusCompleted, evt.Status)
	require.NotNil(t, evt.TimeTakenSeconds)
	assert.Equal(t, 4, *evt.TimeTakenSeconds)
	assert.NoError(t, <-errc)
}

func TestSession_Stop(t *testing.T) {
	sess, sink, _, errc := runSession(t, newActivity("a", core.IntPtr(10)), newActivity("b", core.IntPtr(10)))

	require.True(t, sess.Start())
	require.True(t, sess.Stop())
	assert.NoError(t, <-errc)

	assert.Len(t, sink.events, 0)
	assert.Len(t, sink.finished, 0)
	assert.False(t, sess.Start())
}

func TestSession_Cancel(t *testing.T) {
	clk := testclock.NewClock(time.Now())
	p := New(clk, []activity.Activity{newActivity("a", core.IntPtr(10))}, newChanSink())
	sess := NewSession(p, nil)

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- sess.Run(ctx) }()

	require.True(t, sess.Start())
	cancel()
	assert.Equal(t, context.Canceled, <-errc)

	<-sess.Done()
	assert.Equal(t, Finished, p.State())
	assert.Nil(t, p.C())
}

func TestSession_Empty(t *testing.T) {
	sess, sink, _, errc := runSession(t)

	assert.NoError(t, <-errc)
	assert.False(t, sess.Start())
	assert.Len(t, sink.events, 0)
}

func TestSession_Snapshots(t *testing.T) {
	clk := testclock.NewClock(time.Now())
	snaps := make(chan Snapshot, 16)
	p := New(clk, []activity.Activity{newActivity("a", core.IntPtr(2)), newActivity("b", nil)}, newChanSink())
	sess := NewSession(p, func(s Snapshot) { snaps <- s })

	errc := make(chan error, 1)
	go func() { errc <- sess.Run(context.Background()) }()

	require.True(t, sess.Start())
	snap := <-snaps
	assert.Equal(t, Running, snap.State)
	assert.Equal(t, "a", snap.Activity.ID)
	assert.Equal(t, 2, snap.Remaining)
	require.NotNil(t, snap.Next)
	assert.Equal(t, "b", snap.Next.ID)

	require.NoError(t, clk.WaitAdvance(time.Second, waitTimeout, 1))
	snap = <-snaps
	assert.Equal(t, 1, snap.Remaining)
	assert.InDelta(t, .5, snap.Progress, 1e-9)

	require.NoError(t, clk.WaitAdvance(time.Second, waitTimeout, 1))
	snap = <-snaps
	assert.Equal(t, "b", snap.Activity.ID)
	assert.Nil(t, snap.Next)

	require.True(t, sess.Skip())
	snap = <-snaps
	assert.Equal(t, Finished, snap.State)
	assert.NoError(t, <-errc)
}
