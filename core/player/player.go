// Package player plays a student's routine: one activity after the other, each on its own countdown.
//
// Player is a plain state machine: it never blocks and never touches the network.
// Every skip, completion or timeout is handed to a Sink, which forwards it elsewhere (see Queue).
// Session drives a Player from a single goroutine.
package player

import (
	"time"

	"github.com/juju/clock"

	"github.com/rotinas-pei/backend/core/activity"
	"github.com/rotinas-pei/backend/core/performance"
)

const tickInterval = time.Second

type State int

// States
const (
	Idle State = iota
	Running
	Finished
)

func (s State) String() string {
	switch s {
	case Idle:
		return "IDLE"
	case Running:
		return "RUNNING"
	case Finished:
		return "FINISHED"
	}
	return "UNKNOWN"
}

// Event is the outcome of one activity.
type Event struct {
	Index            int
	ActivityID       string
	Status           performance.Status
	TimeTakenSeconds *int // nil when no countdown baseline was available
	At               time.Time
}

// Sink receives the outputs of a Player. Implementations must not block.
type Sink interface {
	Record(evt Event)
	Finished()
}

// Player is not safe for concurrent use.
type Player struct {
	clock clock.Clock
	acts  []activity.Activity
	sink  Sink

	state     State
	index     int
	total     int // countdown duration of the current activity
	remaining int
	baseline  bool // remaining is meaningful
	timer     clock.Timer
}

// New returns a Player for acts, which must already be sorted for playback (see SortForPlayback).
// A Player without activities is Finished from the start.
func New(clk clock.Clock, acts []activity.Activity, sink Sink) *Player {
	p := &Player{clock: clk, acts: acts, sink: sink}
	if len(acts) == 0 {
		p.state = Finished
	}
	return p
}

func (p *Player) State() State   { return p.state }
func (p *Player) Index() int     { return p.index }
func (p *Player) Len() int       { return len(p.acts) }
func (p *Player) Remaining() int { return p.remaining }
func (p *Player) Total() int     { return p.total }

// Current returns the activity being played.
func (p *Player) Current() (activity.Activity, bool) {
	if p.state != Running {
		return activity.Activity{}, false
	}
	return p.acts[p.index], true
}

// Next returns the activity that follows the current one.
func (p *Player) Next() (activity.Activity, bool) {
	i := p.index + 1
	if p.state == Idle {
		i = 0
	}
	if p.state == Finished || i >= len(p.acts) {
		return activity.Activity{}, false
	}
	return p.acts[i], true
}

// C returns the channel of the running countdown, or nil when there is none.
func (p *Player) C() <-chan time.Time {
	if p.timer == nil {
		return nil
	}
	return p.timer.Chan()
}

// Progress returns the elapsed fraction of the current countdown, in [0, 1].
func (p *Player) Progress() float64 {
	if p.state != Running || p.total <= 0 {
		return 0
	}
	elapsed := p.total - p.remaining
	if elapsed < 0 {
		elapsed = 0
	}
	frac := float64(elapsed) / float64(p.total)
	if frac > 1 {
		return 1
	}
	return frac
}

// Start plays the first activity. It reports false unless the player is Idle.
func (p *Player) Start() bool {
	if p.state != Idle {
		return false
	}
	p.enter(0)
	return true
}

// Tick counts one second down. When the countdown runs out the activity times out.
func (p *Player) Tick() {
	if p.state != Running || p.timer == nil {
		return
	}
	if p.remaining <= 1 {
		p.remaining = 0
		p.disarm()
		p.resolve(performance.StatusTimeout, intPtr(p.total))
		return
	}
	p.remaining--
	p.timer.Reset(tickInterval)
}

func (p *Player) Skip() bool     { return p.act(performance.StatusSkipped) }
func (p *Player) Complete() bool { return p.act(performance.StatusCompleted) }

// Stop tears the player down: the countdown is cancelled and no more events are emitted.
func (p *Player) Stop() {
	p.disarm()
	p.baseline = false
	p.remaining = 0
	p.state = Finished
}

func (p *Player) act(status performance.Status) bool {
	if p.state != Running {
		return false
	}
	p.resolve(status, p.elapsed())
	return true
}

func (p *Player) elapsed() *int {
	if !p.baseline {
		return nil
	}
	elapsed := p.total - p.remaining
	if elapsed < 0 {
		elapsed = 0
	}
	return &elapsed
}

// resolve emits the outcome of the current activity and moves on.
func (p *Player) resolve(status performance.Status, timeTaken *int) {
	p.sink.Record(Event{
		Index:            p.index,
		ActivityID:       p.acts[p.index].ID,
		Status:           status,
		TimeTakenSeconds: timeTaken,
		At:               p.clock.Now(),
	})
	p.advance()
}

func (p *Player) advance() {
	p.disarm()
	p.baseline = false

	next := p.index + 1
	if next >= len(p.acts) {
		p.remaining = 0
		p.state = Finished
		p.sink.Finished()
		return
	}
	p.enter(next)
}

func (p *Player) enter(i int) {
	p.index = i
	p.total = duration(p.acts[i])
	p.remaining = p.total
	p.baseline = true
	p.state = Running
	p.arm()
}

// arm replaces the countdown timer. Activities without a duration get none and never time out.
func (p *Player) arm() {
	p.disarm()
	if p.total <= 0 {
		return
	}
	p.timer = p.clock.NewTimer(tickInterval)
}

func (p *Player) disarm() {
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
}

func duration(act activity.Activity) int {
	if act.TimeInSeconds == nil || *act.TimeInSeconds < 0 {
		return 0
	}
	return *act.TimeInSeconds
}

func intPtr(i int) *int { return &i }

// SinkFuncs adapts plain functions to a Sink. Nil functions are ignored.
type SinkFuncs struct {
	OnRecord   func(evt Event)
	OnFinished func()
}

func (f SinkFuncs) Record(evt Event) {
	if f.OnRecord != nil {
		f.OnRecord(evt)
	}
}

func (f SinkFuncs) Finished() {
	if f.OnFinished != nil {
		f.OnFinished()
	}
}
