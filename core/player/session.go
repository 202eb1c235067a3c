package player

import (
	"context"

	"github.com/rotinas-pei/backend/core/activity"
)

type command int

const (
	cmdStart command = iota
	cmdSkip
	cmdComplete
	cmdStop
)

type request struct {
	cmd   command
	reply chan bool
}

// Snapshot is what a screen needs to render the player.
type Snapshot struct {
	State     State
	Index     int
	Len       int
	Activity  activity.Activity
	Next      *activity.Activity
	Remaining int
	Total     int
	Progress  float64
}

// Session owns a Player and drives it from a single goroutine.
// Commands and countdown ticks are applied in the order they are received.
type Session struct {
	player   *Player
	requests chan request
	done     chan struct{}
	onChange func(Snapshot)
}

// NewSession wraps p. onChange, if not nil, is called from the session goroutine after every change.
func NewSession(p *Player, onChange func(Snapshot)) *Session {
	return &Session{
		player:   p,
		requests: make(chan request),
		done:     make(chan struct{}),
		onChange: onChange,
	}
}

// Run drives the player until it finishes, Stop is called or ctx is done.
// The countdown is always cancelled on return.
func (s *Session) Run(ctx context.Context) error {
	defer close(s.done)
	defer s.player.Stop()

	for s.player.State() != Finished {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case req := <-s.requests:
			req.reply <- s.apply(req.cmd)
		case <-s.player.C():
			s.player.Tick()
		}
		s.changed()
	}
	return nil
}

func (s *Session) apply(cmd command) bool {
	switch cmd {
	case cmdStart:
		return s.player.Start()
	case cmdSkip:
		return s.player.Skip()
	case cmdComplete:
		return s.player.Complete()
	case cmdStop:
		s.player.Stop()
		return true
	}
	return false
}

func (s *Session) changed() {
	if s.onChange != nil {
		s.onChange(s.snapshot())
	}
}

func (s *Session) snapshot() Snapshot {
	p := s.player
	snap := Snapshot{
		State:     p.State(),
		Index:     p.Index(),
		Len:       p.Len(),
		Remaining: p.Remaining(),
		Total:     p.Total(),
		Progress:  p.Progress(),
	}
	if act, ok := p.Current(); ok {
		snap.Activity = act
	}
	if next, ok := p.Next(); ok {
		snap.Next = &next
	}
	return snap
}

// Start, Skip, Complete and Stop report whether the command was applied.
// They return false once the session is over.

func (s *Session) Start() bool    { return s.send(cmdStart) }
func (s *Session) Skip() bool     { return s.send(cmdSkip) }
func (s *Session) Complete() bool { return s.send(cmdComplete) }
func (s *Session) Stop() bool     { return s.send(cmdStop) }

// Done is closed when Run returns.
func (s *Session) Done() <-chan struct{} { return s.done }

func (s *Session) send(cmd command) bool {
	req := request{cmd: cmd, reply: make(chan bool, 1)}
	select {
	case s.requests <- req:
		return <-req.reply
	case <-s.done:
		return false
	}
}
