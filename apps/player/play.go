package main

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/pkg/errors"

	"github.com/rotinas-pei/backend/core"
	"github.com/rotinas-pei/backend/core/player"
)

const (
	queueSize    = 64
	queueWorkers = 2
	barWidth     = 20
)

func (cli *commandLine) play(ctx context.Context) error {
	now := cli.clock.Now()
	student, routines, err := cli.api.Routines(ctx, "", core.DateOf(now))
	if err != nil {
		return err
	}
	r, ok := player.TodayRoutine(routines, now)
	if !ok {
		fmt.Fprintf(cli.out, "No routine planned for today, %s.\n", student.Name)
		return nil
	}
	acts := player.SortForPlayback(r.Activities)
	if len(acts) == 0 {
		fmt.Fprintln(cli.out, "Today's routine has no activities.")
		return nil
	}
	fmt.Fprintf(cli.out, "%s's routine for %s: %d activities, planned by %s.\n", student.Name, r.DateOfRealization, len(acts), r.Creator.Name)

	cli.out = &lockedWriter{w: cli.out}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	queue := player.NewQueue(cli.api, cli.logger, queueSize, queueWorkers)
	queue.Start(context.Background()) // outlives the session: queued records still get posted
	defer queue.Close()

	sink := player.SinkFuncs{
		OnRecord: queue.Record,
		OnFinished: func() {
			fmt.Fprintln(cli.out, "Routine complete! Well done.")
		},
	}
	sess := player.NewSession(player.New(cli.clock, acts, sink), cli.render)

	runErr := make(chan error, 1)
	go func() { runErr <- sess.Run(ctx) }()

	sess.Start()
	input := lines(ctx, cli.in)
loop:
	for {
		select {
		case <-sess.Done():
			break loop
		case line, ok := <-input:
			if !ok {
				sess.Stop()
				break loop
			}
			switch strings.ToLower(line) {
			case "c", "complete":
				sess.Complete()
			case "s", "skip":
				sess.Skip()
			case "q", "quit":
				sess.Stop()
				break loop
			case "":
			default:
				fmt.Fprintln(cli.out, "c: complete, s: skip, q: quit")
			}
		}
	}

	if err = <-runErr; err != nil && errors.Cause(err) != context.Canceled {
		return err
	}
	return nil
}

// render is called from the session goroutine.
func (cli *commandLine) render(snap player.Snapshot) {
	if snap.State != player.Running {
		return
	}
	line := fmt.Sprintf("[%d/%d] %s", snap.Index+1, snap.Len, snap.Activity.Title)
	if snap.Total > 0 {
		line += fmt.Sprintf("  %s left  %s", formatSeconds(snap.Remaining), progressBar(snap.Progress, barWidth))
	}
	if snap.Next != nil {
		line += "  next: " + snap.Next.Title
	}
	fmt.Fprintln(cli.out, line)
}

// progressBar draws p, clamped to [0, 1], on width cells.
func progressBar(p float64, width int) string {
	p = math.Max(0, math.Min(1, p))
	filled := int(math.Round(p * float64(width)))
	return fmt.Sprintf("[%s%s] %3d%%", strings.Repeat("#", filled), strings.Repeat("-", width-filled), int(math.Round(p*100)))
}
