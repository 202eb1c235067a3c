package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/rotinas-pei/backend/apps/client"
	"github.com/rotinas-pei/backend/core"
	"github.com/rotinas-pei/backend/core/activity"
	"github.com/rotinas-pei/backend/core/player"
)

func (cli *commandLine) reorderLibrary(ctx context.Context, from, to int) error {
	acts, err := cli.api.Library(ctx)
	if err != nil {
		return err
	}
	titles := titlesByID(acts)

	refetch := func(ctx context.Context) ([]string, error) {
		acts, err := cli.api.Library(ctx)
		if err != nil {
			return nil, err
		}
		return ids(acts), nil
	}
	order, err := client.ApplyReorder(ctx, ids(acts), from, to, cli.api.ReorderLibrary, refetch)
	cli.printOrder(order, titles)
	return err
}

func (cli *commandLine) reorderRoutine(ctx context.Context, studentID, routineID string, from, to int) error {
	fetch := func(ctx context.Context) ([]activity.Activity, error) {
		_, routines, err := cli.api.Routines(ctx, studentID, core.Date{})
		if err != nil {
			return nil, err
		}
		for _, r := range routines {
			if r.ID == routineID {
				return player.SortForPlayback(r.Activities), nil
			}
		}
		return nil, errors.Errorf("routine %s not found", routineID)
	}

	acts, err := fetch(ctx)
	if err != nil {
		return err
	}
	titles := titlesByID(acts)

	submit := func(ctx context.Context, ids []string) error {
		return cli.api.ReorderRoutine(ctx, routineID, ids)
	}
	refetch := func(ctx context.Context) ([]string, error) {
		acts, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		return ids(acts), nil
	}
	order, err := client.ApplyReorder(ctx, ids(acts), from, to, submit, refetch)
	cli.printOrder(order, titles)
	return err
}

func (cli *commandLine) printOrder(order []string, titles map[string]string) {
	lines := make([]string, 0, len(order))
	for i, id := range order {
		title, ok := titles[id]
		if !ok {
			title = id
		}
		lines = append(lines, fmt.Sprintf("%d. %s", i, title))
	}
	fmt.Fprintln(cli.out, strings.Join(lines, "\n"))
}

func ids(acts []activity.Activity) []string {
	out := make([]string, 0, len(acts))
	for _, act := range acts {
		out = append(out, act.ID)
	}
	return out
}

func titlesByID(acts []activity.Activity) map[string]string {
	titles := make(map[string]string, len(acts))
	for _, act := range acts {
		titles[act.ID] = act.Title
	}
	return titles
}
