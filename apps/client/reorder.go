package client

import (
	"context"

	"github.com/pkg/errors"

	"github.com/rotinas-pei/backend/core/ordering"
)

// ApplyReorder moves the id at index from to index to, optimistically, and submits the new order.
// It returns the order to display: the new one on success. On failure the local permutation is
// discarded and the server order is refetched and returned along with the submit error.
func ApplyReorder(
	ctx context.Context,
	ids []string,
	from, to int,
	submit func(ctx context.Context, ids []string) error,
	refetch func(ctx context.Context) ([]string, error),
) ([]string, error) {
	moved, err := ordering.Move(ids, from, to)
	if err != nil {
		return ids, err
	}

	submitErr := submit(ctx, moved)
	if submitErr == nil {
		return moved, nil
	}

	current, err := refetch(ctx)
	if err != nil {
		return ids, errors.Wrapf(submitErr, "refetching failed (%v)", err)
	}
	return current, submitErr
}
