package client

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestApplyReorder(t *testing.T) {
	ctx := context.Background()
	server := []string{"a", "b", "c"}
	errRejected := &APIError{StatusCode: 400, Message: "the list of ids does not match the current members"}

	accept := func(_ context.Context, ids []string) error {
		server = append([]string(nil), ids...)
		return nil
	}
	reject := func(context.Context, []string) error { return errRejected }
	refetch := func(context.Context) ([]string, error) { return append([]string(nil), server...), nil }
	refetchFails := func(context.Context) ([]string, error) { return nil, errors.New("offline") }

	t.Run("accepted", func(t *testing.T) {
		got, err := ApplyReorder(ctx, []string{"a", "b", "c"}, 2, 0, accept, refetch)
		assert.NoError(t, err)
		assert.Equal(t, []string{"c", "a", "b"}, got)
		assert.Equal(t, []string{"c", "a", "b"}, server)
	})

	t.Run("rejected: server order wins", func(t *testing.T) {
		// the local copy is stale
		got, err := ApplyReorder(ctx, []string{"a", "b", "c"}, 0, 2, reject, refetch)
		assert.Equal(t, errRejected, err)
		assert.Equal(t, []string{"c", "a", "b"}, got)
	})

	t.Run("rejected and offline", func(t *testing.T) {
		local := []string{"c", "a", "b"}
		got, err := ApplyReorder(ctx, local, 0, 1, reject, refetchFails)
		assert.Equal(t, errRejected, errors.Cause(err))
		assert.Equal(t, local, got)
	})

	t.Run("out of range", func(t *testing.T) {
		submitted := false
		submit := func(context.Context, []string) error { submitted = true; return nil }
		got, err := ApplyReorder(ctx, []string{"a"}, 0, 3, submit, refetch)
		assert.Error(t, err)
		assert.Equal(t, []string{"a"}, got)
		assert.False(t, submitted)
	})
}
