// Package ordering holds the rules shared by every ordered list in the app:
// a teacher's activity library and a routine's activities.
package ordering

import (
	"math"
	"sort"

	"github.com/pkg/errors"

	"github.com/rotinas-pei/backend/core"
)

var (
	ErrEmptyList     = errors.New("the list of ids cannot be empty")
	ErrDuplicateIDs  = errors.New("the list of ids contains duplicates")
	ErrMembersDiffer = errors.New("the list of ids does not match the current members")
)

// ValidatePermutation checks that ids is a full permutation of members:
// same cardinality, no duplicates, no missing and no foreign ids.
func ValidatePermutation(ids, members []string) error {
	if len(ids) == 0 {
		return core.NewValidationError(ErrEmptyList)
	}

	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			return core.NewValidationError(ErrDuplicateIDs)
		}
		seen[id] = struct{}{}
	}

	if len(ids) != len(members) {
		return core.NewValidationError(ErrMembersDiffer)
	}
	for _, id := range members {
		if _, ok := seen[id]; !ok {
			return core.NewValidationError(ErrMembersDiffer)
		}
	}
	return nil
}

// Key returns the sort key of an optional order: missing orders sort last.
func Key(order *int) int {
	if order == nil {
		return math.MaxInt64
	}
	return *order
}

// SortStable sorts items ascending by their order key, missing orders last.
// Items with equal keys keep their relative position.
func SortStable(n int, order func(i int) *int, swap func(i, j int)) {
	sort.Stable(sorter{n: n, order: order, swap: swap})
}

type sorter struct {
	n     int
	order func(i int) *int
	swap  func(i, j int)
}

func (s sorter) Len() int           { return s.n }
func (s sorter) Less(i, j int) bool { return Key(s.order(i)) < Key(s.order(j)) }
func (s sorter) Swap(i, j int)      { s.swap(i, j) }

// Move returns a copy of ids where the element at index from has been moved to index to.
// It is the permutation produced by a drag-and-drop gesture.
func Move(ids []string, from, to int) ([]string, error) {
	if from < 0 || from >= len(ids) || to < 0 || to >= len(ids) {
		return nil, errors.Errorf("move %d -> %d out of range [0, %d)", from, to, len(ids))
	}
	out := make([]string, 0, len(ids))
	moved := ids[from]
	for i, id := range ids {
		if i == from {
			continue
		}
		out = append(out, id)
	}
	out = append(out, "")
	copy(out[to+1:], out[to:])
	out[to] = moved
	return out, nil
}
