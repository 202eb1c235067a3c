package player

import (
	"time"

	"github.com/rotinas-pei/backend/core"
	"github.com/rotinas-pei/backend/core/activity"
	"github.com/rotinas-pei/backend/core/ordering"
	"github.com/rotinas-pei/backend/core/routine"
)

// SortForPlayback returns a copy of acts sorted by order, activities without an order last.
func SortForPlayback(acts []activity.Activity) []activity.Activity {
	sorted := make([]activity.Activity, len(acts))
	copy(sorted, acts)
	ordering.SortStable(
		len(sorted),
		func(i int) *int { return sorted[i].Order },
		func(i, j int) { sorted[i], sorted[j] = sorted[j], sorted[i] },
	)
	return sorted
}

// TodayRoutine returns the first routine planned for now's calendar day, in now's location.
func TodayRoutine(routines []routine.Routine, now time.Time) (routine.Routine, bool) {
	today := core.DateOf(now)
	for _, r := range routines {
		if r.DateOfRealization.Equal(today) {
			return r, true
		}
	}
	return routine.Routine{}, false
}
