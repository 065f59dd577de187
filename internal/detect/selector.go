package detect

import (
	"errors"

	"github.com/seenimoa/gproverlay/pkg/models"
)

// ErrNoEvents is returned when selection is attempted on an empty event
// list. It is an explicit outcome, not a generic failure: the caller
// decides how to proceed.
var ErrNoEvents = errors.New("no events available for selection")

// SelectForDate picks the single event most relevant to the target date.
//
// The rule is a total order, applied in steps:
//  1. Restrict to spike-type events when any exist; episodes/regimes are
//     considered only when the list holds no spikes at all.
//  2. Prefer events whose [start, end] window contains the target date;
//     among those, higher severity wins, ties broken by the later peak date.
//  3. Otherwise pick the event whose peak is closest (absolute days) to the
//     target; ties broken by higher severity, then by the later peak date.
//
// Missing severities compare as the worst case 1.0, consistent with how
// downstream consumers score them.
func SelectForDate(events []models.Event, target models.Day) (models.Event, error) {
	if len(events) == 0 {
		return models.Event{}, ErrNoEvents
	}

	working := spikesOnly(events)
	if len(working) == 0 {
		working = events
	}

	var contained []models.Event
	for _, e := range working {
		if e.Contains(target) {
			contained = append(contained, e)
		}
	}

	if len(contained) > 0 {
		best := contained[0]
		for _, e := range contained[1:] {
			if containmentLess(best, e) {
				best = e
			}
		}
		return best, nil
	}

	best := working[0]
	for _, e := range working[1:] {
		if distanceLess(best, e, target) {
			best = e
		}
	}
	return best, nil
}

func spikesOnly(events []models.Event) []models.Event {
	var out []models.Event
	for _, e := range events {
		if e.EventType.IsSpike() {
			out = append(out, e)
		}
	}
	return out
}

// containmentLess reports whether b beats a among window-containing events:
// higher severity first, then the later peak date.
func containmentLess(a, b models.Event) bool {
	sa, _ := a.Severity()
	sb, _ := b.Severity()
	if sa != sb {
		return sb > sa
	}
	return b.PeakDate.After(a.PeakDate.Time)
}

// distanceLess reports whether b beats a on peak-date proximity to the
// target: smaller distance first, then higher severity, then the later peak.
func distanceLess(a, b models.Event, target models.Day) bool {
	da := absInt(a.PeakDate.DaysUntil(target))
	db := absInt(b.PeakDate.DaysUntil(target))
	if da != db {
		return db < da
	}
	sa, _ := a.Severity()
	sb, _ := b.Severity()
	if sa != sb {
		return sb > sa
	}
	return b.PeakDate.After(a.PeakDate.Time)
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
