package realtime

import (
	"sort"
)

// EventWithMeta adds routing and sequencing metadata to a queued event.
type EventWithMeta struct {
	Target      string
	Event       any
	SequenceNum uint64
	Priority    int
}

// sortEvents orders events deterministically.
func sortEvents(events []EventWithMeta) {
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].Priority != events[j].Priority {
			return events[i].Priority > events[j].Priority
		}
		return events[i].SequenceNum < events[j].SequenceNum
	})
}
