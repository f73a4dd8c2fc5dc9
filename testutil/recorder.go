package testutil

import (
	"sync"

	"github.com/comalice/tickfsm"
)

// Recorder is a tickfsm.Observer that keeps every transition it sees.
type Recorder struct {
	mu      sync.Mutex
	records []tickfsm.TransitionRecord
}

func (r *Recorder) OnTransition(rec tickfsm.TransitionRecord) {
	r.mu.Lock()
	r.records = append(r.records, rec)
	r.mu.Unlock()
}

// Records returns a copy of the recorded transitions.
func (r *Recorder) Records() []tickfsm.TransitionRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]tickfsm.TransitionRecord(nil), r.records...)
}

// Path returns the visited state ids: the first From followed by every To.
func (r *Recorder) Path() []any {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.records) == 0 {
		return nil
	}
	path := []any{r.records[0].From}
	for _, rec := range r.records {
		path = append(path, rec.To)
	}
	return path
}

// Len returns the number of recorded transitions.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}

// Reset drops all records.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.records = nil
	r.mu.Unlock()
}
