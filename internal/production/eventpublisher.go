package production

import (
	"sync"
	"sync/atomic"

	"github.com/comalice/tickfsm"
)

// ChannelPublisher is a transition observer that forwards records to a Go
// channel. Publishing never blocks the dispatching goroutine: records are
// dropped when the channel is full, and counted.
type ChannelPublisher struct {
	mu      sync.RWMutex
	ch      chan<- tickfsm.TransitionRecord
	closed  bool
	dropped atomic.Uint64
}

// NewChannelPublisher creates a ChannelPublisher with the given output channel.
func NewChannelPublisher(ch chan<- tickfsm.TransitionRecord) *ChannelPublisher {
	return &ChannelPublisher{ch: ch}
}

// OnTransition implements tickfsm.Observer.
func (p *ChannelPublisher) OnTransition(rec tickfsm.TransitionRecord) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return
	}
	select {
	case p.ch <- rec:
	default:
		p.dropped.Add(1)
	}
}

// Dropped returns how many records were discarded because the channel was full.
func (p *ChannelPublisher) Dropped() uint64 {
	return p.dropped.Load()
}

// Close closes the output channel. Later transitions are ignored.
func (p *ChannelPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.closed {
		p.closed = true
		close(p.ch)
	}
	return nil
}
