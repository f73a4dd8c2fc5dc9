// Package door is the demo machine driven by the tickfsm command: a door
// that opens and closes, with entry and exit actions counting visits.
package door

import (
	"log/slog"

	"github.com/comalice/tickfsm"
)

// ID names a door state.
type ID string

const (
	ClosedID ID = "closed"
	OpenID   ID = "open"
)

// Door is the machine context.
type Door struct {
	ClosedEntries int `json:"closed_entries" yaml:"closed_entries"`
	ClosedExits   int `json:"closed_exits" yaml:"closed_exits"`
	OpenEntries   int `json:"open_entries" yaml:"open_entries"`
	OpenExits     int `json:"open_exits" yaml:"open_exits"`

	// Logger receives entry and exit messages. Nil disables them.
	Logger *slog.Logger `json:"-" yaml:"-"`
}

func (d *Door) log(msg string, state ID) {
	if d.Logger != nil {
		d.Logger.Info(msg, slog.String("state", string(state)))
	}
}

type (
	// OpenEvent opens a closed door.
	OpenEvent struct{}
	// CloseEvent closes an open door.
	CloseEvent struct{}
	// ToggleEvent flips the door.
	ToggleEvent struct{}
)

type Closed struct{}

func (Closed) ID() ID { return ClosedID }

func (Closed) OnEnter(d *Door) {
	d.ClosedEntries++
	d.log("door closed", ClosedID)
}

func (Closed) OnExit(d *Door) { d.ClosedExits++ }

type Open struct{}

func (Open) ID() ID { return OpenID }

func (Open) OnEnter(d *Door) {
	d.OpenEntries++
	d.log("door opened", OpenID)
}

func (Open) OnExit(d *Door) { d.OpenExits++ }

var definition = build()

func build() *tickfsm.Definition[ID, Door] {
	b := tickfsm.NewBuilder[ID, Door]("door", tickfsm.Mixed).States(Closed{}, Open{})
	tickfsm.On(b, func(Closed, OpenEvent, *Door) tickfsm.State[ID] { return Open{} })
	tickfsm.On(b, func(Closed, CloseEvent, *Door) tickfsm.State[ID] { return nil })
	tickfsm.On(b, func(Open, OpenEvent, *Door) tickfsm.State[ID] { return nil })
	tickfsm.On(b, func(Open, CloseEvent, *Door) tickfsm.State[ID] { return Closed{} })
	tickfsm.OnAny(b, func(s tickfsm.State[ID], _ ToggleEvent, _ *Door) tickfsm.State[ID] {
		if s.ID() == OpenID {
			return Closed{}
		}
		return Open{}
	})
	return b.MustBuild()
}

// Definition returns the shared door definition.
func Definition() *tickfsm.Definition[ID, Door] {
	return definition
}

// Machine is a door state machine.
type Machine = tickfsm.Machine[ID, Door]

// New creates a closed door machine around d. It is not started.
func New(d *Door, opts ...tickfsm.Option) (*Machine, error) {
	return tickfsm.NewMachine(definition, d, Closed{}, opts...)
}
