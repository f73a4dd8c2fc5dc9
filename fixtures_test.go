package tickfsm_test

import (
	"github.com/comalice/tickfsm"
)

type DoorID int

const (
	ClosedID DoorID = iota
	OpenID
	LockedID
)

type Door struct {
	ClosedEntries int
	ClosedExits   int
	OpenEntries   int
	OpenExits     int
	Toggles       int
}

type OpenEvent struct{}
type CloseEvent struct{}
type ToggleEvent struct{}
type LockEvent struct{ Code int }

// Mixed-policy states: entry and exit actions.

type Closed struct{}

func (Closed) ID() DoorID      { return ClosedID }
func (Closed) OnEnter(d *Door) { d.ClosedEntries++ }
func (Closed) OnExit(d *Door)  { d.ClosedExits++ }

type Open struct{}

func (Open) ID() DoorID      { return OpenID }
func (Open) OnEnter(d *Door) { d.OpenEntries++ }
func (Open) OnExit(d *Door)  { d.OpenExits++ }

// Moore-policy states: entry actions only.

type MooreClosed struct{}

func (MooreClosed) ID() DoorID      { return ClosedID }
func (MooreClosed) OnEnter(d *Door) { d.ClosedEntries++ }

type MooreOpen struct{}

func (MooreOpen) ID() DoorID      { return OpenID }
func (MooreOpen) OnEnter(d *Door) { d.OpenEntries++ }

// Mealy-policy states: no actions.

type MealyClosed struct{}

func (MealyClosed) ID() DoorID { return ClosedID }

type MealyOpen struct{}

func (MealyOpen) ID() DoorID { return OpenID }

type MealyLocked struct{ Code int }

func (MealyLocked) ID() DoorID { return LockedID }

func mixedDoor() *tickfsm.Builder[DoorID, Door] {
	b := tickfsm.NewBuilder[DoorID, Door]("door", tickfsm.Mixed).States(Closed{}, Open{})
	tickfsm.On(b, func(Closed, OpenEvent, *Door) tickfsm.State[DoorID] { return Open{} })
	tickfsm.On(b, func(Closed, CloseEvent, *Door) tickfsm.State[DoorID] { return nil })
	tickfsm.On(b, func(Open, CloseEvent, *Door) tickfsm.State[DoorID] { return Closed{} })
	tickfsm.On(b, func(Open, OpenEvent, *Door) tickfsm.State[DoorID] { return nil })
	return b
}

func mooreDoor() *tickfsm.Builder[DoorID, Door] {
	b := tickfsm.NewBuilder[DoorID, Door]("moore-door", tickfsm.Moore).States(MooreClosed{}, MooreOpen{})
	tickfsm.OnView(b, func(MooreClosed, OpenEvent, Door) tickfsm.State[DoorID] { return MooreOpen{} })
	tickfsm.OnView(b, func(MooreClosed, CloseEvent, Door) tickfsm.State[DoorID] { return nil })
	tickfsm.OnView(b, func(MooreOpen, CloseEvent, Door) tickfsm.State[DoorID] { return MooreClosed{} })
	tickfsm.OnView(b, func(MooreOpen, OpenEvent, Door) tickfsm.State[DoorID] { return nil })
	return b
}

func mealyDoor() *tickfsm.Builder[DoorID, Door] {
	b := tickfsm.NewBuilder[DoorID, Door]("mealy-door", tickfsm.Mealy).
		States(MealyClosed{}, MealyOpen{}, MealyLocked{})
	tickfsm.On(b, func(_ MealyClosed, _ ToggleEvent, d *Door) tickfsm.State[DoorID] {
		d.Toggles++
		return MealyOpen{}
	})
	tickfsm.On(b, func(_ MealyOpen, _ ToggleEvent, d *Door) tickfsm.State[DoorID] {
		d.Toggles++
		return MealyClosed{}
	})
	tickfsm.On(b, func(_ MealyClosed, e LockEvent, _ *Door) tickfsm.State[DoorID] {
		return MealyLocked{Code: e.Code}
	})
	// Any unlocked state falls back to the common handler.
	tickfsm.OnAny(b, func(s tickfsm.State[DoorID], _ CloseEvent, _ *Door) tickfsm.State[DoorID] {
		if s.ID() == OpenID {
			return MealyClosed{}
		}
		return nil
	})
	return b
}
