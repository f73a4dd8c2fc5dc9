package tickfsm_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/comalice/tickfsm"
)

type AlsoClosed struct{}

func (AlsoClosed) ID() DoorID { return ClosedID }

type Stuck struct{}

func (Stuck) ID() DoorID { return 99 }

type Trigger interface{ Fire() }

func TestBuildValidDefinitions(t *testing.T) {
	for _, b := range []*Builder[DoorID, Door]{mixedDoor(), mooreDoor(), mealyDoor()} {
		def, err := b.Build()
		require.NoError(t, err)
		assert.NotEmpty(t, def.StateIDs())
	}

	def := mixedDoor().MustBuild()
	assert.Equal(t, []DoorID{ClosedID, OpenID}, def.StateIDs())
	assert.Equal(t, Mixed, def.Policy())
	assert.Equal(t, "tickfsm_test.Open", def.StateName(OpenID))
	assert.Equal(t, "99", def.StateName(99))
	assert.True(t, def.Has(Closed{}))
	assert.False(t, def.Has(MealyClosed{}))
}

func TestDuplicateStateID(t *testing.T) {
	_, err := NewBuilder[DoorID, Door]("dup", Mealy).
		States(MealyClosed{}, MealyOpen{}, AlsoClosed{}).
		Build()
	require.Error(t, err)
	assert.True(t, IsDuplicateStateError(err))

	var dup *DuplicateStateError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "0", dup.ID)
	assert.Equal(t, "tickfsm_test.MealyClosed", dup.First)
	assert.Equal(t, "tickfsm_test.AlsoClosed", dup.Second)
}

func TestDuplicateStateType(t *testing.T) {
	_, err := NewBuilder[DoorID, Door]("dup", Mealy).
		States(MealyClosed{}, MealyClosed{}).
		Build()
	assert.True(t, IsDuplicateStateError(err))
}

func TestPolicyViolations(t *testing.T) {
	tests := []struct {
		name   string
		policy Policy
		states []State[DoorID]
	}{
		{"moore state without entry", Moore, []State[DoorID]{MealyClosed{}}},
		{"moore state with exit", Moore, []State[DoorID]{Closed{}}},
		{"mealy state with entry", Mealy, []State[DoorID]{MooreClosed{}}},
		{"mixed state without exit", Mixed, []State[DoorID]{MooreClosed{}}},
		{"mixed state without actions", Mixed, []State[DoorID]{MealyOpen{}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewBuilder[DoorID, Door]("p", tt.policy).States(tt.states...).Build()
			require.Error(t, err)
			assert.True(t, IsPolicyViolationError(err), "got %v", err)
		})
	}
}

func TestMooreRejectsMutableHandler(t *testing.T) {
	b := mooreDoor()
	On(b, func(MooreOpen, ToggleEvent, *Door) State[DoorID] { return MooreClosed{} })
	_, err := b.Build()
	require.Error(t, err)

	var pv *PolicyViolationError
	require.ErrorAs(t, err, &pv)
	assert.Equal(t, Moore, pv.Policy)
	assert.Contains(t, pv.Reason, "mutable")
}

func TestAmbiguousHandlers(t *testing.T) {
	t.Run("state and common scope", func(t *testing.T) {
		b := mealyDoor()
		On(b, func(MealyOpen, CloseEvent, *Door) State[DoorID] { return MealyClosed{} })
		_, err := b.Build()
		require.Error(t, err)

		var amb *AmbiguousHandlerError
		require.ErrorAs(t, err, &amb)
		assert.Equal(t, "tickfsm_test.MealyOpen", amb.State)
		assert.Equal(t, "tickfsm_test.CloseEvent", amb.Event)
	})

	t.Run("same state twice", func(t *testing.T) {
		b := mixedDoor()
		On(b, func(Closed, OpenEvent, *Door) State[DoorID] { return nil })
		_, err := b.Build()
		assert.True(t, IsAmbiguousHandlerError(err))
	})

	t.Run("common scope twice", func(t *testing.T) {
		b := mealyDoor()
		OnAnyView(b, func(State[DoorID], CloseEvent, Door) State[DoorID] { return nil })
		_, err := b.Build()
		assert.True(t, IsAmbiguousHandlerError(err))
	})
}

func TestAmbiguityErrorsFollowRegistrationOrder(t *testing.T) {
	build := func() error {
		b := NewBuilder[DoorID, Door]("order", Mealy).States(MealyClosed{}, MealyOpen{}, MealyLocked{})
		OnAny(b, func(State[DoorID], ToggleEvent, *Door) State[DoorID] { return nil })
		OnAny(b, func(State[DoorID], CloseEvent, *Door) State[DoorID] { return nil })
		On(b, func(MealyOpen, ToggleEvent, *Door) State[DoorID] { return nil })
		On(b, func(MealyLocked, CloseEvent, *Door) State[DoorID] { return nil })
		On(b, func(MealyClosed, ToggleEvent, *Door) State[DoorID] { return nil })
		_, err := b.Build()
		return err
	}

	first := build()
	require.Error(t, first)
	var amb *AmbiguousHandlerError
	require.ErrorAs(t, first, &amb)
	assert.Equal(t, "tickfsm_test.MealyOpen", amb.State, "first conflict in registration order")
	for range 20 {
		assert.Equal(t, first.Error(), build().Error())
	}
}

func TestHandlerForUnregisteredState(t *testing.T) {
	b := mealyDoor()
	On(b, func(Stuck, ToggleEvent, *Door) State[DoorID] { return nil })
	_, err := b.Build()
	assert.ErrorIs(t, err, ErrUnknownState)
}

func TestInvalidEventType(t *testing.T) {
	b := mealyDoor()
	On(b, func(MealyOpen, Trigger, *Door) State[DoorID] { return nil })
	_, err := b.Build()
	assert.ErrorIs(t, err, ErrInvalidEventType)
}

func TestBuildReportsAllErrors(t *testing.T) {
	b := NewBuilder[DoorID, Door]("broken", Policy(0)).States(nil)
	On[DoorID, Door, MealyOpen, ToggleEvent](b, nil)

	_, err := b.Build()
	require.Error(t, err)
	for _, want := range []error{ErrInvalidPolicy, ErrNoStates, ErrNilState, ErrNilHandler} {
		assert.True(t, errors.Is(err, want), "missing %v in %v", want, err)
	}
	assert.Contains(t, err.Error(), `definition "broken"`)
}

func TestMustBuildPanics(t *testing.T) {
	assert.Panics(t, func() {
		NewBuilder[DoorID, Door]("empty", Mixed).MustBuild()
	})
}

func TestPolicyTable(t *testing.T) {
	tests := []struct {
		policy               Policy
		entry, exit, mutable bool
	}{
		{Moore, true, false, false},
		{Mealy, false, false, true},
		{Mixed, true, true, true},
		{Policy(0), false, false, false},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.policy), func(t *testing.T) {
			assert.Equal(t, tt.entry, tt.policy.HasEntry())
			assert.Equal(t, tt.exit, tt.policy.HasExit())
			assert.Equal(t, tt.mutable, tt.policy.MutableContext())
		})
	}
}
