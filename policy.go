package tickfsm

// Policy selects where a machine's side effects live.
//
//	Policy  Entry  Exit  Handler context
//	Moore   yes    no    read-only copy
//	Mealy   no     no    mutable pointer
//	Mixed   yes    yes   mutable pointer
type Policy uint8

const (
	// Moore machines derive side effects from state identity via entry actions.
	Moore Policy = iota + 1
	// Mealy machines derive side effects from transitions; handlers mutate the context.
	Mealy
	// Mixed machines allow entry actions, exit actions and mutating handlers.
	Mixed
)

// HasEntry reports whether entry actions run under p.
func (p Policy) HasEntry() bool {
	return p == Moore || p == Mixed
}

// HasExit reports whether exit actions run under p.
func (p Policy) HasExit() bool {
	return p == Mixed
}

// MutableContext reports whether handlers may receive a mutable context.
func (p Policy) MutableContext() bool {
	return p == Mealy || p == Mixed
}

func (p Policy) valid() bool {
	return p >= Moore && p <= Mixed
}

func (p Policy) String() string {
	switch p {
	case Moore:
		return "moore"
	case Mealy:
		return "mealy"
	case Mixed:
		return "mixed"
	default:
		return "invalid"
	}
}
