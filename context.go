package tickfsm

import "sync"

// The extended state of a machine is the caller's own value of type C, held
// by pointer. Entry and exit actions always receive *C. Handlers registered
// with On or OnAny receive *C; handlers registered with OnView or OnAnyView
// receive a copy of C, which is the only form a Moore machine accepts.
//
// A copy is read-only only as deep as C is: pointers, maps and slices inside
// C still alias the machine's context.

type nopLocker struct{}

func (nopLocker) Lock()   {}
func (nopLocker) Unlock() {}

// NopLocker is the default guard. It is correct only when every call on the
// machine comes from one execution context.
var NopLocker sync.Locker = nopLocker{}
