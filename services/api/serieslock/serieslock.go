// Package serieslock holds the pure lock state machine for measurement
// series. Role checks for who may call Lock/Unlock live with the callers;
// this package only decides whether a transition is legal and what the
// resulting state looks like.
package serieslock

import (
	"errors"
	"time"
)

// Known user roles. Roles are opaque strings issued by the auth layer;
// RoleStaff is the elevated role that may lock series and mutate locked ones.
const (
	RoleStudent = "Student"
	RoleStaff   = "Staff"
)

// ErrAlreadyLocked is returned by Lock when the series is locked.
var ErrAlreadyLocked = errors.New("series is already locked")

// ErrNotLocked is returned by Unlock when the series is not locked.
var ErrNotLocked = errors.New("series is not locked")

// State is the lock state of a measurement series. The zero value is the
// unlocked state. Invariant: when Locked is false, LockedBy and LockedAt
// are nil.
type State struct {
	Locked   bool
	LockedBy *int64
	LockedAt *time.Time
}

// Lock transitions an unlocked series to locked, recording who and when.
// Locking an already-locked series fails with ErrAlreadyLocked and leaves
// the state unchanged.
func Lock(st State, userID int64, now time.Time) (State, error) {
	if st.Locked {
		return st, ErrAlreadyLocked
	}
	return State{Locked: true, LockedBy: &userID, LockedAt: &now}, nil
}

// Unlock transitions a locked series back to the unlocked zero state.
// Unlocking an unlocked series fails with ErrNotLocked.
func Unlock(st State) (State, error) {
	if !st.Locked {
		return st, ErrNotLocked
	}
	return State{}, nil
}

// CanMutate reports whether a user with the given role may mutate
// measurements (and their images) in a series with this lock state.
//
// This is an advisory check only: it is not linearized against concurrent
// lock transitions, so writers must rely on the storage layer's guarded
// update as the authoritative gate.
func CanMutate(st State, role string) bool {
	return !st.Locked || role == RoleStaff
}
