package serieslock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLockUnlockedSeries(t *testing.T) {
	now := time.Now()

	st, err := Lock(State{}, 42, now)
	require.NoError(t, err)
	assert.True(t, st.Locked)
	require.NotNil(t, st.LockedBy)
	assert.Equal(t, int64(42), *st.LockedBy)
	require.NotNil(t, st.LockedAt)
	assert.Equal(t, now, *st.LockedAt)
}

func TestLockAlreadyLocked(t *testing.T) {
	now := time.Now()
	locked, err := Lock(State{}, 1, now)
	require.NoError(t, err)

	st, err := Lock(locked, 2, now.Add(time.Minute))
	assert.ErrorIs(t, err, ErrAlreadyLocked)
	// The failed attempt must not change who holds the lock.
	assert.Equal(t, locked, st)
}

func TestUnlockLockedSeries(t *testing.T) {
	locked, err := Lock(State{}, 1, time.Now())
	require.NoError(t, err)

	st, err := Unlock(locked)
	require.NoError(t, err)
	assert.Equal(t, State{}, st)
}

func TestUnlockNotLocked(t *testing.T) {
	st, err := Unlock(State{})
	assert.ErrorIs(t, err, ErrNotLocked)
	assert.Equal(t, State{}, st)
}

func TestLockUnlockRoundTrip(t *testing.T) {
	st := State{}
	for i := 0; i < 3; i++ {
		locked, err := Lock(st, int64(i), time.Now())
		require.NoError(t, err)
		st, err = Unlock(locked)
		require.NoError(t, err)
		assert.Equal(t, State{}, st)
	}
}

func TestCanMutate(t *testing.T) {
	userID := int64(1)
	now := time.Now()
	locked := State{Locked: true, LockedBy: &userID, LockedAt: &now}

	tests := []struct {
		name string
		st   State
		role string
		want bool
	}{
		{"student on unlocked", State{}, RoleStudent, true},
		{"staff on unlocked", State{}, RoleStaff, true},
		{"student on locked", locked, RoleStudent, false},
		{"staff on locked", locked, RoleStaff, true},
		{"unknown role on unlocked", State{}, "Visitor", true},
		{"unknown role on locked", locked, "Visitor", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, CanMutate(tc.st, tc.role))
		})
	}
}
