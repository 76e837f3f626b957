package history

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiffNoChanges(t *testing.T) {
	data := map[string]map[string]any{
		"General": {"Operator": "alice", "RunNumber": 7},
	}

	changes := Diff(data, data)
	assert.Empty(t, changes)
	assert.NotNil(t, changes)
}

func TestDiffChangedValue(t *testing.T) {
	oldData := map[string]map[string]any{"General": {"RunNumber": 7}}
	newData := map[string]map[string]any{"General": {"RunNumber": 8}}

	changes := Diff(oldData, newData)
	require.Len(t, changes, 1)
	assert.Equal(t, "General", changes[0].Section)
	assert.Equal(t, "RunNumber", changes[0].Field)
	require.NotNil(t, changes[0].OldValue)
	require.NotNil(t, changes[0].NewValue)
	assert.Equal(t, "7", *changes[0].OldValue)
	assert.Equal(t, "8", *changes[0].NewValue)
}

func TestDiffAddedField(t *testing.T) {
	oldData := map[string]map[string]any{"General": {}}
	newData := map[string]map[string]any{"General": {"Notes": "fresh"}}

	changes := Diff(oldData, newData)
	require.Len(t, changes, 1)
	assert.Nil(t, changes[0].OldValue)
	require.NotNil(t, changes[0].NewValue)
	assert.Equal(t, "fresh", *changes[0].NewValue)
}

func TestDiffRemovedField(t *testing.T) {
	oldData := map[string]map[string]any{"General": {"Notes": "gone"}}
	newData := map[string]map[string]any{"General": {}}

	changes := Diff(oldData, newData)
	require.Len(t, changes, 1)
	require.NotNil(t, changes[0].OldValue)
	assert.Equal(t, "gone", *changes[0].OldValue)
	assert.Nil(t, changes[0].NewValue)
}

func TestDiffNewSection(t *testing.T) {
	oldData := map[string]map[string]any{}
	newData := map[string]map[string]any{"Environment": {"Temperature": 21.5}}

	changes := Diff(oldData, newData)
	require.Len(t, changes, 1)
	assert.Equal(t, "Environment", changes[0].Section)
	assert.Nil(t, changes[0].OldValue)
}

func TestDiffNilValueTransitions(t *testing.T) {
	oldData := map[string]map[string]any{"S": {"F": nil}}
	newData := map[string]map[string]any{"S": {"F": "set"}}

	changes := Diff(oldData, newData)
	require.Len(t, changes, 1)
	assert.Nil(t, changes[0].OldValue)
	require.NotNil(t, changes[0].NewValue)

	// And no change when both snapshots hold nil.
	assert.Empty(t, Diff(oldData, oldData))
}

func TestDiffHandlesNilMaps(t *testing.T) {
	newData := map[string]map[string]any{"S": {"F": 1}}

	changes := Diff(nil, newData)
	require.Len(t, changes, 1)

	changes = Diff(newData, nil)
	require.Len(t, changes, 1)
	assert.Nil(t, changes[0].NewValue)
}
