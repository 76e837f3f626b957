// Package history computes field-level diffs between measurement data
// snapshots for the measurement history view.
package history

import "fmt"

// FieldChange records one field that differs between two snapshots. A nil
// OldValue means the field was added; a nil NewValue means it was removed.
type FieldChange struct {
	Section  string  `json:"section"`
	Field    string  `json:"field"`
	OldValue *string `json:"oldValue"`
	NewValue *string `json:"newValue"`
}

// Diff compares two measurement data snapshots and returns the per-field
// changes. Values are compared by their string form, matching how the
// history view renders them.
func Diff(oldData, newData map[string]map[string]any) []FieldChange {
	changes := []FieldChange{}

	for sectionName, newFields := range newData {
		oldFields := oldData[sectionName]
		for fieldName, newRaw := range newFields {
			newValue := stringify(newRaw)
			var oldValue *string
			if oldFields != nil {
				if oldRaw, ok := oldFields[fieldName]; ok {
					oldValue = stringify(oldRaw)
				}
			}
			if !equal(oldValue, newValue) {
				changes = append(changes, FieldChange{
					Section:  sectionName,
					Field:    fieldName,
					OldValue: oldValue,
					NewValue: newValue,
				})
			}
		}
	}

	// Fields present in the old snapshot but removed from the new one.
	for sectionName, oldFields := range oldData {
		newFields := newData[sectionName]
		for fieldName, oldRaw := range oldFields {
			if newFields != nil {
				if _, ok := newFields[fieldName]; ok {
					continue
				}
			}
			changes = append(changes, FieldChange{
				Section:  sectionName,
				Field:    fieldName,
				OldValue: stringify(oldRaw),
				NewValue: nil,
			})
		}
	}

	return changes
}

func stringify(v any) *string {
	if v == nil {
		return nil
	}
	s := fmt.Sprint(v)
	return &s
}

func equal(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
