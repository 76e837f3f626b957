package validation

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func raw(s string) json.RawMessage {
	return json.RawMessage(s)
}

const flatSchema = `{
	"sections": [
		{
			"title": "General",
			"fields": [
				{"name": "Operator", "type": "string"},
				{"name": "RunNumber", "type": "int"}
			]
		}
	]
}`

func TestValidateStrictAccepts(t *testing.T) {
	data := raw(`{"General": {"Operator": "alice", "RunNumber": 7}}`)

	result := ValidateStrict(raw(flatSchema), data)
	assert.True(t, result.Valid)
	assert.Empty(t, result.Errors)
}

func TestValidateStrictBareArrayRoot(t *testing.T) {
	schema := raw(`[
		{"title": "General", "fields": [{"name": "Operator", "type": "string"}]}
	]`)
	data := raw(`{"General": {"Operator": "alice"}}`)

	result := ValidateStrict(schema, data)
	assert.True(t, result.Valid)
}

func TestValidateStrictMissingSectionAlwaysErrors(t *testing.T) {
	// Even a section without required flags must be present.
	result := ValidateStrict(raw(flatSchema), raw(`{}`))
	require.False(t, result.Valid)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0].Message, "Missing section 'General'")
}

func TestValidateStrictEveryFieldRequired(t *testing.T) {
	data := raw(`{"General": {"Operator": "alice"}}`)

	result := ValidateStrict(raw(flatSchema), data)
	require.False(t, result.Valid)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "RunNumber", result.Errors[0].Field)
	assert.Contains(t, result.Errors[0].Message, "is missing")
}

func TestValidateStrictNullField(t *testing.T) {
	data := raw(`{"General": {"Operator": null, "RunNumber": 1}}`)

	result := ValidateStrict(raw(flatSchema), data)
	require.False(t, result.Valid)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0].Message, "cannot be null")
}

func TestValidateStrictIntegerStrictness(t *testing.T) {
	schema := raw(`{"sections": [{"title": "S", "fields": [{"name": "N", "type": "int"}]}]}`)

	result := ValidateStrict(schema, raw(`{"S": {"N": 42}}`))
	assert.True(t, result.Valid)

	result = ValidateStrict(schema, raw(`{"S": {"N": 42.5}}`))
	require.False(t, result.Valid)
	assert.Equal(t, "Expected integer value, got decimal", result.Errors[0].Message)

	result = ValidateStrict(schema, raw(`{"S": {"N": "42"}}`))
	require.False(t, result.Valid)
	assert.Equal(t, "Expected type 'number', got 'string'", result.Errors[0].Message)
}

func TestValidateStrictNumberField(t *testing.T) {
	schema := raw(`{"sections": [{"title": "S", "fields": [{"name": "N", "type": "float"}]}]}`)

	result := ValidateStrict(schema, raw(`{"S": {"N": 3.14}}`))
	assert.True(t, result.Valid)

	result = ValidateStrict(schema, raw(`{"S": {"N": true}}`))
	require.False(t, result.Valid)
	assert.Equal(t, "Expected type 'number', got 'bool'", result.Errors[0].Message)
}

func TestValidateStrictStringAcceptsCompositeValues(t *testing.T) {
	schema := raw(`{"sections": [{"title": "S", "fields": [{"name": "V", "type": "string"}]}]}`)

	for _, payload := range []string{
		`{"S": {"V": "plain"}}`,
		`{"S": {"V": ["a", "b"]}}`,
		`{"S": {"V": {"nested": true}}}`,
	} {
		result := ValidateStrict(schema, raw(payload))
		assert.True(t, result.Valid, "payload %s: %v", payload, result.Errors)
	}

	result := ValidateStrict(schema, raw(`{"S": {"V": 5}}`))
	require.False(t, result.Valid)
	assert.Equal(t, "Expected type 'string', got 'number'", result.Errors[0].Message)
}

func TestValidateStrictBoolField(t *testing.T) {
	schema := raw(`{"sections": [{"title": "S", "fields": [{"name": "B", "type": "bool"}]}]}`)

	result := ValidateStrict(schema, raw(`{"S": {"B": true}}`))
	assert.True(t, result.Valid)

	// Strings are not coerced in the strict dialect.
	result = ValidateStrict(schema, raw(`{"S": {"B": "true"}}`))
	require.False(t, result.Valid)
	assert.Equal(t, "Expected type 'boolean', got 'string'", result.Errors[0].Message)
}

func TestValidateStrictDateField(t *testing.T) {
	schema := raw(`{"sections": [{"title": "S", "fields": [{"name": "D", "type": "date"}]}]}`)

	for _, value := range []string{"2024-03-01", "2024-03-01T10:00:00Z", "01.03.2024", ""} {
		result := ValidateStrict(schema, raw(`{"S": {"D": "`+value+`"}}`))
		assert.True(t, result.Valid, "value %q: %v", value, result.Errors)
	}

	result := ValidateStrict(schema, raw(`{"S": {"D": "tomorrow"}}`))
	require.False(t, result.Valid)
	assert.Equal(t, "Invalid date format: 'tomorrow'", result.Errors[0].Message)

	result = ValidateStrict(schema, raw(`{"S": {"D": 20240301}}`))
	require.False(t, result.Valid)
	assert.Equal(t, "Expected type 'date', got 'number'", result.Errors[0].Message)
}

func TestValidateStrictUnknownTypeAcceptsAnything(t *testing.T) {
	schema := raw(`{"sections": [{"title": "S", "fields": [{"name": "X", "type": "spectrum"}]}]}`)

	result := ValidateStrict(schema, raw(`{"S": {"X": {"peaks": [1, 2, 3]}}}`))
	assert.True(t, result.Valid)
}

func TestValidateStrictCaseVariantKeys(t *testing.T) {
	schema := raw(`{"sections": [
		{"Title": "Upper", "Fields": [{"Name": "A", "Type": "int"}]},
		{"name": "Lower", "fields": [{"label": "B", "type": "string"}]}
	]}`)
	data := raw(`{"Upper": {"A": 1}, "Lower": {"B": "x"}}`)

	result := ValidateStrict(schema, data)
	assert.True(t, result.Valid, "errors: %v", result.Errors)
}

func TestValidateStrictCards(t *testing.T) {
	schema := raw(`{"sections": [
		{
			"title": "Measurements",
			"cards": [
				{
					"title": "Probe",
					"fields": [
						{"label": "Voltage", "type": "float"},
						{"label": "Current", "type": "float"}
					]
				},
				{
					"fields": [{"label": "Comment", "type": "string"}]
				}
			]
		}
	]}`)

	// Titled cards prefix the data key; an untitled card uses the bare label.
	data := raw(`{"Measurements": {
		"Probe - Voltage": 3.3,
		"Probe - Current": 0.12,
		"Comment": "stable"
	}}`)

	result := ValidateStrict(schema, data)
	assert.True(t, result.Valid, "errors: %v", result.Errors)

	missing := raw(`{"Measurements": {"Probe - Voltage": 3.3, "Comment": "stable"}}`)
	result = ValidateStrict(schema, missing)
	require.False(t, result.Valid)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "Probe - Current", result.Errors[0].Field)
}

func TestValidateStrictFlatFieldsWinOverCards(t *testing.T) {
	schema := raw(`{"sections": [
		{
			"title": "S",
			"fields": [{"name": "Flat", "type": "int"}],
			"cards": [{"title": "C", "fields": [{"label": "FromCard", "type": "int"}]}]
		}
	]}`)

	// Only the flat field is demanded; the card is ignored entirely.
	result := ValidateStrict(schema, raw(`{"S": {"Flat": 1}}`))
	assert.True(t, result.Valid, "errors: %v", result.Errors)
}

func TestValidateStrictVacuousRoots(t *testing.T) {
	data := raw(`{"Whatever": {"x": 1}}`)

	for _, schema := range []string{
		`null`,
		`"just a string"`,
		`123`,
		`{"no": "sections"}`,
		``,
		`{not even json`,
	} {
		result := ValidateStrict(raw(schema), data)
		assert.True(t, result.Valid, "schema %q", schema)
	}
}

func TestValidateStrictUnnamedSectionSkipped(t *testing.T) {
	schema := raw(`{"sections": [
		{"fields": [{"name": "Orphan", "type": "int"}]},
		{"title": "Named", "fields": [{"name": "A", "type": "int"}]}
	]}`)
	data := raw(`{"Named": {"A": 1}}`)

	result := ValidateStrict(schema, data)
	assert.True(t, result.Valid, "errors: %v", result.Errors)
}

func TestValidateStrictMalformedDataTreatedAsEmpty(t *testing.T) {
	result := ValidateStrict(raw(flatSchema), raw(`[1, 2, 3]`))
	require.False(t, result.Valid)
	assert.Contains(t, result.Errors[0].Message, "Missing section")
}

func TestValidateStrictAccumulatesErrors(t *testing.T) {
	schema := raw(`{"sections": [
		{"title": "A", "fields": [{"name": "x", "type": "int"}, {"name": "y", "type": "bool"}]},
		{"title": "B", "fields": [{"name": "z", "type": "string"}]}
	]}`)
	data := raw(`{"A": {"x": 1.5, "y": null}}`)

	result := ValidateStrict(schema, data)
	require.False(t, result.Valid)
	assert.Len(t, result.Errors, 3)
}

func TestValidateStrictIdempotent(t *testing.T) {
	data := raw(`{"General": {"RunNumber": 1.5}}`)

	first := ValidateStrict(raw(flatSchema), data)
	second := ValidateStrict(raw(flatSchema), data)
	assert.Equal(t, first, second)
}
