package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func simpleSchema() []TemplateSection {
	return []TemplateSection{
		{
			Name: "General",
			Fields: []TemplateField{
				{Name: "Operator", Type: "string", Required: true},
				{Name: "RunNumber", Type: "int", Required: true},
				{Name: "Notes", Type: "text", Required: false},
			},
		},
		{
			Name: "Environment",
			Fields: []TemplateField{
				{Name: "Temperature", Type: "float", Required: true},
				{Name: "Sampled", Type: "bool", Required: false},
				{Name: "SampledAt", Type: "date", Required: false},
			},
		},
	}
}

func TestValidateSimpleAccepts(t *testing.T) {
	data := MeasurementData{
		"General": {
			"Operator":  "alice",
			"RunNumber": 7,
		},
		"Environment": {
			"Temperature": 21.5,
			"Sampled":     true,
			"SampledAt":   "2024-03-01",
		},
	}

	result := ValidateSimple(simpleSchema(), data)
	assert.True(t, result.Valid)
	assert.Empty(t, result.Errors)
}

func TestValidateSimpleMissingSection(t *testing.T) {
	data := MeasurementData{
		"General": {
			"Operator":  "alice",
			"RunNumber": 7,
		},
	}

	result := ValidateSimple(simpleSchema(), data)
	require.False(t, result.Valid)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "Environment", result.Errors[0].Section)
	assert.Contains(t, result.Errors[0].Message, "Missing section 'Environment'")
}

func TestValidateSimpleMissingOptionalOnlySection(t *testing.T) {
	schema := []TemplateSection{
		{
			Name: "Optional",
			Fields: []TemplateField{
				{Name: "Remark", Type: "string", Required: false},
			},
		},
	}

	result := ValidateSimple(schema, MeasurementData{})
	assert.True(t, result.Valid)
}

func TestValidateSimpleRequiredField(t *testing.T) {
	data := MeasurementData{
		"General": {
			"Operator": "alice",
		},
		"Environment": {
			"Temperature": 20.0,
		},
	}

	result := ValidateSimple(simpleSchema(), data)
	require.False(t, result.Valid)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "RunNumber", result.Errors[0].Field)
	assert.Contains(t, result.Errors[0].Message, "is missing")
}

func TestValidateSimpleRequiredNull(t *testing.T) {
	data := MeasurementData{
		"General": {
			"Operator":  nil,
			"RunNumber": 1,
		},
		"Environment": {
			"Temperature": 20.0,
		},
	}

	result := ValidateSimple(simpleSchema(), data)
	require.False(t, result.Valid)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0].Message, "cannot be null")
}

func TestValidateSimpleOptionalNullAccepted(t *testing.T) {
	data := MeasurementData{
		"General": {
			"Operator":  "alice",
			"RunNumber": 1,
			"Notes":     nil,
		},
		"Environment": {
			"Temperature": 20.0,
			"Sampled":     nil,
		},
	}

	result := ValidateSimple(simpleSchema(), data)
	assert.True(t, result.Valid)
}

func TestValidateSimpleTypeChecks(t *testing.T) {
	tests := []struct {
		name      string
		fieldType string
		value     any
		valid     bool
	}{
		{"int ok", "int", 42, true},
		{"int from integral float", "int", 42.0, true},
		{"int from string", "int", "42", true},
		{"int rejects decimal", "int", 42.5, false},
		{"int rejects word", "int", "forty-two", false},
		{"float ok", "float", 3.14, true},
		{"float from int", "float", 3, true},
		{"float from string", "float", "3.14", true},
		{"float rejects word", "float", "pi", false},
		{"number alias", "number", 1.5, true},
		{"string accepts anything", "string", 12345, true},
		{"text accepts anything", "text", true, true},
		{"bool ok", "bool", true, true},
		{"bool from string", "bool", "true", true},
		{"bool rejects number", "bool", 1.0, false},
		{"date iso", "date", "2024-03-01", true},
		{"date rfc3339", "date", "2024-03-01T10:00:00Z", true},
		{"date german", "date", "01.03.2024", true},
		{"date rejects garbage", "date", "not-a-date", false},
		{"unknown type accepts anything", "wavelength", map[string]any{"nm": 532}, true},
		{"case insensitive type name", "INT", 7, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			schema := []TemplateSection{{
				Name:   "S",
				Fields: []TemplateField{{Name: "F", Type: tc.fieldType, Required: true}},
			}}
			result := ValidateSimple(schema, MeasurementData{"S": {"F": tc.value}})
			assert.Equal(t, tc.valid, result.Valid, "errors: %v", result.Errors)
		})
	}
}

func TestValidateSimpleAccumulatesErrors(t *testing.T) {
	data := MeasurementData{
		"General": {
			"Operator":  nil,
			"RunNumber": "not a number",
		},
	}

	result := ValidateSimple(simpleSchema(), data)
	require.False(t, result.Valid)
	// One null, one type error, one missing required section.
	assert.Len(t, result.Errors, 3)
}

func TestValidateSimpleIdempotent(t *testing.T) {
	data := MeasurementData{
		"General": {"RunNumber": 1.5},
	}

	first := ValidateSimple(simpleSchema(), data)
	second := ValidateSimple(simpleSchema(), data)
	assert.Equal(t, first, second)
}

func TestValidateSimpleEmptySchema(t *testing.T) {
	result := ValidateSimple(nil, MeasurementData{"Anything": {"x": 1}})
	assert.True(t, result.Valid)
	assert.NotNil(t, result.Errors)
}
