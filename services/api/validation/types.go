// Package validation checks measurement payloads against template schemas.
//
// Two dialects exist and are kept deliberately separate: the simple dialect
// works on decoded request DTOs (flat section/field lists), while the strict
// dialect works on the raw template JSON as stored, including case-variant
// keys and card groupings. Their edge-case policies differ on purpose; see
// the per-function contracts.
package validation

// TemplateField defines a single field within a template section.
type TemplateField struct {
	Name         string  `json:"name"`
	Type         string  `json:"type"` // "int", "float", "string", "date", "bool", ...
	Required     bool    `json:"required"`
	Description  *string `json:"description,omitempty"`
	DefaultValue any     `json:"defaultValue,omitempty"`
}

// TemplateSection defines a named group of fields in a template.
type TemplateSection struct {
	Name        string          `json:"name"`
	Description *string         `json:"description,omitempty"`
	Fields      []TemplateField `json:"fields"`
}

// MeasurementData maps section name -> field name -> value.
type MeasurementData map[string]map[string]any

// Error describes a single validation failure for a section/field pair.
type Error struct {
	Section string `json:"section"`
	Field   string `json:"field"`
	Message string `json:"error"`
}

// Result is the outcome of a validation run. Valid is true exactly when
// Errors is empty.
type Result struct {
	Valid  bool    `json:"isValid"`
	Errors []Error `json:"errors"`
}

func newResult(errs []Error) Result {
	if errs == nil {
		errs = []Error{}
	}
	return Result{Valid: len(errs) == 0, Errors: errs}
}
