package validation

import (
	"fmt"
	"strings"
)

// ValidateSimple checks measurement data against a flat section/field schema.
//
// Sections are processed in schema order. A section absent from the data is
// an error only when it declares at least one required field; per-field
// errors are not emitted for a wholly missing section. Optional fields may
// be absent or null. Unrecognized type names accept any value, so templates
// can carry forward-compatible custom types.
func ValidateSimple(schema []TemplateSection, data MeasurementData) Result {
	var errs []Error

	for _, section := range schema {
		sectionData, ok := data[section.Name]
		if !ok {
			if hasRequiredField(section) {
				errs = append(errs, Error{
					Section: section.Name,
					Field:   "",
					Message: fmt.Sprintf("Missing section '%s' with required fields", section.Name),
				})
			}
			continue
		}

		for _, field := range section.Fields {
			value, present := sectionData[field.Name]

			if !present {
				if field.Required {
					errs = append(errs, Error{
						Section: section.Name,
						Field:   field.Name,
						Message: fmt.Sprintf("Required field '%s' is missing", field.Name),
					})
				}
				continue
			}

			if value == nil {
				if field.Required {
					errs = append(errs, Error{
						Section: section.Name,
						Field:   field.Name,
						Message: fmt.Sprintf("Required field '%s' cannot be null", field.Name),
					})
				}
				continue
			}

			if msg := checkSimpleType(field.Type, value); msg != "" {
				errs = append(errs, Error{
					Section: section.Name,
					Field:   field.Name,
					Message: msg,
				})
			}
		}
	}

	return newResult(errs)
}

func hasRequiredField(section TemplateSection) bool {
	for _, f := range section.Fields {
		if f.Required {
			return true
		}
	}
	return false
}

// checkSimpleType returns an error message, or "" when the value conforms.
// Unknown type names accept anything.
func checkSimpleType(expectedType string, value any) string {
	switch strings.ToLower(expectedType) {
	case "int", "integer":
		if !isIntegral(value) {
			return fmt.Sprintf("Expected type 'int', got '%s'", goKindName(value))
		}
	case "float", "double", "number":
		if !isNumeric(value) {
			return fmt.Sprintf("Expected type 'float', got '%s'", goKindName(value))
		}
	case "string", "text", "multiline", "media":
		// Free-form/opaque values: no restriction.
	case "bool", "boolean":
		if !isBoolean(value) {
			return fmt.Sprintf("Expected type 'bool', got '%s'", goKindName(value))
		}
	case "date", "datetime":
		if !isDate(value) {
			return fmt.Sprintf("Expected type 'date', got '%s'", goKindName(value))
		}
	}
	return ""
}
