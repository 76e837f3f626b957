package validation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// strictField is a field discovered in an on-disk template schema, keyed by
// the name under which its value appears in the measurement data.
type strictField struct {
	Key  string
	Type string
}

// ValidateStrict checks measurement data against the raw template schema
// JSON as stored. Every discovered field is treated as required, and a
// schema section absent from the data is always an error, regardless of
// required flags. This dialect is stricter than ValidateSimple on both
// counts.
//
// The schema root may be a bare section array or an object carrying a
// "sections" key. Any other root shape is vacuously valid: legacy and empty
// schemas cannot be validated and must not reject writes. Faults while
// inspecting a malformed fragment are reported as validation errors for
// that field, never propagated.
func ValidateStrict(schemaDoc, dataDoc json.RawMessage) Result {
	sections, ok := schemaSections(decodeValue(schemaDoc))
	if !ok {
		return newResult(nil)
	}

	data := asObject(decodeValue(dataDoc))

	var errs []Error
	for _, rawSection := range sections {
		section, ok := rawSection.(map[string]any)
		if !ok {
			continue
		}

		name, ok := lookupString(section, "title", "Title", "name", "Name")
		if !ok {
			// A section with no resolvable name cannot be matched against
			// data; skip it rather than failing the whole document.
			continue
		}

		sectionValue, present := data[name]
		if !present {
			errs = append(errs, Error{
				Section: name,
				Field:   "",
				Message: fmt.Sprintf("Missing section '%s'", name),
			})
			continue
		}

		sectionData := asObject(sectionValue)
		for _, field := range discoverFields(section) {
			errs = append(errs, checkStrictField(name, field, sectionData)...)
		}
	}

	return newResult(errs)
}

// decodeValue parses raw JSON preserving number fidelity. Malformed input
// decodes to nil, which downstream treats as unrecognized/empty.
func decodeValue(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil
	}
	return v
}

// schemaSections resolves the section list from a decoded schema root.
// Returns ok=false when the root has neither recognized shape.
func schemaSections(root any) ([]any, bool) {
	switch v := root.(type) {
	case []any:
		return v, true
	case map[string]any:
		if sections, ok := v["sections"].([]any); ok {
			return sections, true
		}
	}
	return nil, false
}

func asObject(v any) map[string]any {
	if m, ok := v.(map[string]any); ok {
		return m
	}
	return map[string]any{}
}

// lookupString returns the first candidate key whose value is a string.
func lookupString(m map[string]any, keys ...string) (string, bool) {
	for _, k := range keys {
		if s, ok := m[k].(string); ok {
			return s, true
		}
	}
	return "", false
}

func lookupArray(m map[string]any, keys ...string) ([]any, bool) {
	for _, k := range keys {
		if a, ok := m[k].([]any); ok {
			return a, true
		}
	}
	return nil, false
}

// discoverFields extracts the fields of a section. A direct fields array
// wins; cards are consulted only when no flat array exists. The two
// strategies are never merged.
func discoverFields(section map[string]any) []strictField {
	if flat, ok := lookupArray(section, "Fields", "fields"); ok {
		fields := make([]strictField, 0, len(flat))
		for _, raw := range flat {
			fm, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			name, ok := lookupString(fm, "Name", "name", "label", "Label")
			if !ok {
				continue
			}
			fieldType, _ := lookupString(fm, "Type", "type")
			fields = append(fields, strictField{Key: name, Type: fieldType})
		}
		return fields
	}

	cards, ok := lookupArray(section, "cards", "Cards")
	if !ok {
		return nil
	}

	var fields []strictField
	for _, rawCard := range cards {
		card, ok := rawCard.(map[string]any)
		if !ok {
			continue
		}
		title, _ := lookupString(card, "title", "Title")
		cardFields, ok := lookupArray(card, "fields", "Fields")
		if !ok {
			continue
		}
		for _, raw := range cardFields {
			fm, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			label, ok := lookupString(fm, "label", "Label", "name", "Name")
			if !ok {
				continue
			}
			key := label
			if title != "" {
				key = title + " - " + label
			}
			fieldType, _ := lookupString(fm, "type", "Type")
			fields = append(fields, strictField{Key: key, Type: fieldType})
		}
	}
	return fields
}

// checkStrictField validates one discovered field, recovering from any
// fault while inspecting the value.
func checkStrictField(sectionName string, field strictField, sectionData map[string]any) (errs []Error) {
	defer func() {
		if r := recover(); r != nil {
			errs = []Error{{
				Section: sectionName,
				Field:   field.Key,
				Message: fmt.Sprintf("Type validation failed: %v", r),
			}}
		}
	}()

	value, present := sectionData[field.Key]
	if !present {
		return []Error{{
			Section: sectionName,
			Field:   field.Key,
			Message: fmt.Sprintf("Field '%s' is missing", field.Key),
		}}
	}

	if value == nil {
		return []Error{{
			Section: sectionName,
			Field:   field.Key,
			Message: fmt.Sprintf("Field '%s' cannot be null", field.Key),
		}}
	}

	if msg := checkStrictType(field.Type, value); msg != "" {
		return []Error{{Section: sectionName, Field: field.Key, Message: msg}}
	}
	return nil
}

// checkStrictType validates a decoded JSON value against the declared type.
// Unrecognized type names accept any value.
func checkStrictType(expectedType string, value any) string {
	switch strings.ToLower(expectedType) {
	case "int", "integer":
		n, ok := value.(json.Number)
		if !ok {
			return fmt.Sprintf("Expected type 'number', got '%s'", goKindName(value))
		}
		if !numberIsIntegral(n) {
			return "Expected integer value, got decimal"
		}
	case "float", "double", "number":
		if _, ok := value.(json.Number); !ok {
			return fmt.Sprintf("Expected type 'number', got '%s'", goKindName(value))
		}
	case "string", "text", "multiline", "media":
		// Arrays and objects accommodate serialized media-attachment lists.
		switch value.(type) {
		case string, []any, map[string]any:
		default:
			return fmt.Sprintf("Expected type 'string', got '%s'", goKindName(value))
		}
	case "bool", "boolean":
		if _, ok := value.(bool); !ok {
			return fmt.Sprintf("Expected type 'boolean', got '%s'", goKindName(value))
		}
	case "date", "datetime":
		s, ok := value.(string)
		if !ok {
			return fmt.Sprintf("Expected type 'date', got '%s'", goKindName(value))
		}
		if s != "" && !parseDate(strings.TrimSpace(s)) {
			return fmt.Sprintf("Invalid date format: '%s'", s)
		}
	}
	return ""
}
