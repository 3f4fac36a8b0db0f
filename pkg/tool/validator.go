package tool

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// compileParameterSchema builds the JSON Schema a tool's arguments are
// validated against. Unless the definition is strict, undeclared
// arguments are permitted and reach the handler untouched.
func compileParameterSchema(def Definition) (*gojsonschema.Schema, error) {
	properties := make(map[string]interface{}, len(def.Parameters))
	required := []string{}

	for _, p := range def.Parameters {
		prop := map[string]interface{}{}
		if p.Type != TypeAny {
			prop["type"] = string(p.Type)
		}
		if p.Description != "" {
			prop["description"] = p.Description
		}
		if len(p.Enum) > 0 {
			prop["enum"] = p.Enum
		}
		if p.Default != nil {
			prop["default"] = p.Default
		}
		properties[p.Name] = prop

		if p.Required {
			required = append(required, p.Name)
		}
	}

	schemaMap := map[string]interface{}{
		"type":                 "object",
		"properties":           properties,
		"additionalProperties": !def.Strict,
	}
	if len(required) > 0 {
		schemaMap["required"] = required
	}

	schema, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(schemaMap))
	if err != nil {
		return nil, fmt.Errorf("compile parameter schema: %w", err)
	}
	return schema, nil
}

// validateArgs applies declared defaults and validates args against the
// tool's compiled schema. It returns the effective argument map the
// handler will receive. The input map is never mutated.
func validateArgs(ent *entry, args map[string]interface{}) (map[string]interface{}, error) {
	effective := make(map[string]interface{}, len(args)+len(ent.def.Parameters))
	for k, v := range args {
		effective[k] = v
	}
	for _, p := range ent.def.Parameters {
		if _, ok := effective[p.Name]; !ok && p.Default != nil {
			effective[p.Name] = p.Default
		}
	}

	result, err := ent.schema.Validate(gojsonschema.NewGoLoader(effective))
	if err != nil {
		return nil, NewError(ErrTypeMismatch, "tool %q: invalid arguments: %v", ent.def.ID, err).
			WithCause(err)
	}
	if result.Valid() {
		return effective, nil
	}
	return nil, classifyViolations(ent.def.ID, result.Errors())
}

// classifyViolations maps schema violations onto the error taxonomy.
// Missing required parameters win over undeclared ones, which win over
// type errors, so the caller sees the most actionable failure first.
func classifyViolations(toolID string, violations []gojsonschema.ResultError) *Error {
	var unknown, mismatch *Error

	for _, v := range violations {
		switch v.Type() {
		case "required":
			name, _ := v.Details()["property"].(string)
			return NewError(ErrMissingRequiredParam, "tool %q: required parameter %q is missing", toolID, name).
				WithDetail("parameter", name)

		case "additional_property_not_allowed":
			if unknown == nil {
				name, _ := v.Details()["property"].(string)
				unknown = NewError(ErrUnknownParameter, "tool %q: parameter %q is not declared", toolID, name).
					WithDetail("parameter", name)
			}

		case "invalid_type":
			if mismatch == nil {
				mismatch = NewError(ErrTypeMismatch, "tool %q: parameter %q: expected %v, got %v",
					toolID, v.Field(), v.Details()["expected"], v.Details()["given"]).
					WithDetail("parameter", v.Field()).
					WithDetail("expected", v.Details()["expected"]).
					WithDetail("actual", v.Details()["given"])
			}

		case "enum":
			if mismatch == nil {
				mismatch = NewError(ErrTypeMismatch, "tool %q: parameter %q: value not one of %v",
					toolID, v.Field(), v.Details()["allowed"]).
					WithDetail("parameter", v.Field()).
					WithDetail("allowed", v.Details()["allowed"])
			}
		}
	}

	if unknown != nil {
		return unknown
	}
	if mismatch != nil {
		return mismatch
	}

	v := violations[0]
	return NewError(ErrTypeMismatch, "tool %q: %s", toolID, v.Description()).
		WithDetail("parameter", v.Field())
}
