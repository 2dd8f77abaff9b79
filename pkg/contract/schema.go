package contract

import (
	"fmt"
	"sort"

	"github.com/joeydtaylor/steeze-gateway/pkg/gwerr"
	"github.com/xeipuuv/gojsonschema"
)

// Schema is a compiled JSON Schema taken from the contract. Validate has no
// side effects, so the same value always gets the same verdict.
type Schema struct {
	source map[string]any
	s      *gojsonschema.Schema
}

// Source is the schema as written in the contract (after nullable rewriting).
func (s *Schema) Source() map[string]any { return s.source }

// Validate checks v (any JSON-marshalable value) against the schema and
// returns the mismatches, nil when v conforms.
func (s *Schema) Validate(v any) ([]gwerr.FieldError, error) {
	if s == nil || s.s == nil {
		return nil, nil
	}
	res, err := s.s.Validate(gojsonschema.NewGoLoader(v))
	if err != nil {
		return nil, fmt.Errorf("schema validate: %w", err)
	}
	if res.Valid() {
		return nil, nil
	}
	out := make([]gwerr.FieldError, 0, len(res.Errors()))
	for _, e := range res.Errors() {
		out = append(out, gwerr.FieldError{Field: e.Field(), Description: e.Description()})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Field < out[j].Field })
	return out, nil
}

// compileSchema compiles one schema object. Local refs resolve against the
// contract's components, which are grafted onto a copy of the schema root.
func compileSchema(raw any, components any) (*Schema, error) {
	m, ok := toJSONSchema(raw).(map[string]any)
	if !ok {
		return nil, fmt.Errorf("schema must be an object, got %T", raw)
	}
	doc := make(map[string]any, len(m)+1)
	for k, v := range m {
		doc[k] = v
	}
	if components != nil {
		doc["components"] = components
	}
	sl := gojsonschema.NewSchemaLoader()
	s, err := sl.Compile(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return nil, err
	}
	return &Schema{source: m, s: s}, nil
}

// toJSONSchema deep-copies an OpenAPI schema fragment, rewriting
// `nullable: true` into a "null" member of the type list.
func toJSONSchema(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, x := range t {
			out[k] = toJSONSchema(x)
		}
		if n, _ := out["nullable"].(bool); n {
			delete(out, "nullable")
			switch typ := out["type"].(type) {
			case string:
				out["type"] = []any{typ, "null"}
			case []any:
				out["type"] = append(typ, "null")
			}
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, x := range t {
			out[i] = toJSONSchema(x)
		}
		return out
	default:
		return v
	}
}

// schemaType returns the first non-null declared type of a schema fragment.
func schemaType(m map[string]any) string {
	switch t := m["type"].(type) {
	case string:
		return t
	case []any:
		for _, x := range t {
			if s, ok := x.(string); ok && s != "null" {
				return s
			}
		}
	}
	return ""
}
