package schema

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// JSONSchema renders the shape as the JSON schema advertised in tools/list
func (s Shape) JSONSchema() json.RawMessage {
	root := objectSchema(s.Fields)
	data, err := json.Marshal(root)
	if err != nil {
		// Schemas are built from static declarations only
		panic(err)
	}
	return data
}

func objectSchema(fields []Field) *jsonschema.Schema {
	root := &jsonschema.Schema{
		Type:       "object",
		Properties: jsonschema.NewProperties(),
	}
	for _, field := range fields {
		root.Properties.Set(field.Name, fieldSchema(field))
		if field.Required {
			root.Required = append(root.Required, field.Name)
		}
	}
	return root
}

func fieldSchema(field Field) *jsonschema.Schema {
	var out *jsonschema.Schema
	switch field.Kind {
	case Boolean:
		out = &jsonschema.Schema{Type: "boolean"}
	case NumberOrDate:
		out = &jsonschema.Schema{AnyOf: []*jsonschema.Schema{
			{Type: "string", Format: "date-time"},
			{Type: "number"},
		}}
	case StringOrStrings:
		out = &jsonschema.Schema{AnyOf: []*jsonschema.Schema{
			{Type: "array", Items: &jsonschema.Schema{Type: "string"}},
			{Type: "string"},
		}}
	case Enum:
		values := make([]any, len(field.Values))
		for i, v := range field.Values {
			values[i] = v
		}
		out = &jsonschema.Schema{Type: "string", Enum: values}
	case Object:
		out = objectSchema(field.Fields)
	default:
		out = &jsonschema.Schema{Type: "string"}
	}
	out.Description = field.Description
	return out
}
