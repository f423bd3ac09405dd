package structured

import (
	"github.com/google/jsonschema-go/jsonschema"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/genai"
)

// schemaType returns the single non-null type of a schema. Pointer fields
// are inferred as ["null", T].
func schemaType(schema *jsonschema.Schema) string {
	if schema.Type != "" {
		return schema.Type
	}
	for _, t := range schema.Types {
		if t != "null" {
			return t
		}
	}
	return ""
}

// toGenai converts JSON Schema to Gemini genai.Schema
func toGenai(schema *jsonschema.Schema) (*genai.Schema, error) {
	if schema == nil {
		return nil, nil
	}

	genaiSchema := &genai.Schema{}

	switch t := schemaType(schema); t {
	case "object":
		genaiSchema.Type = genai.TypeObject
	case "string":
		genaiSchema.Type = genai.TypeString
	case "integer":
		genaiSchema.Type = genai.TypeInteger
	case "number":
		genaiSchema.Type = genai.TypeNumber
	case "boolean":
		genaiSchema.Type = genai.TypeBoolean
	case "array":
		genaiSchema.Type = genai.TypeArray
	case "":
	default:
		return nil, goerr.New("unsupported schema type", goerr.V("type", t))
	}

	if len(schema.Types) > 1 {
		nullable := true
		genaiSchema.Nullable = &nullable
	}

	if schema.Description != "" {
		genaiSchema.Description = schema.Description
	}

	if len(schema.Enum) > 0 {
		genaiSchema.Enum = make([]string, 0, len(schema.Enum))
		for _, v := range schema.Enum {
			if s, ok := v.(string); ok {
				genaiSchema.Enum = append(genaiSchema.Enum, s)
			}
		}
	}

	if len(schema.Properties) > 0 {
		genaiSchema.Properties = make(map[string]*genai.Schema)
		for name, propSchema := range schema.Properties {
			converted, err := toGenai(propSchema)
			if err != nil {
				return nil, goerr.Wrap(err, "failed to convert property schema",
					goerr.V("property", name))
			}
			genaiSchema.Properties[name] = converted
		}
	}

	if len(schema.Required) > 0 {
		genaiSchema.Required = schema.Required
	}

	if schema.Items != nil {
		converted, err := toGenai(schema.Items)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to convert items schema")
		}
		genaiSchema.Items = converted
	}

	return genaiSchema, nil
}

// relax drops the "no additional properties" constraint inferred for
// structs. Model replies routinely carry extra keys and those are ignored.
func relax(schema *jsonschema.Schema) {
	if schema == nil {
		return
	}
	schema.AdditionalProperties = nil
	for _, prop := range schema.Properties {
		relax(prop)
	}
	relax(schema.Items)
}
