// Package structured turns free-text model replies into typed values. A reply
// is untrusted input: it is located, validated against the JSON schema
// inferred from the target type, and only then decoded.
package structured

import (
	"encoding/json"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/genai"
)

var (
	ErrNoJSON        = goerr.New("no JSON object in reply")
	ErrSchemaInvalid = goerr.New("reply does not match schema")
)

// Codec validates and decodes replies into T
type Codec[T any] struct {
	schema   *jsonschema.Schema
	resolved *jsonschema.Resolved
	genai    *genai.Schema
}

// NewCodec infers the schema of T. Fields without omitempty are required.
func NewCodec[T any]() (*Codec[T], error) {
	schema, err := jsonschema.For[T](nil)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to infer JSON schema")
	}
	relax(schema)

	resolved, err := schema.Resolve(nil)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to resolve JSON schema")
	}

	genaiSchema, err := toGenai(schema)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to convert JSON schema for gemini")
	}

	return &Codec[T]{
		schema:   schema,
		resolved: resolved,
		genai:    genaiSchema,
	}, nil
}

// MustCodec is NewCodec for package-level reply types
func MustCodec[T any]() *Codec[T] {
	c, err := NewCodec[T]()
	if err != nil {
		panic(err)
	}
	return c
}

// GenaiSchema returns the schema for GenerateContentConfig.ResponseSchema
func (c *Codec[T]) GenaiSchema() *genai.Schema {
	return c.genai
}

// Describe renders the schema as JSON, for prompts of calls that cannot
// carry a response schema (search-grounded calls)
func (c *Codec[T]) Describe() string {
	data, err := json.MarshalIndent(c.schema, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(data)
}

// Decode extracts the JSON object from text, validates and decodes it
func (c *Codec[T]) Decode(text string) (*T, error) {
	raw, err := Extract(text)
	if err != nil {
		return nil, err
	}

	var instance any
	if err := json.Unmarshal([]byte(raw), &instance); err != nil {
		return nil, goerr.Wrap(err, "failed to parse reply JSON", goerr.V("json", raw))
	}

	if err := c.resolved.Validate(instance); err != nil {
		return nil, goerr.Wrap(ErrSchemaInvalid, err.Error(), goerr.V("json", raw))
	}

	var out T
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, goerr.Wrap(err, "failed to decode reply JSON", goerr.V("json", raw))
	}
	return &out, nil
}

// Extract returns the outermost JSON object of a reply, tolerating markdown
// code fences and prose around it
func Extract(text string) (string, error) {
	s := strings.TrimSpace(text)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
		s = strings.TrimSpace(s)
	}

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end < start {
		return "", goerr.Wrap(ErrNoJSON, "reply has no object", goerr.V("text", text))
	}
	return s[start : end+1], nil
}
