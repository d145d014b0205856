package llm

import (
	"encoding/json"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
)

// Schema is a JSON schema a structured reply must satisfy.
type Schema struct {
	Name     string
	schema   *jsonschema.Schema
	resolved *jsonschema.Resolved
}

// SchemaFor infers a schema from T's json and jsonschema struct tags.
func SchemaFor[T any](name string) (*Schema, error) {
	s, err := jsonschema.For[T](nil)
	if err != nil {
		return nil, fmt.Errorf("schema %s: %w", name, err)
	}
	return NewSchema(name, s)
}

// MustSchemaFor is SchemaFor for package-level declarations.
func MustSchemaFor[T any](name string) *Schema {
	s, err := SchemaFor[T](name)
	if err != nil {
		panic(err)
	}
	return s
}

func NewSchema(name string, s *jsonschema.Schema) (*Schema, error) {
	resolved, err := s.Resolve(nil)
	if err != nil {
		return nil, fmt.Errorf("schema %s: %w", name, err)
	}
	return &Schema{Name: name, schema: s, resolved: resolved}, nil
}

// WithEnum returns a copy whose property field (or its array items) only
// accepts values.
func (s *Schema) WithEnum(field string, values []string) (*Schema, error) {
	clone, err := s.clone()
	if err != nil {
		return nil, err
	}
	prop, ok := clone.Properties[field]
	if !ok {
		return nil, fmt.Errorf("schema %s has no property %q", s.Name, field)
	}
	enum := make([]any, len(values))
	for i, v := range values {
		enum[i] = v
	}
	if prop.Items != nil {
		prop.Items.Enum = enum
	} else {
		prop.Enum = enum
	}
	return NewSchema(s.Name, clone)
}

func (s *Schema) clone() (*jsonschema.Schema, error) {
	data, err := json.Marshal(s.schema)
	if err != nil {
		return nil, err
	}
	var c jsonschema.Schema
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// JSON is the schema document sent to providers.
func (s *Schema) JSON() json.RawMessage {
	data, _ := json.Marshal(s.schema)
	return data
}

// Validate checks a JSON document against the schema.
func (s *Schema) Validate(data []byte) error {
	var instance any
	if err := json.Unmarshal(data, &instance); err != nil {
		return fmt.Errorf("schema %s: reply is not JSON: %w", s.Name, err)
	}
	if err := s.resolved.Validate(instance); err != nil {
		return fmt.Errorf("schema %s: %w", s.Name, err)
	}
	return nil
}

// Decode validates data and unmarshals it into out.
func (s *Schema) Decode(data []byte, out any) error {
	if err := s.Validate(data); err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}
