// Package jsonschema validates response bodies against JSON Schema documents.
package jsonschema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ValidationErrors represents a collection of validation errors
type ValidationErrors []error

// Error implements the error interface for ValidationErrors
func (ve ValidationErrors) Error() string {
	parts := make([]string, len(ve))
	for i, err := range ve {
		parts[i] = err.Error()
	}
	return strings.Join(parts, "; ")
}

// Schema is a compiled schema. It is safe for concurrent use.
type Schema struct {
	name   string
	schema *jsonschema.Schema
}

// Compile compiles raw under the given resource name. Format keywords
// (email, date, uri, ...) are asserted.
func Compile(name string, raw []byte) (*Schema, error) {
	if name == "" {
		name = "schema"
	}
	url := name + ".json"

	compiler := jsonschema.NewCompiler()
	compiler.AssertFormat = true
	if err := compiler.AddResource(url, bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("invalid schema: %w", err)
	}
	schema, err := compiler.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("invalid schema: %w", err)
	}
	return &Schema{name: name, schema: schema}, nil
}

// Name returns the name the schema was compiled under.
func (s *Schema) Name() string { return s.name }

// Validate checks a JSON document. A document that is not JSON yields a plain
// error; a document violating the schema yields ValidationErrors.
func (s *Schema) Validate(doc []byte) error {
	var v interface{}
	if err := json.Unmarshal(doc, &v); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return s.ValidateValue(v)
}

// ValidateValue checks an already decoded JSON value (as produced by encoding/json).
func (s *Schema) ValidateValue(v interface{}) error {
	err := s.schema.Validate(v)
	if err == nil {
		return nil
	}
	var verr *jsonschema.ValidationError
	if errors.As(err, &verr) {
		return flatten(verr)
	}
	return ValidationErrors{err}
}

// Validate compiles schemaStr and checks jsonStr against it in one step.
func Validate(jsonStr, schemaStr string) error {
	schema, err := Compile("schema", []byte(schemaStr))
	if err != nil {
		return err
	}
	return schema.Validate([]byte(jsonStr))
}

// flatten collects the leaf messages of a validation error tree.
func flatten(err *jsonschema.ValidationError) ValidationErrors {
	var out ValidationErrors
	if len(err.Causes) == 0 {
		location := err.InstanceLocation
		if location == "" {
			location = "/"
		}
		return ValidationErrors{fmt.Errorf("validation error at %s: %s", location, err.Message)}
	}
	for _, cause := range err.Causes {
		out = append(out, flatten(cause)...)
	}
	return out
}
