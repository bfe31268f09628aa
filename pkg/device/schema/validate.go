// Package schema checks decoded JSON values against named JSON Schemas.
package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// ErrUnknownSchema is returned when validating against a name that was
// never registered.
var ErrUnknownSchema = errors.New("unknown schema")

// Validator holds compiled schemas by name. It is safe for concurrent use.
type Validator struct {
	mu      sync.RWMutex
	schemas map[string]*jsonschema.Schema
}

// NewValidator creates a Validator with no schemas.
func NewValidator() *Validator {
	return &Validator{schemas: make(map[string]*jsonschema.Schema)}
}

// Register compiles doc and stores it under name, replacing any earlier
// schema with that name.
func (v *Validator) Register(name string, doc json.RawMessage) error {
	parsed, err := jsonschema.UnmarshalJSON(bytes.NewReader(doc))
	if err != nil {
		return fmt.Errorf("schema %s: %w", name, err)
	}

	url := name + ".json"
	c := jsonschema.NewCompiler()
	if err := c.AddResource(url, parsed); err != nil {
		return fmt.Errorf("schema %s: %w", name, err)
	}
	compiled, err := c.Compile(url)
	if err != nil {
		return fmt.Errorf("schema %s: %w", name, err)
	}

	v.mu.Lock()
	v.schemas[name] = compiled
	v.mu.Unlock()
	return nil
}

// MustRegister is Register for schemas built into the binary.
func (v *Validator) MustRegister(name string, doc json.RawMessage) {
	if err := v.Register(name, doc); err != nil {
		panic(err)
	}
}

// Validate checks value against the schema registered as name. value must
// be a decoded JSON value (json.Number or float64 for numbers).
func (v *Validator) Validate(name string, value any) error {
	v.mu.RLock()
	s, ok := v.schemas[name]
	v.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSchema, name)
	}
	return s.Validate(value)
}

// Names lists the registered schemas in order.
func (v *Validator) Names() []string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	names := make([]string, 0, len(v.schemas))
	for n := range v.schemas {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
