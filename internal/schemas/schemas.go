// Package schemas validates the JSON returned by the API before a consumer decodes it.
//
// Results are untyped at the client boundary; each consumer names the shape it expects and validates against it.
package schemas

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

const schemaBaseURL = "https://schemas.conveydesk.dev/"

var ErrNoBody = errors.New("response has no JSON body")

// Registry stores compiled JSON schemas indexed by name
type Registry struct {
	mu      sync.RWMutex
	schemas map[string]*jsonschema.Schema
}

func NewRegistry() *Registry {
	return &Registry{schemas: make(map[string]*jsonschema.Schema)}
}

// Register compiles the schema content and stores it under name, replacing any previous schema.
func (r *Registry) Register(name, content string) error {
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(content))
	if err != nil {
		return fmt.Errorf("schema %s is not valid JSON: %w", name, err)
	}

	url := schemaBaseURL + name + ".json"
	c := jsonschema.NewCompiler()
	c.DefaultDraft(jsonschema.Draft2020)
	if err := c.AddResource(url, doc); err != nil {
		return fmt.Errorf("adding schema %s: %w", name, err)
	}
	schema, err := c.Compile(url)
	if err != nil {
		return fmt.Errorf("invalid JSON Schema %s: %w", name, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.schemas[name] = schema
	return nil
}

// Validate checks raw against the named schema.
func (r *Registry) Validate(name string, raw json.RawMessage) error {
	r.mu.RLock()
	schema, ok := r.schemas[name]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("unknown schema: %s", name)
	}

	if len(bytes.TrimSpace(raw)) == 0 {
		return fmt.Errorf("%s: %w", name, ErrNoBody)
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("%s: invalid JSON format: %w", name, err)
	}
	if err := schema.Validate(inst); err != nil {
		return fmt.Errorf("%s: schema validation failed: %w", name, err)
	}
	return nil
}

var (
	defaultRegistry *Registry
	defaultOnce     sync.Once
)

// Default returns a registry holding the built-in resource schemas.
// The built-in schemas are constants, so a compile failure is a programming error and panics.
func Default() *Registry {
	defaultOnce.Do(func() {
		r := NewRegistry()
		for name, content := range builtin {
			if err := r.Register(name, content); err != nil {
				panic(err)
			}
		}
		defaultRegistry = r
	})
	return defaultRegistry
}

// Validate validates raw against one of the built-in schemas
func Validate(name string, raw json.RawMessage) error {
	return Default().Validate(name, raw)
}
