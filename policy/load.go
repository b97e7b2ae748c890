package policy

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/Masterminds/semver/v3"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

//go:embed schema.json
var schemaJSON []byte

//go:embed default.yaml
var defaultYAML []byte

const schemaURL = "https://goades.local/schemas/policy.schema.json"

// SupportedVersions is the range of policy document versions this engine
// understands.
const SupportedVersions = ">= 1.0.0, < 2.0.0"

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		c := jsonschema.NewCompiler()
		c.Draft = jsonschema.Draft2020
		if err := c.AddResource(schemaURL, bytes.NewReader(schemaJSON)); err != nil {
			schemaErr = fmt.Errorf("policy schema load failed: %w", err)
			return
		}
		schema, schemaErr = c.Compile(schemaURL)
	})
	return schema, schemaErr
}

// Parse decodes a YAML policy document, validates it against the policy
// schema and checks it.
func Parse(data []byte) (*Policy, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, &ConfigError{Message: "invalid YAML", Err: err}
	}
	if raw == nil {
		return nil, NewConfigError("", "empty policy document")
	}

	// The schema validator works on JSON values.
	js, err := json.Marshal(raw)
	if err != nil {
		return nil, &ConfigError{Message: "policy is not representable as JSON", Err: err}
	}
	var value any
	if err := json.Unmarshal(js, &value); err != nil {
		return nil, &ConfigError{Message: "policy is not representable as JSON", Err: err}
	}
	sch, err := compiledSchema()
	if err != nil {
		return nil, &ConfigError{Message: "policy schema unavailable", Err: err}
	}
	if err := sch.Validate(value); err != nil {
		return nil, &ConfigError{Message: "schema validation failed", Err: err}
	}

	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &ConfigError{Message: "invalid policy document", Err: err}
	}
	return New(doc)
}

// LoadFile reads and parses the policy at path.
func LoadFile(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigError{Field: path, Message: "cannot read policy", Err: err}
	}
	return Parse(data)
}

// Default returns the built-in policy.
func Default() *Policy {
	p, err := Parse(defaultYAML)
	if err != nil {
		panic(fmt.Sprintf("built-in policy is invalid: %v", err))
	}
	return p
}

// DefaultYAML returns the source of the built-in policy.
func DefaultYAML() []byte {
	return append([]byte(nil), defaultYAML...)
}

func checkVersion(v string) error {
	if v == "" {
		return NewConfigError("version", "required field is missing")
	}
	ver, err := semver.NewVersion(v)
	if err != nil {
		return &ConfigError{Field: "version", Message: fmt.Sprintf("invalid version %q", v), Err: err}
	}
	c, err := semver.NewConstraint(SupportedVersions)
	if err != nil {
		return &ConfigError{Field: "version", Message: "invalid supported range", Err: err}
	}
	if !c.Check(ver) {
		return NewConfigError("version", fmt.Sprintf("version %s is not in supported range %s", v, SupportedVersions))
	}
	return nil
}
