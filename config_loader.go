package smaq

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/jsonschema-go/jsonschema"
	"gopkg.in/yaml.v3"
)

// configSchemaDoc is a hand-written JSON Schema describing the shape LoadConfig will accept.
// It only constrains types/ranges that matter for the economic controller's arithmetic to
// stay sane; everything else is left permissive and defaulted by DefaultConfig.
const configSchemaDoc = `{
  "type": "object",
  "properties": {
    "duckdb": {"type": "object"},
    "store": {
      "type": "object",
      "properties": {
        "baseDir": {"type": "string"},
        "statsFile": {"type": "string"}
      }
    },
    "controller": {
      "type": "object",
      "properties": {
        "depositFactor": {"type": "number", "minimum": 0},
        "reinvestFactor": {"type": "number", "minimum": 0},
        "probePenaltyFactor": {"type": "number", "minimum": 0},
        "recencyWindow": {"type": "integer", "minimum": 1},
        "iqrMultiplier": {"type": "number", "exclusiveMinimum": 0}
      }
    },
    "executor": {
      "type": "object",
      "properties": {
        "maxParallelBuilds": {"type": "integer", "minimum": 1}
      }
    },
    "logging": {"type": "object"},
    "strict": {"type": "boolean"}
  }
}`

// LoadConfig reads a YAML configuration document from path, validates it (in strict mode,
// against configSchemaDoc) and returns a fully defaulted Config. Fields absent from the
// document keep DefaultConfig's values.
func LoadConfig(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	if cfg.Strict {
		if err := validateConfigDocument(raw); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validateConfigDocument re-decodes the raw YAML into a generic document (normalised by
// normalizeYAMLForJSON into the map shape JSON decoding would produce) and checks it against
// configSchemaDoc, grounded on the teacher's transformer.go JSON-Schema validation idiom
// (marshal the schema map, unmarshal into jsonschema.Schema, Resolve, then Validate).
func validateConfigDocument(raw []byte) error {
	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("re-parse config for schema validation: %w", err)
	}
	doc = normalizeYAMLForJSON(doc)

	var schema jsonschema.Schema
	if err := json.Unmarshal([]byte(configSchemaDoc), &schema); err != nil {
		return fmt.Errorf("parse config JSON schema: %w", err)
	}

	resolved, err := schema.Resolve(&jsonschema.ResolveOptions{})
	if err != nil {
		return fmt.Errorf("resolve config JSON schema: %w", err)
	}

	if err := resolved.Validate(doc); err != nil {
		return NewConfigError("<document>", "config failed schema validation").WithCause(err)
	}
	return nil
}

// normalizeYAMLForJSON recursively converts the map[string]any/map[any]any nodes yaml.v3
// can produce into the map[string]any shape encoding/json (and therefore jsonschema-go)
// expects.
func normalizeYAMLForJSON(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = normalizeYAMLForJSON(val)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[fmt.Sprintf("%v", k)] = normalizeYAMLForJSON(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = normalizeYAMLForJSON(val)
		}
		return out
	default:
		return v
	}
}
