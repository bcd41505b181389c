package schema

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// MixinDef describes a loader/config facet importable via an
// ast.ImportMixin statement (e.g. "org.thingpedia.config.oauth2"): a
// name, the underlying mechanism kind, and a JSON Schema its config
// InParams must validate against.
type MixinDef struct {
	Name   string
	Kind   string // e.g. "oauth2", "basic_auth", "rss", "form"
	Doc    string
	Schema json.RawMessage // JSON Schema for the mixin's configuration shape; nil = unconstrained
}

// ValidateMixinConfig checks config against m.Schema. A MixinDef with no
// Schema accepts any config.
func ValidateMixinConfig(m *MixinDef, config map[string]any) error {
	if m == nil {
		return fmt.Errorf("schema: nil mixin")
	}
	if len(m.Schema) == 0 {
		return nil
	}
	var doc any
	if err := json.Unmarshal(m.Schema, &doc); err != nil {
		return fmt.Errorf("schema: mixin %q has invalid JSON Schema: %w", m.Name, err)
	}
	compiler := jsonschema.NewCompiler()
	resourceURL := "mixin:" + m.Name
	if err := compiler.AddResource(resourceURL, doc); err != nil {
		return fmt.Errorf("schema: mixin %q schema could not be loaded: %w", m.Name, err)
	}
	compiled, err := compiler.Compile(resourceURL)
	if err != nil {
		return fmt.Errorf("schema: mixin %q schema does not compile: %w", m.Name, err)
	}
	// jsonschema validates against any-typed Go values built from
	// encoding/json decoding conventions (map[string]any, []any, ...);
	// config is already in that shape.
	if err := compiled.Validate(config); err != nil {
		return fmt.Errorf("schema: mixin %q config is invalid: %w", m.Name, err)
	}
	return nil
}
