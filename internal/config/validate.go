package config

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed schema.json
var schemaJSON string

var settingsSchema = sync.OnceValues(func() (*gojsonschema.Schema, error) {
	return gojsonschema.NewSchema(gojsonschema.NewStringLoader(schemaJSON))
})

// SettingsError reports the config keys rejected by the settings schema.
type SettingsError struct {
	// Fields holds the dotted key of every rejected setting, sorted and unique.
	Fields   []string
	problems []string
}

func (e *SettingsError) Error() string {
	return "config schema validation failed: " + strings.Join(e.problems, "; ")
}

// ValidateSettings checks merged file settings before env overrides and decoding.
func ValidateSettings(settings map[string]any) error {
	schema, err := settingsSchema()
	if err != nil {
		return fmt.Errorf("load config schema: %w", err)
	}
	result, err := schema.Validate(gojsonschema.NewGoLoader(settings))
	if err != nil {
		return fmt.Errorf("validate config schema: %w", err)
	}
	if result.Valid() {
		return nil
	}

	out := &SettingsError{}
	seen := make(map[string]struct{}, len(result.Errors()))
	for _, re := range result.Errors() {
		field := re.Field()
		out.problems = append(out.problems, field+": "+re.Description())
		if _, ok := seen[field]; ok {
			continue
		}
		seen[field] = struct{}{}
		out.Fields = append(out.Fields, field)
	}
	sort.Strings(out.problems)
	sort.Strings(out.Fields)
	return out
}
