package main

import (
	"encoding/json"
	"fmt"

	physis "github.com/physis-lang/physis"
)

// applyConfigOverrides decodes data as a flat JSON object of config
// path -> value pairs and applies each over cfg's existing defaults
// (config.go's NewConfig). Each key is set with the type of its JSON
// value (bool, number as int, or string), replacing whatever typed
// value the key held before; the new type is not checked against the
// old one, so a mismatched override surfaces only as Config's panic
// when the key is later read with its original typed getter. Any
// other JSON value type is reported as an error.
func applyConfigOverrides(cfg *physis.Config, data []byte) (*physis.Config, error) {
	var overrides map[string]json.RawMessage
	if err := json.Unmarshal(data, &overrides); err != nil {
		return nil, fmt.Errorf("parsing config overrides: %w", err)
	}

	for path, raw := range overrides {
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("config %q: %w", path, err)
		}
		switch val := v.(type) {
		case bool:
			cfg.SetBool(path, val)
		case float64:
			cfg.SetInt(path, int(val))
		case string:
			cfg.SetString(path, val)
		default:
			return nil, fmt.Errorf("config %q: unsupported value type %T", path, v)
		}
	}
	return cfg, nil
}
