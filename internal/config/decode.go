package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	yaml "go.yaml.in/yaml/v3"
)

type format string

const (
	formatJSON format = "json"
	formatYAML format = "yaml"
)

// detectFormat picks the decoder from the extension. Files without a known
// extension are JSON when they start with '{', YAML otherwise.
func detectFormat(path string, b []byte) format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return formatJSON
	case ".yaml", ".yml":
		return formatYAML
	}
	if t := bytes.TrimSpace(b); len(t) > 0 && t[0] == '{' {
		return formatJSON
	}
	return formatYAML
}

// decodeInto overlays the file onto cfg. YAML is converted to JSON first so
// both formats go through the same strict decoder.
func decodeInto(path string, b []byte, cfg *Config) error {
	jb := b
	if detectFormat(path, b) == formatYAML {
		var v any
		if err := yaml.Unmarshal(b, &v); err != nil {
			return fmt.Errorf("yaml: %w", err)
		}
		if v == nil {
			return nil
		}
		var err error
		if jb, err = json.Marshal(stringKeys(v)); err != nil {
			return fmt.Errorf("yaml: %w", err)
		}
	}
	if t := bytes.TrimSpace(jb); len(t) == 0 || string(t) == "null" {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(jb))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		if err == nil {
			return fmt.Errorf("invalid config: trailing data")
		}
		return err
	}
	return nil
}

// stringKeys rewrites YAML maps with non-string keys (e.g. `1: x`) so the
// value can be marshaled as JSON.
func stringKeys(in any) any {
	switch x := in.(type) {
	case map[any]any:
		out := make(map[string]any, len(x))
		for k, v := range x {
			out[fmt.Sprint(k)] = stringKeys(v)
		}
		return out
	case map[string]any:
		for k, v := range x {
			x[k] = stringKeys(v)
		}
		return x
	case []any:
		for i, v := range x {
			x[i] = stringKeys(v)
		}
		return x
	}
	return in
}
