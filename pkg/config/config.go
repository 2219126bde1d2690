// Package config loads YAML or TOML files into a typed struct after
// expanding ${VAR} references from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Validator is implemented by config types that check themselves after decoding.
type Validator interface {
	Validate() error
}

type decodeFunc func(data []byte, v any) error

// decoders maps a lower-cased file extension to its decoder. Unlisted
// extensions fall back to YAML.
var decoders = map[string]decodeFunc{
	".toml": toml.Unmarshal,
	".yaml": yaml.Unmarshal,
	".yml":  yaml.Unmarshal,
}

// Load reads filename into target. The file is decoded as TOML when it
// ends in .toml and as YAML otherwise. If target implements Validator it
// is validated last.
func Load[T any](filename string, target *T) error {
	raw, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", filename, err)
	}

	decode, ok := decoders[strings.ToLower(filepath.Ext(filename))]
	if !ok {
		decode = yaml.Unmarshal
	}
	if err := decode([]byte(os.ExpandEnv(string(raw))), target); err != nil {
		return fmt.Errorf("config: parse %s: %w", filename, err)
	}

	if v, ok := any(target).(Validator); ok {
		if err := v.Validate(); err != nil {
			return fmt.Errorf("config: validation failed: %w", err)
		}
	}
	return nil
}

// LoadWithDefaults loads filename, or defaultFile when filename does not exist.
func LoadWithDefaults[T any](filename, defaultFile string, target *T) error {
	_, err := os.Stat(filename)
	switch {
	case err == nil:
		return Load(filename, target)
	case !errors.Is(err, os.ErrNotExist):
		return fmt.Errorf("config: stat %s: %w", filename, err)
	case defaultFile == "":
		return fmt.Errorf("config: %s not found", filename)
	}
	return Load(defaultFile, target)
}
