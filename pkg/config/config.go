// Package config loads YAML or TOML configuration files with environment
// variable expansion and optional validation.
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

// ErrUnsupportedFormat is returned for file extensions Load cannot decode.
var ErrUnsupportedFormat = errors.New("unsupported config format")

// Validator is implemented by config types that check themselves after
// decoding.
type Validator interface {
	Validate() error
}

// Load reads filename, expands ${NAME} and ${NAME:-fallback} references,
// decodes the result into target and validates it. Files ending in .toml
// are TOML; .yaml, .yml or no extension are YAML.
func Load[T any](filename string, target *T) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", filename, err)
	}

	if err := decode(filename, expand(string(data)), target); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", filename, err)
	}

	if v, ok := any(target).(Validator); ok {
		if err := v.Validate(); err != nil {
			return fmt.Errorf("config validation failed: %w", err)
		}
	}
	return nil
}

// LoadWithDefaults loads filename, or defaultFile when filename does not
// exist.
func LoadWithDefaults[T any](filename, defaultFile string, target *T) error {
	if _, err := os.Stat(filename); errors.Is(err, os.ErrNotExist) {
		if defaultFile == "" || defaultFile == filename {
			return fmt.Errorf("config file not found: %s", filename)
		}
		return Load(defaultFile, target)
	}
	return Load(filename, target)
}

func decode(filename, data string, target any) error {
	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".toml":
		_, err := toml.Decode(data, target)
		return err
	case ".yaml", ".yml", "":
		return yaml.Unmarshal([]byte(data), target)
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
}

// expand substitutes environment variables. ${NAME:-fallback} yields
// fallback when NAME is unset or empty.
func expand(s string) string {
	return os.Expand(s, func(ref string) string {
		name, fallback, hasFallback := strings.Cut(ref, ":-")
		if v := os.Getenv(name); v != "" || !hasFallback {
			return v
		}
		return fallback
	})
}
