// Package config loads YAML configuration files with ${ENV} expansion.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Validator is implemented by configuration types that check themselves
// after decoding.
type Validator interface {
	Validate() error
}

// Load decodes filename into target, expanding environment references
// first, and validates the result.
func Load[T any](filename string, target *T) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", filename, err)
	}
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), target); err != nil {
		return fmt.Errorf("config: parse %s: %w", filename, err)
	}
	return validate(target)
}

// LoadIfExists is Load for an optional file. A missing file keeps the values
// already in target, which are still validated, and reports loaded=false.
func LoadIfExists[T any](filename string, target *T) (loaded bool, err error) {
	_, err = os.Stat(filename)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return false, validate(target)
	case err != nil:
		return false, fmt.Errorf("config: stat %s: %w", filename, err)
	}
	if err := Load(filename, target); err != nil {
		return false, err
	}
	return true, nil
}

func validate(target any) error {
	v, ok := target.(Validator)
	if !ok {
		return nil
	}
	if err := v.Validate(); err != nil {
		return fmt.Errorf("config: validation failed: %w", err)
	}
	return nil
}
