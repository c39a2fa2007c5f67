// Package yaml loads analysis configuration from YAML files.
package yaml

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fwojciec/untangle"
	yamlv3 "gopkg.in/yaml.v3"
)

// LoadConfig reads the file at path over untangle.DefaultConfig. Keys absent
// from the file keep their defaults; unknown keys are rejected. The result
// is validated.
func LoadConfig(path string) (untangle.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return untangle.Config{}, err
	}
	cfg, err := ParseConfig(data)
	if err != nil {
		return untangle.Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// ParseConfig decodes YAML over untangle.DefaultConfig.
func ParseConfig(data []byte) (untangle.Config, error) {
	cfg := untangle.DefaultConfig()
	dec := yamlv3.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return untangle.Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return untangle.Config{}, err
	}
	return cfg, nil
}
