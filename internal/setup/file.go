package setup

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// File is the on-disk setups definition
type File struct {
	Setups []Config `yaml:"setups"`
}

// LoadFile loads setup configurations from a YAML file
func LoadFile(path string) ([]Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read setups file: %w", err)
	}

	return LoadFromBytes(data)
}

// LoadFromBytes loads setup configurations from YAML data (useful for testing)
func LoadFromBytes(data []byte) ([]Config, error) {
	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse setups YAML: %w", err)
	}

	if err := validate(file.Setups); err != nil {
		return nil, fmt.Errorf("setups validation failed: %w", err)
	}

	return file.Setups, nil
}

func validate(configs []Config) error {
	if len(configs) == 0 {
		return fmt.Errorf("no setups defined")
	}

	seen := make(map[string]bool, len(configs))
	for i, cfg := range configs {
		if cfg.ID == "" {
			return fmt.Errorf("setup %d: id is required", i)
		}
		if seen[cfg.ID] {
			return fmt.Errorf("setup %d: duplicate id %q", i, cfg.ID)
		}
		seen[cfg.ID] = true

		if cfg.MinBrightness > cfg.MaxBrightness && cfg.MaxBrightness != 0 {
			return fmt.Errorf("setup %q: min_brightness exceeds max_brightness", cfg.ID)
		}
		if cfg.MinKelvin > cfg.MaxKelvin && cfg.MaxKelvin != 0 {
			return fmt.Errorf("setup %q: min_kelvin exceeds max_kelvin", cfg.ID)
		}
	}

	return nil
}
