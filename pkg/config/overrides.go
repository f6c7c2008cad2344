package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// ApplyOverridesDir merges every *.yaml file in dir over cfg in lexical
// order and returns the re-validated result. cfg is not modified.
func ApplyOverridesDir(cfg *Config, dir string) (*Config, error) {
	if dir == "" {
		return cfg, nil
	}
	files, err := overrideFiles(dir)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return cfg, nil
	}

	base, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to encode base config: %w", err)
	}
	v := viper.New()
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewReader(base)); err != nil {
		return nil, fmt.Errorf("failed to load base config: %w", err)
	}

	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read override %s: %w", path, err)
		}
		if err := v.MergeConfig(bytes.NewReader(data)); err != nil {
			return nil, fmt.Errorf("failed to merge override %s: %w", path, err)
		}
	}

	merged, err := yaml.Marshal(v.AllSettings())
	if err != nil {
		return nil, fmt.Errorf("failed to encode merged config: %w", err)
	}
	out := &Config{}
	if err := yaml.Unmarshal(merged, out); err != nil {
		return nil, fmt.Errorf("failed to decode merged config: %w", err)
	}
	if err := validateConfig(out); err != nil {
		return nil, fmt.Errorf("invalid config after overrides: %w", err)
	}
	return out, nil
}

func overrideFiles(dir string) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: overrides directory %s: %v", ErrConfigurationInvalid, dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: overrides path %s is not a directory", ErrConfigurationInvalid, dir)
	}
	var files []string
	for _, pattern := range []string{"*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, err
		}
		files = append(files, matches...)
	}
	sort.Strings(files)
	return files, nil
}
