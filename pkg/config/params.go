package config

import (
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/GoSim-25-26J-441/opsim-driver/pkg/models"
)

// Params flattens the configuration into Config table rows. Nested keys
// are joined with "/", scalar lists with ",".
func (c *Config) Params() ([]models.ConfigParam, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}
	var tree map[string]any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	var rows []models.ConfigParam
	flatten("", tree, func(name, value string) {
		rows = append(rows, models.ConfigParam{
			ConfigID:   len(rows) + 1,
			ParamName:  name,
			ParamValue: value,
		})
	})
	return rows, nil
}

func flatten(prefix string, node any, emit func(name, value string)) {
	switch v := node.(type) {
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			flatten(join(prefix, k), v[k], emit)
		}
	case []any:
		if scalars(v) {
			parts := make([]string, len(v))
			for i, item := range v {
				parts[i] = fmt.Sprint(item)
			}
			emit(prefix, strings.Join(parts, ","))
			return
		}
		for i, item := range v {
			flatten(join(prefix, fmt.Sprint(i)), item, emit)
		}
	case nil:
		emit(prefix, "")
	default:
		emit(prefix, fmt.Sprint(v))
	}
}

func scalars(items []any) bool {
	for _, item := range items {
		switch item.(type) {
		case map[string]any, []any:
			return false
		}
	}
	return true
}

func join(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "/" + key
}
