package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"property-features/services"
)

// CategoryFile is the YAML layout of a crime category override.
type CategoryFile struct {
	Violent    []string `yaml:"violent"`
	Nonviolent []string `yaml:"nonviolent"`
}

// LoadCategories reads violent/nonviolent label sets from a YAML file. An
// empty path selects the built-in Chicago sets.
func LoadCategories(path string) (*services.CategorySets, error) {
	if path == "" {
		return services.DefaultCategorySets(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("categories file not found: %s", path)
		}
		return nil, fmt.Errorf("reading categories file: %w", err)
	}

	var file CategoryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing categories YAML: %w", err)
	}
	if len(file.Violent) == 0 && len(file.Nonviolent) == 0 {
		return nil, fmt.Errorf("categories file %s defines no labels", path)
	}

	sets, err := services.NewCategorySets(file.Violent, file.Nonviolent)
	if err != nil {
		return nil, fmt.Errorf("categories file %s: %w", path, err)
	}
	return sets, nil
}
