package settings

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/Kamibony/AI-Sensei-CZU-Pilot-sub001/internal/domain/lessons"
)

// LoadDefaults reads deployment-level generation defaults from a YAML file
// and layers them over the built-in defaults. An empty path yields the
// built-in defaults.
func LoadDefaults(path string) (lessons.GenerationConfig, error) {
	base := lessons.DefaultGenerationConfig()
	if path == "" {
		return base, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return base, fmt.Errorf("read generation defaults: %w", err)
	}
	var file struct {
		Generation lessons.GenerationConfig `yaml:"generation"`
	}
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return base, fmt.Errorf("parse generation defaults %s: %w", path, err)
	}
	return file.Generation.Merge(base), nil
}
