package catalog

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Overlay extends the built-in registry from a YAML file. Overlay games merge
// into existing entries by ID; new IDs register as new games.
type Overlay struct {
	Games    []Game         `yaml:"games"`
	Synonyms []TitleSynonym `yaml:"synonyms"`
}

// LoadOverlay reads an overlay from a YAML file.
func LoadOverlay(path string) (*Overlay, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog overlay: %w", err)
	}
	var o Overlay
	if err := yaml.Unmarshal(data, &o); err != nil {
		return nil, fmt.Errorf("failed to parse catalog overlay: %w", err)
	}
	for i := range o.Games {
		if o.Games[i].ID == "" {
			return nil, fmt.Errorf("catalog overlay game %d missing id", i)
		}
	}
	return &o, nil
}
