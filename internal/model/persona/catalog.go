package persona

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var catalogYAML []byte

// Definition describes a persona the seeder writes into the registry.
type Definition struct {
	Alias    string   `yaml:"alias"`
	Label    string   `yaml:"label"`
	Template string   `yaml:"template"`
	Meta     Meta     `yaml:"meta"`
	Tags     []string `yaml:"tags"`
}

// Catalog is the fixed set of personas shipped with the chatbot.
type Catalog struct {
	Task     string       `yaml:"task"`
	Personas []Definition `yaml:"personas"`
}

// DefaultCatalog decodes the embedded persona catalog.
func DefaultCatalog() (Catalog, error) {
	return ParseCatalog(catalogYAML)
}

// ParseCatalog decodes and validates a catalog document.
func ParseCatalog(data []byte) (Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Catalog{}, fmt.Errorf("decode persona catalog: %w", err)
	}
	if c.Task == "" {
		return Catalog{}, fmt.Errorf("persona catalog: task is required")
	}

	seen := make(map[string]struct{}, len(c.Personas))
	for _, def := range c.Personas {
		if !IsPersonaAlias(def.Alias) {
			return Catalog{}, fmt.Errorf("persona catalog: alias %q must start with %q", def.Alias, AliasPrefix)
		}
		if _, dup := seen[def.Alias]; dup {
			return Catalog{}, fmt.Errorf("persona catalog: duplicate alias %q", def.Alias)
		}
		seen[def.Alias] = struct{}{}

		for _, slot := range []string{SlotMemoryContext, SlotUserMessage} {
			if !strings.Contains(def.Template, "{"+slot+"}") {
				return Catalog{}, fmt.Errorf("persona catalog: %s template is missing {%s}", def.Alias, slot)
			}
		}
	}
	return c, nil
}
