package persona

import (
	"strconv"
	"strings"
	"time"
)

const (
	// AliasPrefix marks registry aliases that the chat surface offers as personas.
	AliasPrefix = "persona-"

	// SlotMemoryContext and SlotUserMessage are the two named slots every persona template carries.
	SlotMemoryContext = "memory_context"
	SlotUserMessage   = "user_message"
)

// Entry is one registered prompt version as stored in the prompt registry.
type Entry struct {
	ID        string    `json:"id"`
	Task      string    `json:"task"`
	Alias     string    `json:"alias,omitempty"`
	Template  string    `json:"template"`
	Meta      Meta      `json:"meta"`
	Tags      []string  `json:"tags,omitempty"`
	Project   string    `json:"project"`
	Author    string    `json:"author,omitempty"`
	Version   int       `json:"version"`
	CreatedAt time.Time `json:"createdAt"`
}

// Meta carries the model settings attached to a persona template.
// Temperature and MaxTokens are optional; nil means "use the caller's default".
type Meta struct {
	Model       string   `json:"model,omitempty" yaml:"model"`
	Temperature *float64 `json:"temperature,omitempty" yaml:"temperature"`
	MaxTokens   *int     `json:"max_tokens,omitempty" yaml:"max_tokens"`
	DisplayName string   `json:"display_name,omitempty" yaml:"display_name"`
}

// DefaultTemperatureLabel is reported when a template has no temperature configured.
const DefaultTemperatureLabel = "default"

// TemperatureLabel renders the configured temperature for display.
func (m Meta) TemperatureLabel() string {
	if m.Temperature == nil {
		return DefaultTemperatureLabel
	}
	return strconv.FormatFloat(*m.Temperature, 'f', -1, 64)
}

// Name strips the persona prefix from an alias: "persona-friendly" -> "friendly".
func Name(alias string) string {
	return strings.TrimPrefix(alias, AliasPrefix)
}

// IsPersonaAlias reports whether alias names a persona entry.
func IsPersonaAlias(alias string) bool {
	return strings.HasPrefix(alias, AliasPrefix)
}
