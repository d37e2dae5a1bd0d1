// Package persona resolves persona aliases against the prompt registry and
// builds the option list offered to chat clients.
package persona

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	model "github.com/zhouzirui/persona-chat/backend/internal/model/persona"
	"github.com/zhouzirui/persona-chat/backend/internal/registry"
	"github.com/zhouzirui/persona-chat/backend/internal/service/ai"
)

// DefaultAlias is preselected whenever it is offered.
const DefaultAlias = "persona-friendly"

// Option is one selectable persona.
type Option struct {
	Alias       string `json:"alias"`
	DisplayName string `json:"displayName"`
}

// OptionSet is the persona list shown to a client plus any warning raised while building it.
type OptionSet struct {
	Options []Option `json:"options"`
	Default string   `json:"default"`
	Warning string   `json:"warning,omitempty"`
}

// FallbackOptions keeps the chat usable when the registry holds no personas.
func FallbackOptions() []Option {
	return []Option{
		{Alias: "persona-friendly", DisplayName: "Friendly"},
		{Alias: "persona-professional", DisplayName: "Professional"},
	}
}

// Resolution is the outcome of looking up the persona for a turn.
type Resolution struct {
	Alias string
	Name  string
	// Found is false when the registry had no usable entry; SystemPrompt then
	// holds a minimal prompt built from the alias alone.
	Found        bool
	Entry        model.Entry
	SystemPrompt string
	Warning      string
}

// Resolver reads personas of one project from the registry.
type Resolver struct {
	registry registry.Registry
	project  string
	logger   *zap.Logger
}

// NewResolver creates a resolver scoped to project.
func NewResolver(reg registry.Registry, project string, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		registry: reg,
		project:  project,
		logger:   logger,
	}
}

// DisplayName turns "persona-friendly" into "Friendly".
func DisplayName(alias string) string {
	// Casers are stateful, so each call gets its own.
	return cases.Title(language.English).String(model.Name(alias))
}

// Options lists the registry's persona aliases. It never returns an empty list.
func (r *Resolver) Options(ctx context.Context) OptionSet {
	entries, err := r.registry.ListByProject(ctx, r.project)
	if err != nil {
		r.logger.Warn("failed to list personas", zap.String("project", r.project), zap.Error(err))
		return newOptionSet(FallbackOptions(), fmt.Sprintf("Persona registry unavailable (%v). Using built-in personas.", err))
	}

	seen := make(map[string]struct{}, len(entries))
	options := make([]Option, 0, len(entries))
	for _, entry := range entries {
		if !model.IsPersonaAlias(entry.Alias) {
			continue
		}
		if _, dup := seen[entry.Alias]; dup {
			continue
		}
		seen[entry.Alias] = struct{}{}
		options = append(options, Option{Alias: entry.Alias, DisplayName: DisplayName(entry.Alias)})
	}

	if len(options) == 0 {
		return newOptionSet(FallbackOptions(), "No persona prompts found in the registry. Please set up persona prompts first.")
	}
	return newOptionSet(options, "")
}

func newOptionSet(options []Option, warning string) OptionSet {
	return OptionSet{Options: options, Default: DefaultSelection(options), Warning: warning}
}

// DefaultSelection prefers DefaultAlias, then the first option.
func DefaultSelection(options []Option) string {
	for _, opt := range options {
		if opt.Alias == DefaultAlias {
			return opt.Alias
		}
	}
	if len(options) == 0 {
		return ""
	}
	return options[0].Alias
}

// Resolve loads the template bound to alias. Lookup failures never abort the
// turn: they yield a fallback prompt and a warning instead.
func (r *Resolver) Resolve(ctx context.Context, alias string) Resolution {
	res := Resolution{Alias: alias, Name: model.Name(alias)}

	entry, err := r.registry.GetByAlias(ctx, alias)
	if err != nil {
		if !errors.Is(err, registry.ErrNotFound) {
			r.logger.Warn("persona lookup failed", zap.String("alias", alias), zap.Error(err))
		}
		res.SystemPrompt = ai.FallbackSystemPrompt(res.Name)
		res.Warning = fmt.Sprintf("Persona '%s' not found in the prompt registry.", alias)
		return res
	}

	res.Found = true
	res.Entry = entry
	return res
}
