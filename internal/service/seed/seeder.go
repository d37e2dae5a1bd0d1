// Package seed registers the built-in persona catalog and reports what the
// registry currently holds.
package seed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/zhouzirui/persona-chat/backend/internal/model/persona"
	"github.com/zhouzirui/persona-chat/backend/internal/registry"
)

// SentinelAlias is checked before seeding; its presence means the catalog is already registered.
const SentinelAlias = "persona-friendly"

// Seeder writes a persona catalog into one registry project.
type Seeder struct {
	registry registry.Registry
	catalog  persona.Catalog
	project  string
	author   string
	out      io.Writer
	logger   *zap.Logger
}

// NewSeeder creates a seeder. Progress is printed to out.
func NewSeeder(reg registry.Registry, catalog persona.Catalog, project, author string, out io.Writer, logger *zap.Logger) *Seeder {
	if logger == nil {
		logger = zap.NewNop()
	}
	if out == nil {
		out = io.Discard
	}
	return &Seeder{
		registry: reg,
		catalog:  catalog,
		project:  project,
		author:   author,
		out:      out,
		logger:   logger,
	}
}

// Seed registers every catalog persona unless SentinelAlias already exists.
// It returns the number of personas registered.
func (s *Seeder) Seed(ctx context.Context) (int, error) {
	fmt.Fprintln(s.out, "Setting up persona prompts...")

	_, err := s.registry.GetByAlias(ctx, SentinelAlias)
	if err == nil {
		fmt.Fprintln(s.out, "Persona prompts already exist in the registry.")
		return 0, nil
	}
	if !errors.Is(err, registry.ErrNotFound) {
		return 0, fmt.Errorf("check existing personas: %w", err)
	}

	registered := 0
	for _, def := range s.catalog.Personas {
		fmt.Fprintf(s.out, "Registering %s persona (%s)...\n", persona.Name(def.Alias), def.Meta.DisplayName)

		entry, err := s.registry.Register(ctx, registry.Registration{
			Task:     s.catalog.Task,
			Template: def.Template,
			Meta:     def.Meta,
			Tags:     def.Tags,
			Project:  s.project,
			Author:   s.author,
		})
		if err != nil {
			return registered, fmt.Errorf("register persona %s: %w", def.Alias, err)
		}
		registered++

		// A failed bind leaves the entry registered but unreachable by alias.
		if err := s.registry.BindAlias(ctx, entry.ID, def.Alias); err != nil {
			s.logger.Debug("alias binding failed",
				zap.String("alias", def.Alias),
				zap.String("entry_id", entry.ID),
				zap.Error(err))
		}
	}

	fmt.Fprintln(s.out, "All persona prompts registered successfully!")
	fmt.Fprintln(s.out, "\nAvailable personas:")
	for _, def := range s.catalog.Personas {
		fmt.Fprintf(s.out, "- %s: %s\n", def.Label, def.Meta.DisplayName)
	}
	return registered, nil
}

// PersonaStat is one row of the statistics report.
type PersonaStat struct {
	Alias       string
	Name        string
	Temperature string
}

// Stats lists every entry of the project.
func (s *Seeder) Stats(ctx context.Context) ([]PersonaStat, error) {
	entries, err := s.registry.ListByProject(ctx, s.project)
	if err != nil {
		return nil, fmt.Errorf("list personas: %w", err)
	}

	stats := make([]PersonaStat, 0, len(entries))
	for _, entry := range entries {
		alias := entry.Alias
		if alias == "" {
			alias = "No alias"
		}
		name := entry.Meta.DisplayName
		if name == "" {
			name = ExtractName(entry.Template)
		}
		stats = append(stats, PersonaStat{
			Alias:       alias,
			Name:        name,
			Temperature: entry.Meta.TemperatureLabel(),
		})
	}
	return stats, nil
}

// PrintStats writes the statistics report to the seeder's output.
func (s *Seeder) PrintStats(ctx context.Context) error {
	stats, err := s.Stats(ctx)
	if err != nil {
		return err
	}

	if len(stats) == 0 {
		fmt.Fprintln(s.out, "No personas found in the registry.")
		return nil
	}

	fmt.Fprintln(s.out, "\nPersona Statistics:")
	fmt.Fprintf(s.out, "Total personas: %d\n", len(stats))
	for _, st := range stats {
		fmt.Fprintf(s.out, "- %s: %s (temperature: %s)\n", st.Alias, st.Name, st.Temperature)
	}
	return nil
}

// UnknownName is reported when no display name can be derived from a template.
const UnknownName = "Unknown"

// ExtractName guesses a persona's name from text shaped like
// "You are ... named Luna." It is a display hint only.
func ExtractName(template string) string {
	_, afterYouAre, ok := strings.Cut(template, "You are")
	if !ok {
		return UnknownName
	}
	afterYouAre, _, _ = strings.Cut(afterYouAre, "You are")

	_, afterNamed, ok := strings.Cut(afterYouAre, "named")
	if !ok {
		return UnknownName
	}
	afterNamed, _, _ = strings.Cut(afterNamed, "named")

	name, _, _ := strings.Cut(strings.TrimSpace(afterNamed), ".")
	if name == "" {
		return UnknownName
	}
	return name
}
