package persona

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	model "github.com/zhouzirui/persona-chat/backend/internal/model/persona"
	"github.com/zhouzirui/persona-chat/backend/internal/registry"
)

func entry(alias, project string) model.Entry {
	return model.Entry{ID: alias + "-id", Alias: alias, Project: project, Template: "{memory_context} {user_message}"}
}

type brokenRegistry struct{ registry.Registry }

func (brokenRegistry) ListByProject(context.Context, string) ([]model.Entry, error) {
	return nil, errors.New("database is locked")
}

func (brokenRegistry) GetByAlias(context.Context, string) (model.Entry, error) {
	return model.Entry{}, errors.New("database is locked")
}

func TestOptionsFiltersAndTitleCases(t *testing.T) {
	reg := registry.NewMemoryRegistry(
		entry("persona-comedian", "memory-chatbot"),
		entry("summary", "memory-chatbot"),
		entry("", "memory-chatbot"),
		entry("persona-friendly", "memory-chatbot"),
		entry("persona-poetic", "other-project"),
	)
	set := NewResolver(reg, "memory-chatbot", nil).Options(context.Background())

	assert.Equal(t, []Option{
		{Alias: "persona-comedian", DisplayName: "Comedian"},
		{Alias: "persona-friendly", DisplayName: "Friendly"},
	}, set.Options)
	assert.Equal(t, "persona-friendly", set.Default)
	assert.Empty(t, set.Warning)
}

func TestOptionsFallbackWhenEmpty(t *testing.T) {
	set := NewResolver(registry.NewMemoryRegistry(), "memory-chatbot", nil).Options(context.Background())

	assert.Equal(t, FallbackOptions(), set.Options)
	assert.Len(t, set.Options, 2)
	assert.Equal(t, "persona-friendly", set.Default)
	assert.NotEmpty(t, set.Warning)
}

func TestOptionsFallbackWhenRegistryFails(t *testing.T) {
	set := NewResolver(brokenRegistry{}, "memory-chatbot", nil).Options(context.Background())

	assert.Equal(t, FallbackOptions(), set.Options)
	assert.Contains(t, set.Warning, "database is locked")
}

func TestOptionsDedupesByAlias(t *testing.T) {
	reg := registry.NewMemoryRegistry(
		entry("persona-boss", "memory-chatbot"),
		entry("persona-boss", "memory-chatbot"),
	)
	set := NewResolver(reg, "memory-chatbot", nil).Options(context.Background())
	assert.Len(t, set.Options, 1)
}

func TestDefaultSelection(t *testing.T) {
	assert.Equal(t, "persona-friendly", DefaultSelection([]Option{{Alias: "persona-boss"}, {Alias: "persona-friendly"}}))
	assert.Equal(t, "persona-boss", DefaultSelection([]Option{{Alias: "persona-boss"}, {Alias: "persona-poetic"}}))
	assert.Empty(t, DefaultSelection(nil))
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "Sherlock", DisplayName("persona-sherlock"))
}

func TestResolveFound(t *testing.T) {
	reg := registry.NewMemoryRegistry(entry("persona-friendly", "memory-chatbot"))
	res := NewResolver(reg, "memory-chatbot", nil).Resolve(context.Background(), "persona-friendly")

	require.True(t, res.Found)
	assert.Equal(t, "friendly", res.Name)
	assert.Equal(t, "{memory_context} {user_message}", res.Entry.Template)
	assert.Empty(t, res.Warning)
}

func TestResolveMissUsesFallbackPrompt(t *testing.T) {
	for name, reg := range map[string]registry.Registry{
		"not-found": registry.NewMemoryRegistry(),
		"broken":    brokenRegistry{},
	} {
		t.Run(name, func(t *testing.T) {
			res := NewResolver(reg, "memory-chatbot", nil).Resolve(context.Background(), "persona-pirate")

			assert.False(t, res.Found)
			assert.Equal(t, "You are a helpful assistant with a pirate personality.", res.SystemPrompt)
			assert.Contains(t, res.Warning, "persona-pirate")
		})
	}
}
