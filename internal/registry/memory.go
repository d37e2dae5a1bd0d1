package registry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zhouzirui/persona-chat/backend/internal/model/persona"
)

// MemoryRegistry implements Registry with an in-memory slice, suitable for tests and demos.
type MemoryRegistry struct {
	mu    sync.RWMutex
	items []persona.Entry
}

// NewMemoryRegistry returns a MemoryRegistry preloaded with the supplied entries.
func NewMemoryRegistry(items ...persona.Entry) *MemoryRegistry {
	return &MemoryRegistry{items: append([]persona.Entry(nil), items...)}
}

// ListByProject returns a copy of the entries registered under project.
func (r *MemoryRegistry) ListByProject(_ context.Context, project string) ([]persona.Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []persona.Entry
	for _, item := range r.items {
		if item.Project == project {
			out = append(out, cloneEntry(item))
		}
	}
	return out, nil
}

// GetByAlias looks up an entry by alias.
func (r *MemoryRegistry) GetByAlias(_ context.Context, alias string) (persona.Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, item := range r.items {
		if alias != "" && item.Alias == alias {
			return cloneEntry(item), nil
		}
	}
	return persona.Entry{}, ErrNotFound
}

// Register stores a new version of the task's template.
func (r *MemoryRegistry) Register(_ context.Context, reg Registration) (persona.Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	version := 1
	for _, item := range r.items {
		if item.Task == reg.Task && item.Project == reg.Project {
			version++
		}
	}

	entry := persona.Entry{
		ID:        uuid.NewString(),
		Task:      reg.Task,
		Template:  reg.Template,
		Meta:      reg.Meta,
		Tags:      append([]string(nil), reg.Tags...),
		Project:   reg.Project,
		Author:    reg.Author,
		Version:   version,
		CreatedAt: time.Now().UTC(),
	}
	r.items = append(r.items, entry)
	return cloneEntry(entry), nil
}

// BindAlias attaches alias to entryID.
func (r *MemoryRegistry) BindAlias(_ context.Context, entryID, alias string) error {
	if alias == "" {
		return ErrAliasRequired
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	target := -1
	for i := range r.items {
		if r.items[i].ID == entryID {
			target = i
			break
		}
	}
	if target < 0 {
		return fmt.Errorf("bind alias %q: %w", alias, ErrNotFound)
	}

	for i := range r.items {
		if r.items[i].Alias == alias {
			r.items[i].Alias = ""
		}
	}
	r.items[target].Alias = alias
	return nil
}

func cloneEntry(e persona.Entry) persona.Entry {
	e.Tags = append([]string(nil), e.Tags...)
	return e
}
