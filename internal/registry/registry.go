// Package registry stores versioned prompt templates grouped by project and
// reachable through human-readable aliases.
package registry

import (
	"context"
	"errors"

	"github.com/zhouzirui/persona-chat/backend/internal/model/persona"
)

var (
	ErrNotFound      = errors.New("prompt not found")
	ErrAliasRequired = errors.New("alias is required")
)

// Registration is the payload of a single Register call.
type Registration struct {
	Task     string
	Template string
	Meta     persona.Meta
	Tags     []string
	Project  string
	Author   string
}

// Registry is the prompt store consumed by the chat controller and the seeder.
type Registry interface {
	// ListByProject returns every entry of a project in registration order.
	ListByProject(ctx context.Context, project string) ([]persona.Entry, error)
	// GetByAlias returns ErrNotFound when no entry carries alias.
	GetByAlias(ctx context.Context, alias string) (persona.Entry, error)
	Register(ctx context.Context, reg Registration) (persona.Entry, error)
	// BindAlias points alias at entryID, detaching it from any previous entry.
	BindAlias(ctx context.Context, entryID, alias string) error
}
