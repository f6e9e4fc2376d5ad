package memrepo

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/i2y/mcptime/internal/domain"
	"github.com/i2y/mcptime/internal/usecase"
)

// InMemoryToolRepository provides an in-memory implementation of the ToolRepository.
// Tools are listed in the order they were first saved.
type InMemoryToolRepository struct {
	mu     sync.RWMutex
	order  []string               // Tool names in registration order
	tools  map[string]domain.Tool // Map tool name to Tool definition
	logger *slog.Logger
}

// NewInMemoryToolRepository creates a new in-memory repository.
func NewInMemoryToolRepository(logger *slog.Logger) *InMemoryToolRepository {
	return &InMemoryToolRepository{
		tools:  make(map[string]domain.Tool),
		logger: logger.With("component", "mem_repo"),
	}
}

// Save stores the given tools. Saving a name twice replaces the definition
// but keeps its original position.
func (r *InMemoryToolRepository) Save(ctx context.Context, tools []domain.Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[string]struct{}, len(tools))
	for _, tool := range tools {
		if _, dup := seen[tool.Name]; dup {
			r.logger.Error("Failed to save tools", slog.String("reason", "duplicate name"), slog.String("tool_name", tool.Name))
			return fmt.Errorf("save failed: duplicate tool name %q", tool.Name)
		}
		seen[tool.Name] = struct{}{}
	}

	count := 0
	for i, tool := range tools {
		if tool.Name == "" {
			r.logger.Warn("Skipping tool with empty name during save", slog.Int("index", i))
			continue
		}
		if _, exists := r.tools[tool.Name]; !exists {
			r.order = append(r.order, tool.Name)
		}
		r.tools[tool.Name] = tool
		count++
	}
	r.logger.Info("Saved tools", slog.Int("count", count), slog.Int("total_tools", len(r.tools)))
	return nil
}

// List returns all tools currently stored in memory, in registration order.
// The returned slice is a copy.
func (r *InMemoryToolRepository) List(ctx context.Context) ([]domain.Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := make([]domain.Tool, 0, len(r.order))
	for _, name := range r.order {
		list = append(list, r.tools[name])
	}
	r.logger.Debug("Listed tools from repository", slog.Int("count", len(list)))
	return list, nil
}

// FindToolByName retrieves a tool definition by its name.
func (r *InMemoryToolRepository) FindToolByName(ctx context.Context, name string) (*domain.Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tool, ok := r.tools[name]
	if !ok {
		r.logger.Debug("Tool definition not found", slog.String("tool_name", name))
		return nil, usecase.ErrToolNotFound
	}
	return &tool, nil
}
