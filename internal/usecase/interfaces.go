package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/i2y/mcptime/internal/domain"
)

// Standard errors returned by use cases and adapters.
var (
	ErrToolNotFound = errors.New("tool not found")
)

// --- Time Related ---

// TimezoneResolver resolves IANA timezone names.
// An empty name resolves to the configured default zone.
type TimezoneResolver interface {
	Resolve(name string) (*time.Location, error)
	DefaultName() string
}

// Clock supplies the current instant. Tests substitute a fixed clock.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to the Clock interface.
type ClockFunc func() time.Time

// Now calls f.
func (f ClockFunc) Now() time.Time { return f() }

// SystemClock reads the wall clock.
var SystemClock Clock = ClockFunc(time.Now)

// --- Tool Related ---

// ToolRepository defines the contract for storing and retrieving tool descriptors.
type ToolRepository interface {
	// Save registers tools, keeping their order for List.
	Save(ctx context.Context, tools []domain.Tool) error

	// List retrieves all stored tools in registration order.
	List(ctx context.Context) ([]domain.Tool, error)

	// FindToolByName retrieves a specific tool definition by its unique name.
	FindToolByName(ctx context.Context, name string) (*domain.Tool, error)
}

// ToolInvoker executes a validated tool call.
// Implementations return the JSON-serialisable result of the tool.
type ToolInvoker interface {
	Invoke(ctx context.Context, tool domain.ToolName, args map[string]string) (interface{}, error)
}
