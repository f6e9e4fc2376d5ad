package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/i2y/mcptime/internal/domain"
)

// ServeToolsUseCase lists the tools advertised to clients.
type ServeToolsUseCase struct {
	repository ToolRepository
	logger     *slog.Logger
}

// NewServeToolsUseCase creates a new ServeToolsUseCase.
func NewServeToolsUseCase(repository ToolRepository, logger *slog.Logger) *ServeToolsUseCase {
	return &ServeToolsUseCase{
		repository: repository,
		logger:     logger.With("usecase", "ServeTools"),
	}
}

// Execute returns the stored tools in registration order. Descriptors whose
// name is not a known domain.ToolName are left out, since no invoker can run them.
func (uc *ServeToolsUseCase) Execute(ctx context.Context) ([]domain.Tool, error) {
	tools, err := uc.repository.List(ctx)
	if err != nil {
		uc.logger.Error("Failed to list tools from repository", slog.Any("error", err))
		return nil, fmt.Errorf("failed to list tools from repository: %w", err)
	}

	served := tools[:0:0]
	for _, tool := range tools {
		if !domain.ToolName(tool.Name).Valid() {
			uc.logger.Warn("Skipping tool without an invoker", slog.String("tool_name", tool.Name))
			continue
		}
		served = append(served, tool)
	}
	uc.logger.Debug("Listed tools", slog.Int("count", len(served)))
	return served, nil
}
