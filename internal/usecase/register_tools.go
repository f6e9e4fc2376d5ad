package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/i2y/mcptime/internal/domain"
)

// RegisterToolsUseCase loads the tool descriptors into the repository at startup.
type RegisterToolsUseCase struct {
	repository ToolSaver
	resolver   TimezoneResolver
	logger     *slog.Logger
}

// ToolSaver is the write side of ToolRepository used at startup.
type ToolSaver interface {
	Save(ctx context.Context, tools []domain.Tool) error
}

// NewRegisterToolsUseCase creates a new RegisterToolsUseCase.
func NewRegisterToolsUseCase(repository ToolSaver, resolver TimezoneResolver, logger *slog.Logger) *RegisterToolsUseCase {
	return &RegisterToolsUseCase{
		repository: repository,
		resolver:   resolver,
		logger:     logger.With("usecase", "RegisterTools"),
	}
}

// Execute builds the descriptors for the resolver's default zone and saves them.
// It returns the registered tools.
func (uc *RegisterToolsUseCase) Execute(ctx context.Context) ([]domain.Tool, error) {
	localZone := uc.resolver.DefaultName()
	log := uc.logger.With(slog.String("local_timezone", localZone))

	tools := TimeTools(localZone)
	for _, tool := range tools {
		if !domain.ToolName(tool.Name).Valid() {
			log.Error("Refusing to register unknown tool", slog.String("tool_name", tool.Name))
			return nil, fmt.Errorf("%w: %s", domain.ErrUnknownTool, tool.Name)
		}
	}

	if err := uc.repository.Save(ctx, tools); err != nil {
		log.Error("Failed to save tools", slog.Any("error", err))
		return nil, fmt.Errorf("failed to register tools: %w", err)
	}

	log.Info("Tools registered", slog.Int("tool_count", len(tools)))
	return tools, nil
}
