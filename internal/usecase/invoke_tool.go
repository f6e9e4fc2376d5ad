package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/i2y/mcptime/internal/domain"
)

// InvokeToolUseCase handles receiving a tool invocation request and executing it.
type InvokeToolUseCase struct {
	repository ToolRepository
	invoker    ToolInvoker
	logger     *slog.Logger
}

// NewInvokeToolUseCase creates a new InvokeToolUseCase.
func NewInvokeToolUseCase(repo ToolRepository, invoker ToolInvoker, logger *slog.Logger) *InvokeToolUseCase {
	return &InvokeToolUseCase{
		repository: repo,
		invoker:    invoker,
		logger:     logger.With("usecase", "InvokeTool"),
	}
}

// Execute finds the tool, validates its required arguments against the
// tool's input schema and uses the ToolInvoker to run it.
//
// Unknown tools fail with domain.ErrUnknownTool; absent or non-string
// required arguments fail with a *domain.ArgumentError.
func (uc *InvokeToolUseCase) Execute(ctx context.Context, toolName string, params map[string]interface{}) (interface{}, error) {
	log := uc.logger.With(slog.String("tool_name", toolName))
	log.Debug("Executing tool invocation")

	// 1. Find Tool Definition
	tool, err := uc.repository.FindToolByName(ctx, toolName)
	if err != nil {
		if errors.Is(err, ErrToolNotFound) {
			log.Warn("Tool definition not found")
			return nil, fmt.Errorf("%w: %s", domain.ErrUnknownTool, toolName)
		}
		log.Error("Tool lookup failed", slog.Any("error", err))
		return nil, fmt.Errorf("tool '%s' lookup failed: %w", toolName, err)
	}

	// 2. Validate Parameters against tool.InputSchema
	args, err := validateInput(tool.InputSchema, params)
	if err != nil {
		log.Warn("Invalid input parameters", slog.Any("error", err))
		return nil, err
	}

	// 3. Invoke
	result, err := uc.invoker.Invoke(ctx, domain.ToolName(tool.Name), args)
	if err != nil {
		log.Info("Tool invocation failed", slog.Any("error", err))
		return nil, err
	}

	log.Debug("Tool invocation successful", slog.Any("result", result))
	return result, nil
}

// validateInput checks every required property is present as a non-empty
// string and returns the string-valued arguments. Optional properties are
// passed through when they are strings; everything else is dropped.
func validateInput(schema domain.JSONSchemaProps, params map[string]interface{}) (map[string]string, error) {
	for _, name := range schema.Required {
		raw, ok := params[name]
		if !ok || raw == nil {
			return nil, &domain.ArgumentError{Argument: name, Err: domain.ErrMissingArgument}
		}
		s, ok := raw.(string)
		if !ok {
			return nil, &domain.ArgumentError{Argument: name, Err: domain.ErrInvalidArgument}
		}
		if s == "" {
			return nil, &domain.ArgumentError{Argument: name, Err: domain.ErrMissingArgument}
		}
	}

	args := make(map[string]string, len(schema.Properties))
	for name := range schema.Properties {
		if s, ok := params[name].(string); ok {
			args[name] = s
		}
	}
	return args, nil
}
