package domain

// ToolName identifies one of the tools served by mcptime.
// The set is closed: every value must be handled by the invoker router.
type ToolName string

const (
	ToolGetCurrentTime ToolName = "get_current_time"
	ToolConvertTime    ToolName = "convert_time"
)

// ToolNames lists every known tool in registration order.
var ToolNames = []ToolName{ToolGetCurrentTime, ToolConvertTime}

// Valid reports whether n is one of the known tool names.
func (n ToolName) Valid() bool {
	for _, known := range ToolNames {
		if n == known {
			return true
		}
	}
	return false
}

// Tool represents a callable function exposed over the Model Context Protocol (MCP).
// Tools are defined once at startup and never mutated afterwards.
type Tool struct {
	// Name MUST be unique within the MCP server.
	Name string `json:"name"`

	// Description provides a natural language explanation of what the tool does.
	// This is crucial for the LLM to understand when to use the tool.
	Description string `json:"description"`

	// InputSchema defines the structure of the arguments the tool expects.
	// Uses JSON Schema format.
	InputSchema JSONSchemaProps `json:"inputSchema"`

	// ReadOnly marks tools that do not modify their environment.
	ReadOnly bool `json:"-"`
}

// JSONSchemaProps represents the properties of a JSON schema,
// used for tool input definitions.
type JSONSchemaProps struct {
	Type        string                     `json:"type"`                  // e.g., "object", "string"
	Description string                     `json:"description,omitempty"` // Human-readable explanation of the field
	Properties  map[string]JSONSchemaProps `json:"properties,omitempty"`  // For type "object"
	Required    []string                   `json:"required,omitempty"`    // For type "object"
	Pattern     string                     `json:"pattern,omitempty"`     // For type "string"
}

// IsRequired reports whether the named property is listed as required.
func (s JSONSchemaProps) IsRequired(name string) bool {
	for _, r := range s.Required {
		if r == name {
			return true
		}
	}
	return false
}
