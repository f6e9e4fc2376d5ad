package mcpjsonrpc

import (
	"bytes"
	"encoding/json"
)

// Based on JSON-RPC 2.0 Specification: https://www.jsonrpc.org/specification

// Version is the only protocol version accepted in the "jsonrpc" member.
const Version = "2.0"

// Request represents a JSON-RPC request or notification object.
// Params and ID are kept raw so they can be decoded per method and echoed verbatim.
type Request struct {
	Version string          `json:"jsonrpc"`          // MUST be "2.0"
	Method  string          `json:"method"`           // Method to be invoked
	Params  json.RawMessage `json:"params,omitempty"` // Parameters (structured value or array)
	ID      json.RawMessage `json:"id,omitempty"`     // Request identifier (string, number, or null)
}

// IsNotification reports whether the request carries no id.
// Notifications never receive a response.
func (r *Request) IsNotification() bool {
	return len(bytes.TrimSpace(r.ID)) == 0
}

// Response represents a JSON-RPC response object.
type Response struct {
	Version string          `json:"jsonrpc"`          // MUST be "2.0"
	Result  interface{}     `json:"result,omitempty"` // Required on success
	Error   *Error          `json:"error,omitempty"`  // Required on error
	ID      json.RawMessage `json:"id"`               // Must match request ID (or null if could not be determined)
}

// Error represents a JSON-RPC error object.
type Error struct {
	Code    int         `json:"code"`           // Error code
	Message string      `json:"message"`        // Error message
	Data    interface{} `json:"data,omitempty"` // Additional data about the error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Message
}

// Error codes defined by JSON-RPC 2.0.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
)

var nullID = json.RawMessage("null")

// NewResult builds a success response for id.
func NewResult(id json.RawMessage, result interface{}) *Response {
	return &Response{Version: Version, Result: result, ID: normalizeID(id)}
}

// NewError builds an error response for id. A missing id is encoded as null.
func NewError(id json.RawMessage, code int, message string) *Response {
	return &Response{
		Version: Version,
		Error:   &Error{Code: code, Message: message},
		ID:      normalizeID(id),
	}
}

func normalizeID(id json.RawMessage) json.RawMessage {
	if len(bytes.TrimSpace(id)) == 0 {
		return nullID
	}
	return id
}
