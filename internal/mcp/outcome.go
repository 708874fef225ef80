package mcp

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/barragehq/barrage/internal/artillery"
	"github.com/barragehq/barrage/internal/runner"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Error codes exposed in the outcome envelope.
const (
	codeExecution    = "EXECUTION_ERROR"
	codeParse        = "PARSE_ERROR"
	codeCapabilities = "CAPABILITIES_ERROR"
	codeInternal     = "INTERNAL_ERROR"
)

// outcome is the uniform result shape every tool returns, serialized
// as JSON text content.
type outcome struct {
	Status string        `json:"status"`
	Data   any           `json:"data,omitempty"`
	Error  *outcomeError `json:"error,omitempty"`
}

type outcomeError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// okResult builds a success outcome.
func okResult(data any) (*mcp.CallToolResult, any, error) {
	return envelope(&outcome{Status: "ok", Data: data}, false)
}

// failResult builds an error outcome with the given code.
func failResult(code string, err error) (*mcp.CallToolResult, any, error) {
	return envelope(&outcome{
		Status: "error",
		Error: &outcomeError{
			Code:    code,
			Message: err.Error(),
			Details: classify(err),
		},
	}, true)
}

func envelope(o *outcome, isError bool) (*mcp.CallToolResult, any, error) {
	data, err := json.MarshalIndent(o, "", "  ")
	if err != nil {
		// The outcome types are all marshalable; this is unreachable in
		// practice but must not escape the boundary.
		data = []byte(`{"status":"error","error":{"code":"INTERNAL_ERROR","message":"encoding outcome"}}`)
		isError = true
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
		IsError: isError,
	}, nil, nil
}

// classify names the failure class for the details field.
func classify(err error) string {
	var pathErr *artillery.PathError
	if errors.As(err, &pathErr) {
		return "path_" + string(pathErr.Kind)
	}
	var disabled *artillery.QuickDisabledError
	if errors.As(err, &disabled) {
		return "quick_disabled"
	}
	var parseErr *artillery.ParseError
	if errors.As(err, &parseErr) {
		return "result_parse"
	}
	var timeoutErr *runner.TimeoutError
	if errors.As(err, &timeoutErr) {
		return fmt.Sprintf("timeout_after_%s", timeoutErr.Timeout)
	}
	var spawnErr *runner.SpawnError
	if errors.As(err, &spawnErr) {
		return "spawn"
	}
	return ""
}
