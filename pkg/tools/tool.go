// Package tools defines the contract between tool implementations and the
// MCP server, plus the helpers every tool shares: schema generation from
// argument structs, argument decoding, result rendering, glob based
// filtering and the registry the server dispatches from.
package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
)

// Tool is a capability exposed through tools/list and tools/call.
type Tool interface {
	// Name returns the unique identifier for this tool (e.g., "translate_web")
	Name() string

	// Description returns a human-readable description of what this tool does
	Description() string

	// Schema returns the JSON schema for this tool's input parameters.
	// Arguments are validated against it before Execute is called.
	Schema() map[string]interface{}

	// Execute runs the tool with the given JSON arguments and returns a result string.
	// Returns: (result string, metadata map, error)
	// Metadata is optional and can be nil; it is logged, never sent to the client.
	Execute(ctx context.Context, args json.RawMessage) (string, map[string]interface{}, error)
}

// DecodeArgs unmarshals tool arguments into a T. Missing or null arguments
// decode as an empty object.
func DecodeArgs[T any](args json.RawMessage) (T, error) {
	var v T
	trimmed := bytes.TrimSpace(args)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return v, nil
	}
	if err := json.Unmarshal(trimmed, &v); err != nil {
		return v, fmt.Errorf("invalid arguments: %w", err)
	}
	return v, nil
}

// ResultText renders a tool result as text content. Strings pass through,
// everything else is indented JSON.
func ResultText(v any) (string, error) {
	if s, ok := v.(string); ok {
		return s, nil
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode result: %w", err)
	}
	return string(data), nil
}

// RawJSON re-encodes a loosely typed argument (decoded into any) so it can
// be forwarded verbatim. Nil yields nil.
func RawJSON(v any) (json.RawMessage, error) {
	if v == nil {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return data, nil
}
