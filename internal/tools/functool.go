package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/kaptinlin/jsonrepair"

	"github.com/MrWong99/voxa/pkg/types"
)

// ErrInvalidArguments is returned when tool arguments cannot be decoded, even
// after repair.
var ErrInvalidArguments = errors.New("invalid arguments")

// Handler runs one tool call. args is the JSON object string the model sent.
// A returned error is reported to the model as an error result.
type Handler func(ctx context.Context, args string) (string, error)

// Tool is an in-process tool.
type Tool struct {
	Definition types.ToolDefinition
	Handler    Handler
}

// NewFuncTool builds a [Tool] whose parameter schema is derived from Args and
// whose handler decodes the model's arguments into Args before calling fn.
// fn's result is returned verbatim when it is a string and JSON-encoded
// otherwise.
func NewFuncTool[Args any](name, description string, fn func(ctx context.Context, args Args) (any, error)) (Tool, error) {
	schema, err := jsonschema.For[Args](&jsonschema.ForOptions{})
	if err != nil {
		return Tool{}, fmt.Errorf("tools: schema for %q: %w", name, err)
	}
	params, err := schemaToMap(schema)
	if err != nil {
		return Tool{}, fmt.Errorf("tools: schema for %q: %w", name, err)
	}

	return Tool{
		Definition: types.ToolDefinition{
			Name:        name,
			Description: description,
			Parameters:  params,
		},
		Handler: func(ctx context.Context, raw string) (string, error) {
			var args Args
			if err := DecodeArgs(raw, &args); err != nil {
				return "", err
			}
			out, err := fn(ctx, args)
			if err != nil {
				return "", err
			}
			if s, ok := out.(string); ok {
				return s, nil
			}
			b, err := json.Marshal(out)
			if err != nil {
				return "", fmt.Errorf("tools: encode %q result: %w", name, err)
			}
			return string(b), nil
		},
	}, nil
}

// MustNewFuncTool is like [NewFuncTool] but panics on error.
func MustNewFuncTool[Args any](name, description string, fn func(ctx context.Context, args Args) (any, error)) Tool {
	t, err := NewFuncTool(name, description, fn)
	if err != nil {
		panic(err)
	}
	return t
}

// DecodeArgs unmarshals raw into v. Empty input decodes as "{}". When the
// JSON is malformed it is repaired before a second attempt. Failures wrap
// [ErrInvalidArguments].
func DecodeArgs(raw string, v any) error {
	if raw == "" {
		raw = "{}"
	}
	err := json.Unmarshal([]byte(raw), v)
	if err == nil {
		return nil
	}
	var syntaxErr *json.SyntaxError
	if !errors.As(err, &syntaxErr) {
		return fmt.Errorf("%w: %w", ErrInvalidArguments, err)
	}
	fixed, rerr := jsonrepair.JSONRepair(raw)
	if rerr != nil {
		return fmt.Errorf("%w: %w", ErrInvalidArguments, err)
	}
	if err := json.Unmarshal([]byte(fixed), v); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidArguments, err)
	}
	return nil
}

// schemaToMap converts any schema value to the map form carried by
// [types.ToolDefinition].
func schemaToMap(schema any) (map[string]any, error) {
	if schema == nil {
		return map[string]any{"type": "object"}, nil
	}
	if m, ok := schema.(map[string]any); ok {
		return m, nil
	}
	data, err := json.Marshal(schema)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}
