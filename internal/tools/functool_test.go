package tools

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
)

func TestNewFuncTool_Schema(t *testing.T) {
	t.Parallel()
	tool, err := NewFuncTool("get_current_weather", "weather",
		func(_ context.Context, a WeatherArgs) (any, error) { return a, nil })
	if err != nil {
		t.Fatalf("NewFuncTool: %v", err)
	}

	params := tool.Definition.Parameters
	if params["type"] != "object" {
		t.Errorf("type = %v, want object", params["type"])
	}
	props, ok := params["properties"].(map[string]any)
	if !ok {
		t.Fatalf("properties = %T, want map", params["properties"])
	}
	if _, ok := props["location"]; !ok {
		t.Error("schema missing location property")
	}
	req, _ := params["required"].([]any)
	if len(req) != 1 || req[0] != "location" {
		t.Errorf("required = %v, want [location]", req)
	}
}

func TestFuncTool_HandlerEncodesResult(t *testing.T) {
	t.Parallel()
	tool := MustNewFuncTool("w", "",
		func(_ context.Context, a WeatherArgs) (any, error) {
			return Weather{Location: a.Location, Temperature: 3, Condition: "x"}, nil
		})

	out, err := tool.Handler(context.Background(), `{"location":"Seoul"}`)
	if err != nil {
		t.Fatalf("Handler: %v", err)
	}
	if out != `{"location":"Seoul","temperature":3,"condition":"x"}` {
		t.Errorf("out = %s", out)
	}
}

func TestFuncTool_StringPassthrough(t *testing.T) {
	t.Parallel()
	tool := MustNewFuncTool("s", "",
		func(_ context.Context, _ NewsArgs) (any, error) { return "plain", nil })
	out, err := tool.Handler(context.Background(), "")
	if err != nil || out != "plain" {
		t.Errorf("Handler = %q, %v; want plain", out, err)
	}
}

func TestFuncTool_HandlerError(t *testing.T) {
	t.Parallel()
	boom := errors.New("boom")
	tool := MustNewFuncTool("e", "",
		func(_ context.Context, _ NewsArgs) (any, error) { return nil, boom })
	if _, err := tool.Handler(context.Background(), "{}"); !errors.Is(err, boom) {
		t.Errorf("err = %v, want %v", err, boom)
	}
}

func TestDecodeArgs(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{name: "valid", raw: `{"location":"Seoul"}`, want: "Seoul"},
		{name: "empty", raw: "", want: ""},
		{name: "truncated", raw: `{"location":"Busan"`, want: "Busan"},
		{name: "single quotes", raw: `{'location': 'Jeju'}`, want: "Jeju"},
		{name: "trailing comma", raw: `{"location":"Daegu",}`, want: "Daegu"},
		{name: "wrong type", raw: `{"location": 7}`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var a WeatherArgs
			err := DecodeArgs(tt.raw, &a)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidArguments) {
					t.Errorf("err = %v, want ErrInvalidArguments", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("DecodeArgs: %v", err)
			}
			if a.Location != tt.want {
				t.Errorf("Location = %q, want %q", a.Location, tt.want)
			}
		})
	}
}

func TestSchemaToMap(t *testing.T) {
	t.Parallel()
	m, err := schemaToMap(json.RawMessage(`{"type":"object","properties":{}}`))
	if err != nil {
		t.Fatalf("schemaToMap: %v", err)
	}
	if m["type"] != "object" {
		t.Errorf("type = %v", m["type"])
	}
	if m, _ := schemaToMap(nil); m["type"] != "object" {
		t.Errorf("nil schema = %v, want object", m)
	}
}
