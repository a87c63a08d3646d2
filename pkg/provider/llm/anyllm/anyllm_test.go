package anyllm

import (
	"testing"

	anyllmlib "github.com/mozilla-ai/any-llm-go"

	"github.com/MrWong99/voxa/pkg/provider/llm"
	"github.com/MrWong99/voxa/pkg/types"
)

func TestConvertMessage(t *testing.T) {
	tests := []struct {
		name string
		in   types.Message
	}{
		{"system", types.Message{Role: types.RoleSystem, Content: "You are helpful."}},
		{"user", types.Message{Role: types.RoleUser, Content: "안녕하세요", Name: "alice"}},
		{"assistant", types.Message{Role: types.RoleAssistant, Content: "Hi there!"}},
		{"tool", types.Message{Role: types.RoleTool, Content: "sunny", ToolCallID: "call_1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := convertMessage(tt.in)
			if got.Role != tt.in.Role {
				t.Errorf("role = %q, want %q", got.Role, tt.in.Role)
			}
			if got.ContentString() != tt.in.Content {
				t.Errorf("content = %q, want %q", got.ContentString(), tt.in.Content)
			}
			if got.Name != tt.in.Name {
				t.Errorf("name = %q, want %q", got.Name, tt.in.Name)
			}
			if got.ToolCallID != tt.in.ToolCallID {
				t.Errorf("tool call id = %q, want %q", got.ToolCallID, tt.in.ToolCallID)
			}
			if len(got.ToolCalls) != 0 {
				t.Errorf("expected no tool calls, got %d", len(got.ToolCalls))
			}
		})
	}
}

func TestConvertMessage_AssistantWithToolCalls(t *testing.T) {
	got := convertMessage(types.Message{
		Role: types.RoleAssistant,
		ToolCalls: []types.ToolCall{
			{ID: "call_1", Name: "get_current_weather", Arguments: `{"location":"Seoul"}`},
		},
	})
	if len(got.ToolCalls) != 1 {
		t.Fatalf("expected 1 tool call, got %d", len(got.ToolCalls))
	}
	tc := got.ToolCalls[0]
	if tc.ID != "call_1" || tc.Type != "function" {
		t.Errorf("unexpected tool call header: %+v", tc)
	}
	if tc.Function.Name != "get_current_weather" || tc.Function.Arguments != `{"location":"Seoul"}` {
		t.Errorf("unexpected function: %+v", tc.Function)
	}
}

func TestBuildParams(t *testing.T) {
	p := &Provider{model: "claude-3-5-haiku-latest"}
	req := llm.CompletionRequest{
		SystemPrompt: "be brief",
		Messages:     []types.Message{{Role: types.RoleUser, Content: "hi"}},
		Tools:        []types.ToolDefinition{{Name: "get_latest_news", Parameters: map[string]any{"type": "object"}}},
		Temperature:  0.9,
		MaxTokens:    300,
	}

	params := p.buildParams(req)
	if params.Model != "claude-3-5-haiku-latest" {
		t.Errorf("model = %q", params.Model)
	}
	if len(params.Messages) != 2 || params.Messages[0].Role != anyllmlib.RoleSystem {
		t.Fatalf("expected leading system message, got %+v", params.Messages)
	}
	if params.Temperature == nil || *params.Temperature != 0.9 {
		t.Errorf("temperature = %v", params.Temperature)
	}
	if params.MaxTokens == nil || *params.MaxTokens != 300 {
		t.Errorf("max tokens = %v", params.MaxTokens)
	}
	if len(params.Tools) != 1 || params.Tools[0].Function.Name != "get_latest_news" {
		t.Errorf("unexpected tools: %+v", params.Tools)
	}

	req.ToolChoice = llm.ToolChoiceNone
	if got := p.buildParams(req); len(got.Tools) != 0 {
		t.Errorf("tool choice none: expected no tools, got %d", len(got.Tools))
	}
}

func TestBuildParams_ZeroValuesLeaveDefaults(t *testing.T) {
	p := &Provider{model: "gpt-4o"}
	params := p.buildParams(llm.CompletionRequest{Messages: []types.Message{{Role: types.RoleUser, Content: "x"}}})
	if params.Temperature != nil {
		t.Error("expected nil temperature")
	}
	if params.MaxTokens != nil {
		t.Error("expected nil max tokens")
	}
}

func TestModelCapabilities(t *testing.T) {
	tests := []struct {
		model     string
		window    int
		maxOut    int
		toolCalls bool
	}{
		{"gpt-4o-mini", 128_000, 16_384, true},
		{"GPT-4O", 128_000, 16_384, true},
		{"gpt-4-turbo", 128_000, 4_096, true},
		{"gpt-4", 8_192, 4_096, true},
		{"gpt-3.5-turbo", 16_385, 4_096, true},
		{"o1-mini", 128_000, 65_536, false},
		{"o1", 200_000, 100_000, true},
		{"claude-3-5-sonnet-latest", 200_000, 8_192, true},
		{"claude-3-opus-20240229", 200_000, 4_096, true},
		{"gemini-2.0-flash", 1_048_576, 8_192, true},
		{"gemini-1.5-pro", 2_097_152, 8_192, true},
		{"gemini-pro", 128_000, 8_192, true},
		{"my-custom-model", 128_000, 4_096, true},
	}
	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			caps := modelCapabilities(tt.model)
			if caps.ContextWindow != tt.window {
				t.Errorf("context window = %d, want %d", caps.ContextWindow, tt.window)
			}
			if caps.MaxOutputTokens != tt.maxOut {
				t.Errorf("max output = %d, want %d", caps.MaxOutputTokens, tt.maxOut)
			}
			if caps.SupportsToolCalling != tt.toolCalls {
				t.Errorf("tool calling = %v, want %v", caps.SupportsToolCalling, tt.toolCalls)
			}
		})
	}
}

func TestNew_Validation(t *testing.T) {
	if _, err := New("", "gpt-4o"); err == nil {
		t.Error("expected error for empty vendor")
	}
	if _, err := New("openai", ""); err == nil {
		t.Error("expected error for empty model")
	}
	if _, err := New("fakecloud", "some-model", anyllmlib.WithAPIKey("dummy")); err == nil {
		t.Error("expected error for unsupported vendor")
	}
}

func TestNew_Backends(t *testing.T) {
	tests := []struct {
		vendor string
		model  string
		opts   []anyllmlib.Option
	}{
		{"openai", "gpt-4o", []anyllmlib.Option{anyllmlib.WithAPIKey("sk-test")}},
		{"anthropic", "claude-3-5-sonnet-latest", []anyllmlib.Option{anyllmlib.WithAPIKey("sk-ant-test")}},
		{"ollama", "llama3", nil},
	}
	for _, tt := range tests {
		t.Run(tt.vendor, func(t *testing.T) {
			p, err := New(tt.vendor, tt.model, tt.opts...)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if p.model != tt.model {
				t.Errorf("model = %q, want %q", p.model, tt.model)
			}
		})
	}
}

func TestSupported(t *testing.T) {
	if !Supported("Anthropic") {
		t.Error("expected anthropic to be supported")
	}
	if Supported("fakecloud") {
		t.Error("expected fakecloud to be unsupported")
	}
}
