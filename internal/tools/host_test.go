package tools

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/MrWong99/voxa/internal/config"
	"github.com/MrWong99/voxa/pkg/types"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────────────────────────────────

// echoTool returns a Tool that echoes its args back as the result.
func echoTool(name string) Tool {
	return Tool{
		Definition: types.ToolDefinition{Name: name, Description: "echoes args"},
		Handler: func(_ context.Context, args string) (string, error) {
			return args, nil
		},
	}
}

// failTool returns a Tool that always returns an error.
func failTool(name string) Tool {
	return Tool{
		Definition: types.ToolDefinition{Name: name},
		Handler: func(_ context.Context, _ string) (string, error) {
			return "", fmt.Errorf("always fails")
		},
	}
}

func must(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func names(defs []types.ToolDefinition) []string {
	out := make([]string, len(defs))
	for i, d := range defs {
		out[i] = d.Name
	}
	return out
}

type greetArgs struct {
	Name string `json:"name"`
}

// newMCPServer starts a streamable-HTTP MCP server exposing a "greet" tool.
// The Authorization header of every request is stored in auth.
func newMCPServer(t *testing.T, auth *atomic.Value) *httptest.Server {
	t.Helper()
	server := mcpsdk.NewServer(&mcpsdk.Implementation{Name: "test", Version: "1.0.0"}, nil)
	mcpsdk.AddTool(server, &mcpsdk.Tool{Name: "greet", Description: "says hello"},
		func(_ context.Context, _ *mcpsdk.CallToolRequest, in greetArgs) (*mcpsdk.CallToolResult, any, error) {
			return &mcpsdk.CallToolResult{
				Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: "hello " + in.Name}},
			}, nil, nil
		})
	handler := mcpsdk.NewStreamableHTTPHandler(func(*http.Request) *mcpsdk.Server { return server }, nil)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth.Store(r.Header.Get("Authorization"))
		handler.ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv
}

// ──────────────────────────────────────────────────────────────────────────────
// Builtin registration
// ──────────────────────────────────────────────────────────────────────────────

func TestRegister(t *testing.T) {
	t.Parallel()
	h := NewHost()
	defer h.Close()

	must(t, h.Register(echoTool("b"), echoTool("a")))

	got := names(h.Definitions())
	if len(got) != 2 || got[0] != "b" || got[1] != "a" {
		t.Errorf("Definitions = %v, want registration order [b a]", got)
	}
}

func TestRegister_Replace(t *testing.T) {
	t.Parallel()
	h := NewHost()
	defer h.Close()

	must(t, h.Register(echoTool("x"), echoTool("y")))
	must(t, h.Register(failTool("x")))

	if got := names(h.Definitions()); len(got) != 2 || got[0] != "x" {
		t.Errorf("Definitions = %v, want [x y]", got)
	}
	res, err := h.Execute(context.Background(), "x", "{}")
	must(t, err)
	if !res.IsError {
		t.Error("replacement handler was not used")
	}
}

func TestRegister_Invalid(t *testing.T) {
	t.Parallel()
	h := NewHost()
	defer h.Close()

	if err := h.Register(Tool{Handler: echoTool("x").Handler}); err == nil {
		t.Error("expected error for empty name")
	}
	if err := h.Register(Tool{Definition: types.ToolDefinition{Name: "no-handler"}}); err == nil {
		t.Error("expected error for nil handler")
	}
	if len(h.Definitions()) != 0 {
		t.Error("invalid tools must not be registered")
	}
}

func TestDefinitions_Subset(t *testing.T) {
	t.Parallel()
	h := NewHost()
	defer h.Close()
	must(t, h.Register(echoTool("a"), echoTool("b"), echoTool("c")))

	got := names(h.Definitions("c", "missing", "a"))
	if len(got) != 2 || got[0] != "c" || got[1] != "a" {
		t.Errorf("Definitions(c, missing, a) = %v, want [c a]", got)
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Execution
// ──────────────────────────────────────────────────────────────────────────────

func TestExecute_Builtin(t *testing.T) {
	t.Parallel()
	h := NewHost()
	defer h.Close()
	must(t, h.Register(echoTool("echo")))

	res, err := h.Execute(context.Background(), "echo", `{"msg":"hello"}`)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.Content != `{"msg":"hello"}` || res.IsError {
		t.Errorf("result = %+v", res)
	}
}

func TestExecute_BuiltinError(t *testing.T) {
	t.Parallel()
	h := NewHost()
	defer h.Close()
	must(t, h.Register(failTool("boom")))

	res, err := h.Execute(context.Background(), "boom", "{}")
	if err != nil {
		t.Fatalf("Execute returned unexpected error: %v", err)
	}
	if !res.IsError || res.Content != "always fails" {
		t.Errorf("result = %+v, want IsError with handler message", res)
	}
}

func TestExecute_UnknownTool(t *testing.T) {
	t.Parallel()
	h := NewHost()
	defer h.Close()

	_, err := h.Execute(context.Background(), "nonexistent", "{}")
	if !errors.Is(err, ErrUnknownTool) {
		t.Errorf("err = %v, want ErrUnknownTool", err)
	}
}

func TestExecute_InvalidArguments(t *testing.T) {
	t.Parallel()
	h := NewHost()
	defer h.Close()
	must(t, h.Register(MustNewFuncTool("greet", "greets",
		func(_ context.Context, a greetArgs) (any, error) { return "hi " + a.Name, nil })))

	_, err := h.Execute(context.Background(), "greet", `{"name": 42}`)
	if !errors.Is(err, ErrInvalidArguments) {
		t.Errorf("err = %v, want ErrInvalidArguments", err)
	}
}

func TestExecute_Concurrent(t *testing.T) {
	t.Parallel()
	h := NewHost()
	defer h.Close()
	must(t, h.Register(echoTool("echo")))

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if i%2 == 0 {
				_ = h.Register(echoTool(fmt.Sprintf("t%d", i)))
			}
			if _, err := h.Execute(context.Background(), "echo", "{}"); err != nil {
				t.Errorf("Execute: %v", err)
			}
			_ = h.Definitions()
		}()
	}
	wg.Wait()
}

// ──────────────────────────────────────────────────────────────────────────────
// MCP servers
// ──────────────────────────────────────────────────────────────────────────────

func TestRegisterServer_Validation(t *testing.T) {
	t.Parallel()
	h := NewHost()
	defer h.Close()
	ctx := context.Background()

	tests := []config.MCPServerConfig{
		{Transport: config.TransportStdio, Command: "x"},
		{Name: "s", Transport: "carrier-pigeon"},
		{Name: "s", Transport: config.TransportStdio},
		{Name: "s", Transport: config.TransportStreamableHTTP},
	}
	for _, cfg := range tests {
		if err := h.RegisterServer(ctx, cfg); err == nil {
			t.Errorf("RegisterServer(%+v) = nil, want error", cfg)
		}
	}
}

func TestRegisterServer_StreamableHTTP(t *testing.T) {
	t.Parallel()
	var auth atomic.Value
	srv := newMCPServer(t, &auth)

	h := NewHost()
	defer h.Close()
	ctx := context.Background()

	must(t, h.Register(echoTool("echo")))
	must(t, h.RegisterServer(ctx, config.MCPServerConfig{
		Name:      "remote",
		Transport: config.TransportStreamableHTTP,
		URL:       srv.URL,
		Token:     "secret",
	}))

	if got := names(h.Definitions()); len(got) != 2 || got[1] != "greet" {
		t.Fatalf("Definitions = %v, want [echo greet]", got)
	}
	if got, _ := auth.Load().(string); got != "Bearer secret" {
		t.Errorf("Authorization = %q, want %q", got, "Bearer secret")
	}

	// Unquoted key is repaired before the call is forwarded.
	res, err := h.Execute(ctx, "greet", `{name: "voxa"}`)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.Content != "hello voxa" || res.IsError {
		t.Errorf("result = %+v", res)
	}

	must(t, h.Close())
	if got := names(h.Definitions()); len(got) != 1 || got[0] != "echo" {
		t.Errorf("after Close Definitions = %v, want [echo]", got)
	}
}

func TestSplitCommand(t *testing.T) {
	t.Parallel()
	exe, args := splitCommand("  /bin/server --flag  value ")
	if exe != "/bin/server" || len(args) != 2 || args[0] != "--flag" || args[1] != "value" {
		t.Errorf("splitCommand = %q %q", exe, args)
	}
	if exe, _ := splitCommand("   "); exe != "" {
		t.Errorf("splitCommand(blank) = %q, want empty", exe)
	}
}
