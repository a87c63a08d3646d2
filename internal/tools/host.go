// Package tools provides the tool host offered to the chat model.
//
// A [Host] holds two kinds of tools behind one catalogue: in-process Go
// functions ([Tool], usually built with [NewFuncTool]) and tools imported
// from external MCP servers reached over stdio or streamable HTTP through the
// official MCP Go SDK (github.com/modelcontextprotocol/go-sdk).
//
// Typical usage:
//
//	h := tools.NewHost(tools.WithMetrics(observe.DefaultMetrics()))
//	defer h.Close()
//
//	_ = h.Register(tools.Builtins(exporter)...)
//	_ = h.RegisterServer(ctx, config.MCPServerConfig{
//	    Name:      "search",
//	    Transport: config.TransportStdio,
//	    Command:   "/usr/local/bin/mcp-search",
//	})
//
//	res, err := h.Execute(ctx, "get_current_weather", `{"location":"Seoul"}`)
package tools

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/MrWong99/voxa/internal/config"
	"github.com/MrWong99/voxa/internal/observe"
	"github.com/MrWong99/voxa/pkg/types"
)

// ErrUnknownTool is returned by [Host.Execute] for names not in the catalogue.
var ErrUnknownTool = errors.New("unknown tool")

// builtinServer is the pseudo server name recorded for in-process tools.
const builtinServer = "builtin"

// Result is the outcome of one tool call.
type Result struct {
	// Content is the text handed back to the model.
	Content string

	// IsError marks an application-level failure. Content then describes it.
	IsError bool

	// Duration is the wall time of the call.
	Duration time.Duration
}

type toolEntry struct {
	def    types.ToolDefinition
	server string
	fn     Handler
}

// Host is a concurrency-safe tool catalogue. The zero value is not usable;
// create instances with [NewHost].
type Host struct {
	mu      sync.RWMutex
	tools   map[string]toolEntry
	order   []string
	servers map[string]*mcpsdk.ClientSession

	client  *mcpsdk.Client
	metrics *observe.Metrics
}

// HostOption configures a [Host].
type HostOption func(*Host)

// WithMetrics records tool call counts and latency.
func WithMetrics(m *observe.Metrics) HostOption {
	return func(h *Host) { h.metrics = m }
}

// NewHost returns an empty Host.
func NewHost(opts ...HostOption) *Host {
	h := &Host{
		tools:   make(map[string]toolEntry),
		servers: make(map[string]*mcpsdk.ClientSession),
		client: mcpsdk.NewClient(
			&mcpsdk.Implementation{Name: "voxa", Version: "1.0.0"},
			nil,
		),
	}
	for _, o := range opts {
		o(h)
	}
	return h
}

// Register adds in-process tools. A tool whose name is already registered
// replaces the old one.
func (h *Host) Register(tools ...Tool) error {
	for _, t := range tools {
		if t.Definition.Name == "" {
			return fmt.Errorf("tools: builtin tool must have a non-empty name")
		}
		if t.Handler == nil {
			return fmt.Errorf("tools: builtin tool %q must have a non-nil handler", t.Definition.Name)
		}
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for _, t := range tools {
		h.put(toolEntry{def: t.Definition, server: builtinServer, fn: t.Handler})
	}
	return nil
}

// put stores e and keeps registration order. Caller holds h.mu.
func (h *Host) put(e toolEntry) {
	if _, ok := h.tools[e.def.Name]; !ok {
		h.order = append(h.order, e.def.Name)
	}
	h.tools[e.def.Name] = e
}

// RegisterServer connects to an MCP server and imports its tool catalogue.
// Registering a server name twice closes the old session and drops its
// tools first.
//
// For stdio transport cfg.Command is split on spaces into executable and
// arguments and cfg.Env is appended to the inherited environment. For
// streamable-http transport cfg.Token, when set, is sent as a Bearer token.
func (h *Host) RegisterServer(ctx context.Context, cfg config.MCPServerConfig) error {
	if cfg.Name == "" {
		return fmt.Errorf("tools: mcp server config must have a non-empty name")
	}

	var transport mcpsdk.Transport
	switch cfg.Transport {
	case config.TransportStdio:
		executable, args := splitCommand(cfg.Command)
		if executable == "" {
			return fmt.Errorf("tools: stdio server %q requires a command", cfg.Name)
		}
		cmd := exec.CommandContext(ctx, executable, args...)
		if len(cfg.Env) > 0 {
			cmd.Env = os.Environ()
			for k, v := range cfg.Env {
				cmd.Env = append(cmd.Env, k+"="+v)
			}
		}
		transport = &mcpsdk.CommandTransport{Command: cmd}

	case config.TransportStreamableHTTP:
		if cfg.URL == "" {
			return fmt.Errorf("tools: streamable-http server %q requires a url", cfg.Name)
		}
		t := &mcpsdk.StreamableClientTransport{Endpoint: cfg.URL}
		if cfg.Token != "" {
			t.HTTPClient = &http.Client{Transport: bearerTransport{token: cfg.Token, next: http.DefaultTransport}}
		}
		transport = t

	default:
		return fmt.Errorf("tools: unknown transport %q for server %q", cfg.Transport, cfg.Name)
	}

	session, err := h.client.Connect(ctx, transport, nil)
	if err != nil {
		return fmt.Errorf("tools: connect to server %q: %w", cfg.Name, err)
	}

	var discovered []types.ToolDefinition
	for tool, err := range session.Tools(ctx, nil) {
		if err != nil {
			_ = session.Close()
			return fmt.Errorf("tools: list tools of server %q: %w", cfg.Name, err)
		}
		params, err := schemaToMap(tool.InputSchema)
		if err != nil {
			params = map[string]any{"type": "object"}
		}
		discovered = append(discovered, types.ToolDefinition{
			Name:        tool.Name,
			Description: tool.Description,
			Parameters:  params,
		})
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if old, ok := h.servers[cfg.Name]; ok {
		_ = old.Close()
		h.dropServer(cfg.Name)
	}
	h.servers[cfg.Name] = session
	for _, def := range discovered {
		h.put(toolEntry{def: def, server: cfg.Name})
	}
	slog.Info("tools: mcp server registered", "server", cfg.Name, "tools", len(discovered))
	return nil
}

// dropServer removes every tool owned by server. Caller holds h.mu.
func (h *Host) dropServer(server string) {
	kept := h.order[:0]
	for _, name := range h.order {
		if h.tools[name].server == server {
			delete(h.tools, name)
			continue
		}
		kept = append(kept, name)
	}
	h.order = kept
}

// Definitions returns the catalogue in registration order. With names, only
// the listed tools are returned (unknown names are skipped).
func (h *Host) Definitions(names ...string) []types.ToolDefinition {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if len(names) == 0 {
		names = h.order
	}
	defs := make([]types.ToolDefinition, 0, len(names))
	for _, name := range names {
		if e, ok := h.tools[name]; ok {
			defs = append(defs, e.def)
		}
	}
	return defs
}

// Execute runs the named tool with the model's JSON arguments.
//
// A non-nil *Result is returned whenever the tool ran, including when it
// reported a failure (IsError). A Go error is returned for unknown tools
// ([ErrUnknownTool]), undecodable arguments ([ErrInvalidArguments]) and
// transport failures.
func (h *Host) Execute(ctx context.Context, name, args string) (*Result, error) {
	h.mu.RLock()
	entry, ok := h.tools[name]
	var session *mcpsdk.ClientSession
	if ok && entry.fn == nil {
		session = h.servers[entry.server]
	}
	h.mu.RUnlock()

	if !ok {
		h.record(ctx, name, "unknown", 0)
		return nil, fmt.Errorf("%w %q", ErrUnknownTool, name)
	}

	ctx, span := observe.StartSpan(ctx, "tool.execute")
	defer span.End()

	start := time.Now()
	var (
		res *Result
		err error
	)
	if entry.fn != nil {
		res, err = runBuiltin(ctx, entry, args)
	} else {
		res, err = runRemote(ctx, session, entry, args)
	}
	elapsed := time.Since(start)

	status := "ok"
	switch {
	case err != nil:
		status = "error"
		span.RecordError(err)
	case res.IsError:
		status = "tool_error"
	}
	h.record(ctx, name, status, elapsed)

	if err != nil {
		return nil, err
	}
	res.Duration = elapsed
	return res, nil
}

func (h *Host) record(ctx context.Context, name, status string, d time.Duration) {
	if h.metrics == nil {
		return
	}
	h.metrics.RecordToolCall(ctx, name, status)
	if d > 0 {
		h.metrics.RecordToolDuration(ctx, name, d)
	}
}

func runBuiltin(ctx context.Context, e toolEntry, args string) (*Result, error) {
	out, err := e.fn(ctx, args)
	if errors.Is(err, ErrInvalidArguments) {
		return nil, fmt.Errorf("tools: %q: %w", e.def.Name, err)
	}
	if err != nil {
		return &Result{Content: err.Error(), IsError: true}, nil
	}
	return &Result{Content: out}, nil
}

func runRemote(ctx context.Context, session *mcpsdk.ClientSession, e toolEntry, args string) (*Result, error) {
	if session == nil {
		return nil, fmt.Errorf("tools: server %q not connected for tool %q", e.server, e.def.Name)
	}

	var argsMap map[string]any
	if err := DecodeArgs(args, &argsMap); err != nil {
		return nil, fmt.Errorf("tools: %q: %w", e.def.Name, err)
	}

	out, err := session.CallTool(ctx, &mcpsdk.CallToolParams{
		Name:      e.def.Name,
		Arguments: argsMap,
	})
	if err != nil {
		return nil, fmt.Errorf("tools: call %q on server %q: %w", e.def.Name, e.server, err)
	}

	var sb strings.Builder
	for _, c := range out.Content {
		if tc, ok := c.(*mcpsdk.TextContent); ok {
			sb.WriteString(tc.Text)
		}
	}
	return &Result{Content: sb.String(), IsError: out.IsError}, nil
}

// Close disconnects every MCP server. The Host must not be used afterwards.
func (h *Host) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	var errs []error
	for name, s := range h.servers {
		if err := s.Close(); err != nil {
			errs = append(errs, fmt.Errorf("tools: close server %q: %w", name, err))
		}
		h.dropServer(name)
	}
	clear(h.servers)
	return errors.Join(errs...)
}

// splitCommand splits a command string into executable and arguments.
func splitCommand(cmd string) (string, []string) {
	parts := strings.Fields(cmd)
	if len(parts) == 0 {
		return "", nil
	}
	return parts[0], parts[1:]
}

// bearerTransport adds a static Authorization header to every request.
type bearerTransport struct {
	token string
	next  http.RoundTripper
}

func (t bearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("Authorization", "Bearer "+t.token)
	return t.next.RoundTrip(req)
}
