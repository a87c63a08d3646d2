// Package agent drives the chat model for voxa.
//
// [Agent.Ask] answers one user question in a fixed two-round exchange: the
// first round offers the configured tools, any requested tool calls run
// locally, and the second round turns the tool results into the final answer
// without offering tools again.
//
// [Agent.Generate] is the single-prompt path used by the content generators.
// It retries failed calls a fixed number of times and falls back to a fixed
// failure text, reporting through a [resilience.RetryResult] which of the
// two the caller received.
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/voxa/internal/observe"
	"github.com/MrWong99/voxa/internal/resilience"
	"github.com/MrWong99/voxa/internal/tools"
	"github.com/MrWong99/voxa/pkg/provider/llm"
	"github.com/MrWong99/voxa/pkg/types"
)

// DefaultFailureText is returned by [Agent.Generate] when every attempt failed.
const DefaultFailureText = "AI 응답을 가져오는 데 실패했습니다."

// ToolExecutor runs tools on behalf of the model. *tools.Host implements it.
type ToolExecutor interface {
	Definitions(names ...string) []types.ToolDefinition
	Execute(ctx context.Context, name, args string) (*tools.Result, error)
}

// Config wires an [Agent].
type Config struct {
	// LLM is the chat backend. Required.
	LLM llm.Provider

	// Tools executes tool calls. Nil offers no tools.
	Tools ToolExecutor

	// ToolNames restricts the offered tools. Empty offers all of them.
	ToolNames []string

	// SystemPrompt leads every Ask conversation.
	SystemPrompt string

	// Temperature and MaxTokens apply to Ask. Zero keeps provider defaults.
	Temperature float64
	MaxTokens   int

	// Retry controls Generate. MaxAttempts defaults to 3.
	Retry resilience.RetryConfig

	// FailureText replaces [DefaultFailureText].
	FailureText string

	// Metrics records generation outcomes. Optional.
	Metrics *observe.Metrics
}

// Agent is safe for concurrent use. Prompt and tool selection can be changed
// at runtime for config hot reload.
type Agent struct {
	llm         llm.Provider
	tools       ToolExecutor
	temperature float64
	maxTokens   int
	retry       resilience.RetryConfig
	failureText string
	metrics     *observe.Metrics

	mu           sync.RWMutex
	systemPrompt string
	toolNames    []string
}

// New validates cfg and returns an Agent.
func New(cfg Config) (*Agent, error) {
	if cfg.LLM == nil {
		return nil, errors.New("agent: LLM provider must not be nil")
	}
	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry.MaxAttempts = resilience.DefaultRetryConfig().MaxAttempts
	}
	if cfg.Retry.Name == "" {
		cfg.Retry.Name = "chat"
	}
	if cfg.FailureText == "" {
		cfg.FailureText = DefaultFailureText
	}
	return &Agent{
		llm:          cfg.LLM,
		tools:        cfg.Tools,
		temperature:  cfg.Temperature,
		maxTokens:    cfg.MaxTokens,
		retry:        cfg.Retry,
		failureText:  cfg.FailureText,
		metrics:      cfg.Metrics,
		systemPrompt: cfg.SystemPrompt,
		toolNames:    append([]string(nil), cfg.ToolNames...),
	}, nil
}

// SetSystemPrompt replaces the system prompt used by later Ask calls.
func (a *Agent) SetSystemPrompt(prompt string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.systemPrompt = prompt
}

// SetToolNames replaces the offered tool subset. Empty offers all tools.
func (a *Agent) SetToolNames(names []string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.toolNames = append([]string(nil), names...)
}

// FailureText returns the fallback text Generate returns on failure.
func (a *Agent) FailureText() string { return a.failureText }

// Answer is the outcome of one [Agent.Ask] exchange.
type Answer struct {
	// Text is the final reply.
	Text string

	// ToolCalls lists the calls the model requested in the first round.
	ToolCalls []types.ToolCall

	// Messages are the turns to append to the history: the user message and
	// the final assistant reply. Tool rounds stay out of the history.
	Messages []types.Message
}

// Ask answers question in the context of history.
//
// The first round offers tools with tool choice "auto". When the reply
// requests tool calls, each call runs (concurrently) and its result is added
// as a tool-role message in the order the model requested; the second round
// then runs without tools and its text is the answer. Tool failures never
// fail Ask: they reach the model as {"error": ...} tool results. Chat
// failures are returned.
func (a *Agent) Ask(ctx context.Context, history []types.Message, question string) (*Answer, error) {
	a.mu.RLock()
	system := a.systemPrompt
	names := a.toolNames
	a.mu.RUnlock()

	msgs := make([]types.Message, 0, len(history)+4)
	msgs = append(msgs, history...)
	msgs = append(msgs, types.Message{Role: types.RoleUser, Content: question})

	req := llm.CompletionRequest{
		Messages:     msgs,
		SystemPrompt: system,
		Temperature:  a.temperature,
		MaxTokens:    a.maxTokens,
	}
	if a.tools != nil {
		if defs := a.tools.Definitions(names...); len(defs) > 0 {
			req.Tools = defs
			req.ToolChoice = llm.ToolChoiceAuto
		}
	}

	first, err := a.llm.Complete(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("agent: first round: %w", err)
	}

	answer := &Answer{Text: first.Content, ToolCalls: first.ToolCalls}
	if len(first.ToolCalls) > 0 {
		msgs = append(msgs, types.Message{
			Role:      types.RoleAssistant,
			Content:   first.Content,
			ToolCalls: first.ToolCalls,
		})
		msgs = append(msgs, a.runTools(ctx, first.ToolCalls)...)

		second, err := a.llm.Complete(ctx, llm.CompletionRequest{
			Messages:     msgs,
			SystemPrompt: system,
			ToolChoice:   llm.ToolChoiceNone,
			Temperature:  a.temperature,
			MaxTokens:    a.maxTokens,
		})
		if err != nil {
			return nil, fmt.Errorf("agent: second round: %w", err)
		}
		answer.Text = second.Content
	}

	answer.Messages = []types.Message{
		{Role: types.RoleUser, Content: question},
		{Role: types.RoleAssistant, Content: answer.Text},
	}
	return answer, nil
}

// runTools executes calls concurrently and returns one tool message per call
// in call order.
func (a *Agent) runTools(ctx context.Context, calls []types.ToolCall) []types.Message {
	out := make([]types.Message, len(calls))
	var g errgroup.Group
	for i, call := range calls {
		g.Go(func() error {
			out[i] = types.Message{
				Role:       types.RoleTool,
				Name:       call.Name,
				ToolCallID: call.ID,
				Content:    a.runTool(ctx, call),
			}
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func (a *Agent) runTool(ctx context.Context, call types.ToolCall) string {
	log := observe.Logger(ctx).With("tool", call.Name, "call_id", call.ID)
	if a.tools == nil {
		log.Warn("agent: model called a tool but none are configured")
		return errorJSON(fmt.Sprintf("unknown tool %q", call.Name))
	}

	res, err := a.tools.Execute(ctx, call.Name, call.Arguments)
	switch {
	case errors.Is(err, tools.ErrUnknownTool):
		log.Warn("agent: unknown tool")
		return errorJSON(fmt.Sprintf("unknown tool %q", call.Name))
	case errors.Is(err, tools.ErrInvalidArguments):
		log.Warn("agent: invalid tool arguments", "args", call.Arguments, "err", err)
		return errorJSON(invalidArgsMessage(err))
	case err != nil:
		log.Error("agent: tool execution failed", "err", err)
		return errorJSON(err.Error())
	case res.IsError:
		log.Warn("agent: tool reported an error", "content", res.Content)
		if json.Valid([]byte(res.Content)) {
			return res.Content
		}
		return errorJSON(res.Content)
	}
	log.Debug("agent: tool executed", "duration", res.Duration)
	return res.Content
}

// invalidArgsMessage trims the wrapping context so the model sees
// "invalid arguments: <decoder message>".
func invalidArgsMessage(err error) string {
	msg := err.Error()
	if i := strings.Index(msg, tools.ErrInvalidArguments.Error()); i >= 0 {
		return msg[i:]
	}
	return tools.ErrInvalidArguments.Error() + ": " + msg
}

func errorJSON(msg string) string {
	b, _ := json.Marshal(struct {
		Error string `json:"error"`
	}{msg})
	return string(b)
}

// GenerateRequest is one single-prompt generation.
type GenerateRequest struct {
	// Prompt is sent as the only user message.
	Prompt string

	// System is an optional system prompt. The Ask system prompt is not used.
	System string

	// Temperature and MaxTokens override the provider defaults when non-zero.
	Temperature float64
	MaxTokens   int
}

// Generate sends req.Prompt with the configured retry policy. When every
// attempt fails, or a failure is terminal, it returns the failure text and a
// result whose OK method reports false.
func (a *Agent) Generate(ctx context.Context, req GenerateRequest) (string, resilience.RetryResult) {
	creq := llm.CompletionRequest{
		Messages:     []types.Message{{Role: types.RoleUser, Content: req.Prompt}},
		SystemPrompt: req.System,
		Temperature:  req.Temperature,
		MaxTokens:    req.MaxTokens,
	}
	text, res := resilience.Retry(ctx, a.retry, func(ctx context.Context) (string, error) {
		resp, err := a.llm.Complete(ctx, creq)
		if err != nil {
			return "", err
		}
		return resp.Content, nil
	})

	if a.metrics != nil {
		a.metrics.RecordGeneration(ctx, res.Outcome.String())
	}
	if !res.OK() {
		slog.Error("agent: generation failed", "attempts", res.Attempts, "outcome", res.Outcome, "err", res.Err)
		return a.failureText, res
	}
	return text, res
}

// TrimHistory keeps the most recent turns of history, where a turn starts at
// a user message. turns <= 0 keeps everything.
func TrimHistory(history []types.Message, turns int) []types.Message {
	if turns <= 0 {
		return history
	}
	seen := 0
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role != types.RoleUser {
			continue
		}
		seen++
		if seen == turns {
			return history[i:]
		}
	}
	return history
}
