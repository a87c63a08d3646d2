package app_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/MrWong99/voxa/internal/app"
	"github.com/MrWong99/voxa/internal/config"
	"github.com/MrWong99/voxa/internal/content"
	"github.com/MrWong99/voxa/internal/tools"
	audiomock "github.com/MrWong99/voxa/pkg/audio/mock"
	"github.com/MrWong99/voxa/pkg/audio/recorder"
	"github.com/MrWong99/voxa/pkg/provider/llm"
	llmmock "github.com/MrWong99/voxa/pkg/provider/llm/mock"
	moderationmock "github.com/MrWong99/voxa/pkg/provider/moderation/mock"
	sttmock "github.com/MrWong99/voxa/pkg/provider/stt/mock"
	ttsmock "github.com/MrWong99/voxa/pkg/provider/tts/mock"
	"github.com/MrWong99/voxa/pkg/types"
)

// testConfig returns the default config with every file output under a
// temporary directory.
func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Export.Dir = filepath.Join(dir, "exports")
	cfg.ConversationLog.Path = filepath.Join(dir, "conversation_log.txt")
	return cfg
}

func testProviders(chat *llmmock.Provider) *app.Providers {
	return &app.Providers{
		LLM:        chat,
		STT:        &sttmock.Provider{},
		TTS:        &ttsmock.Provider{},
		Moderation: &moderationmock.Provider{},
	}
}

func newApp(t *testing.T, cfg *config.Config, p *app.Providers, opts ...app.Option) *app.App {
	t.Helper()
	a, err := app.New(context.Background(), cfg, p, opts...)
	if err != nil {
		t.Fatalf("New() returned error: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = a.Shutdown(ctx)
	})
	return a
}

func TestNew_RequiresLLM(t *testing.T) {
	t.Parallel()

	if _, err := app.New(context.Background(), testConfig(t), &app.Providers{}); err == nil {
		t.Fatal("New() without LLM should fail")
	}
	if _, err := app.New(context.Background(), testConfig(t), nil); err == nil {
		t.Fatal("New() with nil providers should fail")
	}
}

func TestNew_WithMocks(t *testing.T) {
	t.Parallel()

	a := newApp(t, testConfig(t), testProviders(&llmmock.Provider{}))

	defs := a.Tools().Definitions()
	want := []string{tools.WeatherTool, tools.NewsTool, tools.ReportTool}
	if len(defs) != len(want) {
		t.Fatalf("tool count = %d, want %d", len(defs), len(want))
	}
	for i, d := range defs {
		if d.Name != want[i] {
			t.Errorf("tool[%d] = %q, want %q", i, d.Name, want[i])
		}
	}

	if _, _, err := a.Content(); err != nil {
		t.Errorf("Content() error: %v", err)
	}
	if got := len(a.Checkers()); got != 1 {
		t.Errorf("checkers = %d, want 1 (export dir only)", got)
	}
	if a.Agent().FailureText() != config.DefaultFailureText {
		t.Errorf("failure text = %q", a.Agent().FailureText())
	}
}

func TestApp_ContentRequiresModeration(t *testing.T) {
	t.Parallel()

	p := testProviders(&llmmock.Provider{})
	p.Moderation = nil
	a := newApp(t, testConfig(t), p)

	if _, _, err := a.Content(); !errors.Is(err, app.ErrNoModeration) {
		t.Errorf("Content() error = %v, want ErrNoModeration", err)
	}
}

func TestApp_ContentPipeline(t *testing.T) {
	t.Parallel()

	chat := &llmmock.Provider{Responses: []*llm.CompletionResponse{{Content: "1) 향긋한 아침"}}}
	a := newApp(t, testConfig(t), testProviders(chat))

	pipe, _, err := a.Content()
	if err != nil {
		t.Fatalf("Content(): %v", err)
	}
	res, err := pipe.Run(context.Background(), content.Request{Kind: content.KindAdCopy, Product: "커피", Message: "아침"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Text != "1) 향긋한 아침" {
		t.Errorf("Text = %q", res.Text)
	}
}

func TestApp_ReportToolWritesPDF(t *testing.T) {
	t.Parallel()

	chat := &llmmock.Provider{Responses: []*llm.CompletionResponse{
		{ToolCalls: []types.ToolCall{{ID: "1", Name: tools.ReportTool, Arguments: `{"title":"Q3","content":"Revenue up"}`}}},
		{Content: "report created"},
	}}
	cfg := testConfig(t)
	a := newApp(t, cfg, testProviders(chat))

	ans, err := a.Agent().Ask(context.Background(), nil, "make a report")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if ans.Text != "report created" {
		t.Errorf("answer = %q", ans.Text)
	}

	entries, err := os.ReadDir(cfg.Export.Dir)
	if err != nil {
		t.Fatalf("read export dir: %v", err)
	}
	if len(entries) != 1 || !strings.HasPrefix(entries[0].Name(), "Report_") || !strings.HasSuffix(entries[0].Name(), ".pdf") {
		t.Errorf("export dir = %v, want one Report_*.pdf", entries)
	}
}

func TestApp_Shutdown(t *testing.T) {
	t.Parallel()

	a, err := app.New(context.Background(), testConfig(t), testProviders(&llmmock.Provider{}))
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := a.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() error: %v", err)
	}
	if err := a.Shutdown(ctx); err != nil {
		t.Fatalf("second Shutdown() error: %v", err)
	}
}

func TestApp_ApplyConfig(t *testing.T) {
	t.Parallel()

	chat := &llmmock.Provider{Responses: []*llm.CompletionResponse{{Content: "ok"}}}
	old := testConfig(t)
	a := newApp(t, old, testProviders(chat))

	next := *old
	next.Assistant.SystemPrompt = "새 프롬프트"
	next.Assistant.Tools = []string{tools.NewsTool}
	next.Providers.LLM.Model = "gpt-4o"

	d := a.ApplyConfig(old, &next)
	if !d.SystemPromptChanged || !d.ToolsChanged || !d.RestartRequired {
		t.Errorf("diff = %+v", d)
	}

	if _, err := a.Agent().Ask(context.Background(), nil, "뉴스"); err != nil {
		t.Fatalf("Ask: %v", err)
	}
	req := chat.Calls[0].Req
	if req.SystemPrompt != "새 프롬프트" {
		t.Errorf("SystemPrompt = %q", req.SystemPrompt)
	}
	if len(req.Tools) != 1 || req.Tools[0].Name != tools.NewsTool {
		t.Errorf("Tools = %+v, want only %s", req.Tools, tools.NewsTool)
	}
}

func TestApp_ApplyConfigReachesAssistant(t *testing.T) {
	t.Parallel()

	chat := &llmmock.Provider{Responses: []*llm.CompletionResponse{{Content: "네"}}}
	old := testConfig(t)
	p := testProviders(chat)
	p.STT = &sttmock.Provider{Transcripts: []types.Transcript{{Text: "그만"}}}
	a := newApp(t, old, p)

	as, err := a.NewAssistant(&scriptRecorder{results: []recResult{{res: speech()}}}, &audiomock.Source{}, &audiomock.Sink{},
		app.WithOutput(&strings.Builder{}), app.WithTempDir(t.TempDir()))
	if err != nil {
		t.Fatalf("NewAssistant: %v", err)
	}

	next := *old
	next.Assistant.ExitWord = "그만"
	if d := a.ApplyConfig(old, &next); !d.ExitWordChanged {
		t.Fatalf("diff = %+v", d)
	}

	done, err := as.Step(context.Background())
	if err != nil {
		t.Fatalf("Step: %v", err)
	}
	if !done {
		t.Error("new exit word should end the loop")
	}
	if chat.CallCount() != 0 {
		t.Errorf("chat calls = %d, want 0", chat.CallCount())
	}
}

func TestApp_AssistantLogsToFile(t *testing.T) {
	t.Parallel()

	chat := &llmmock.Provider{Responses: []*llm.CompletionResponse{{Content: "맑아요"}}}
	cfg := testConfig(t)
	p := testProviders(chat)
	p.STT = &sttmock.Provider{Transcripts: []types.Transcript{{Text: "날씨 어때?"}}}
	a := newApp(t, cfg, p)

	as, err := a.NewAssistant(&scriptRecorder{results: []recResult{{res: speech()}}}, &audiomock.Source{}, &audiomock.Sink{},
		app.WithOutput(&strings.Builder{}), app.WithTempDir(t.TempDir()))
	if err != nil {
		t.Fatalf("NewAssistant: %v", err)
	}
	if _, err := as.Step(context.Background()); err != nil {
		t.Fatalf("Step: %v", err)
	}

	data, err := os.ReadFile(cfg.ConversationLog.Path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), "👤 사용자: 날씨 어때?\n🤖 AI: 맑아요\n") {
		t.Errorf("log = %q", data)
	}
}

func TestApp_ConvLogDisabled(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	cfg.ConversationLog.Path = "-"
	a := newApp(t, cfg, testProviders(&llmmock.Provider{}))

	if err := a.ConvLog().Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
	history, err := a.ResumeHistory(context.Background(), "any", 5)
	if err != nil || history != nil {
		t.Errorf("ResumeHistory without postgres = %v, %v; want nil, nil", history, err)
	}
}

func ptr[T any](v T) *T { return &v }

func TestRecorderConfig(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		in      config.RecorderConfig
		check   func(t *testing.T, c recorder.Config)
		wantErr bool
	}{
		{
			name: "defaults to speech triggered",
			in:   config.RecorderConfig{},
			check: func(t *testing.T, c recorder.Config) {
				if c != recorder.DefaultConfig(recorder.SpeechTriggered) {
					t.Errorf("config = %+v", c)
				}
			},
		},
		{
			name: "grace period overrides",
			in:   config.RecorderConfig{Policy: "grace_period", Threshold: ptr(500.0), GracePeriod: ptr(time.Second)},
			check: func(t *testing.T, c recorder.Config) {
				if c.Policy != recorder.GracePeriod || c.Threshold != 500 || c.GracePeriod != time.Second {
					t.Errorf("config = %+v", c)
				}
				if c.SilenceDuration != 1500*time.Millisecond {
					t.Errorf("silence = %v, want policy default", c.SilenceDuration)
				}
			},
		},
		{
			name: "explicit zero grace and threshold are kept",
			in:   config.RecorderConfig{Policy: "grace_period", Threshold: ptr(0.0), GracePeriod: ptr(time.Duration(0))},
			check: func(t *testing.T, c recorder.Config) {
				if c.Threshold != 0 || c.GracePeriod != 0 {
					t.Errorf("threshold = %v, grace = %v; want 0, 0", c.Threshold, c.GracePeriod)
				}
			},
		},
		{
			name: "negative max duration disables cap",
			in:   config.RecorderConfig{MaxDuration: -1},
			check: func(t *testing.T, c recorder.Config) {
				if c.MaxDuration != 0 {
					t.Errorf("MaxDuration = %v, want 0", c.MaxDuration)
				}
			},
		},
		{
			name:    "unknown policy",
			in:      config.RecorderConfig{Policy: "push_to_talk"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c, err := app.RecorderConfig(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("RecorderConfig: %v", err)
			}
			tt.check(t, c)
		})
	}
}
