package tools

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
)

// Built-in tool names.
const (
	WeatherTool = "get_current_weather"
	NewsTool    = "get_latest_news"
	ReportTool  = "create_pdf_report"
)

// ReportWriter renders a PDF report and returns the written file path. An
// empty name lets the writer choose one. *export.Exporter implements it.
type ReportWriter interface {
	Report(ctx context.Context, name, title, content string) (string, error)
}

// BuiltinConfig wires the built-in tools.
type BuiltinConfig struct {
	// Reports backs create_pdf_report. When nil the tool is not offered.
	Reports ReportWriter

	// Rand drives the simulated weather and news. Nil uses the global source.
	Rand *rand.Rand
}

// WeatherArgs are the arguments of get_current_weather.
type WeatherArgs struct {
	Location string `json:"location" jsonschema:"City or region, e.g. Seoul"`
	Unit     string `json:"unit,omitempty" jsonschema:"Temperature unit: celsius or fahrenheit"`
}

// Weather is the simulated weather report.
type Weather struct {
	Location    string `json:"location"`
	Temperature int    `json:"temperature"`
	Condition   string `json:"condition"`
}

// NewsArgs are the arguments of get_latest_news.
type NewsArgs struct {
	Topic string `json:"topic,omitempty" jsonschema:"News topic, e.g. AI or economy"`
}

// News is the simulated headline list.
type News struct {
	Topic     string   `json:"topic"`
	Headlines []string `json:"headlines"`
}

// ReportArgs are the arguments of create_pdf_report.
type ReportArgs struct {
	Title   string `json:"title" jsonschema:"Report title"`
	Content string `json:"content" jsonschema:"Report body text"`
}

// ReportStatus is the result of create_pdf_report.
type ReportStatus struct {
	Status   string `json:"status"`
	Filename string `json:"filename,omitempty"`
	Error    string `json:"error,omitempty"`
}

var weatherConditions = []string{"맑음 ☀️", "흐림 ☁️", "비 🌧️", "눈 ❄️"}

// lockedRand serializes access to a *rand.Rand, which is not safe for
// concurrent use. A nil src falls through to the global functions.
type lockedRand struct {
	mu  sync.Mutex
	src *rand.Rand
}

func (r *lockedRand) IntN(n int) int {
	if r.src == nil {
		return rand.IntN(n)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.src.IntN(n)
}

func (r *lockedRand) Perm(n int) []int {
	if r.src == nil {
		return rand.Perm(n)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.src.Perm(n)
}

// Builtins returns the in-process tools: simulated weather, simulated news
// and, when cfg.Reports is set, PDF report creation.
func Builtins(cfg BuiltinConfig) []Tool {
	rng := &lockedRand{src: cfg.Rand}

	out := []Tool{
		MustNewFuncTool(WeatherTool, "Get the current weather for a location.",
			func(_ context.Context, a WeatherArgs) (any, error) {
				slog.Info("tools: weather lookup", "location", a.Location)
				return Weather{
					Location:    a.Location,
					Temperature: rng.IntN(36) - 5,
					Condition:   weatherConditions[rng.IntN(len(weatherConditions))],
				}, nil
			}),
		MustNewFuncTool(NewsTool, "Get the latest news headlines for a topic.",
			func(_ context.Context, a NewsArgs) (any, error) {
				topic := a.Topic
				if topic == "" {
					topic = "general"
				}
				slog.Info("tools: news lookup", "topic", topic)
				all := headlines(topic)
				picked := make([]string, 0, 3)
				for _, i := range rng.Perm(len(all))[:3] {
					picked = append(picked, all[i])
				}
				return News{Topic: topic, Headlines: picked}, nil
			}),
	}

	if cfg.Reports != nil {
		out = append(out, MustNewFuncTool(ReportTool, "Write a PDF report with the given title and content.",
			func(ctx context.Context, a ReportArgs) (any, error) {
				slog.Info("tools: creating pdf report", "title", a.Title)
				path, err := cfg.Reports.Report(ctx, "", a.Title, a.Content)
				if err != nil {
					slog.Warn("tools: pdf report failed", "err", err)
					return ReportStatus{Status: "error", Error: err.Error()}, nil
				}
				return ReportStatus{Status: "success", Filename: path}, nil
			}))
	}
	return out
}

func headlines(topic string) []string {
	return []string{
		fmt.Sprintf("속보: %s 시장의 놀라운 변화", topic),
		fmt.Sprintf("%s 기술, 미래를 어떻게 바꿀까?", topic),
		fmt.Sprintf("전 세계가 주목하는 %s 트렌드", topic),
		fmt.Sprintf("전문가들, '%s'에 대한 긍정적 전망", topic),
	}
}
