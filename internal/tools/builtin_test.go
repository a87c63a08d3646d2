package tools

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand/v2"
	"slices"
	"testing"
)

type fakeReports struct {
	path  string
	err   error
	title string
	body  string
}

func (f *fakeReports) Report(_ context.Context, _, title, content string) (string, error) {
	f.title, f.body = title, content
	return f.path, f.err
}

func builtinHost(t *testing.T, reports ReportWriter) *Host {
	t.Helper()
	h := NewHost()
	t.Cleanup(func() { _ = h.Close() })
	must(t, h.Register(Builtins(BuiltinConfig{Reports: reports, Rand: rand.New(rand.NewPCG(1, 2))})...))
	return h
}

func TestBuiltins_Catalogue(t *testing.T) {
	t.Parallel()
	got := names(builtinHost(t, nil).Definitions())
	if !slices.Equal(got, []string{WeatherTool, NewsTool}) {
		t.Errorf("without reports = %v", got)
	}
	got = names(builtinHost(t, &fakeReports{}).Definitions())
	if !slices.Equal(got, []string{WeatherTool, NewsTool, ReportTool}) {
		t.Errorf("with reports = %v", got)
	}
}

func TestWeatherTool_Range(t *testing.T) {
	t.Parallel()
	h := builtinHost(t, nil)
	for range 200 {
		res, err := h.Execute(context.Background(), WeatherTool, `{"location":"Seoul"}`)
		if err != nil {
			t.Fatalf("Execute: %v", err)
		}
		var w Weather
		if err := json.Unmarshal([]byte(res.Content), &w); err != nil {
			t.Fatalf("decode %q: %v", res.Content, err)
		}
		if w.Location != "Seoul" {
			t.Errorf("location = %q", w.Location)
		}
		if w.Temperature < -5 || w.Temperature > 30 {
			t.Errorf("temperature %d outside [-5, 30]", w.Temperature)
		}
		if !slices.Contains(weatherConditions, w.Condition) {
			t.Errorf("condition %q not a known condition", w.Condition)
		}
	}
}

func TestNewsTool_ThreeDistinctHeadlines(t *testing.T) {
	t.Parallel()
	h := builtinHost(t, nil)
	res, err := h.Execute(context.Background(), NewsTool, `{"topic":"AI"}`)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	var n News
	if err := json.Unmarshal([]byte(res.Content), &n); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if n.Topic != "AI" || len(n.Headlines) != 3 {
		t.Fatalf("news = %+v", n)
	}
	all := headlines("AI")
	seen := map[string]bool{}
	for _, hl := range n.Headlines {
		if !slices.Contains(all, hl) {
			t.Errorf("unexpected headline %q", hl)
		}
		if seen[hl] {
			t.Errorf("duplicate headline %q", hl)
		}
		seen[hl] = true
	}
}

func TestNewsTool_DefaultTopic(t *testing.T) {
	t.Parallel()
	res, err := builtinHost(t, nil).Execute(context.Background(), NewsTool, `{}`)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	var n News
	_ = json.Unmarshal([]byte(res.Content), &n)
	if n.Topic != "general" {
		t.Errorf("topic = %q, want general", n.Topic)
	}
}

func TestReportTool(t *testing.T) {
	t.Parallel()
	reports := &fakeReports{path: "out/Report_1.pdf"}
	res, err := builtinHost(t, reports).Execute(context.Background(), ReportTool,
		`{"title":"주간 보고","content":"내용"}`)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.Content != `{"status":"success","filename":"out/Report_1.pdf"}` {
		t.Errorf("content = %s", res.Content)
	}
	if reports.title != "주간 보고" || reports.body != "내용" {
		t.Errorf("report got title=%q body=%q", reports.title, reports.body)
	}
}

func TestReportTool_Failure(t *testing.T) {
	t.Parallel()
	reports := &fakeReports{err: errors.New("disk full")}
	res, err := builtinHost(t, reports).Execute(context.Background(), ReportTool,
		`{"title":"t","content":"c"}`)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.Content != `{"status":"error","error":"disk full"}` {
		t.Errorf("content = %s", res.Content)
	}
}
