package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/MrWong99/voxa/internal/config"
)

var (
	primary = lipgloss.Color("#00ff9f")
	dim     = lipgloss.Color("#6e7681")

	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(primary)
	labelStyle   = lipgloss.NewStyle().Bold(true).Foreground(primary).Width(14)
	valueStyle   = lipgloss.NewStyle()
	dimStyle     = lipgloss.NewStyle().Foreground(dim)
	summaryStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(primary).Padding(0, 1)

	successStyle = lipgloss.NewStyle().Bold(true).Foreground(primary)
	errorStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#ff5f5f"))
)

// maxValueWidth truncates long summary values.
const maxValueWidth = 32

func printStartupSummary(w io.Writer, cfg *config.Config) {
	fmt.Fprintln(w, renderSummary(cfg))
}

// renderSummary draws the configured providers and outputs in a box.
func renderSummary(cfg *config.Config) string {
	rows := [][2]string{
		{"LLM", providerValue(cfg.Providers.LLM)},
		{"STT", providerValue(cfg.Providers.STT)},
		{"TTS", providerValue(cfg.Providers.TTS)},
		{"Moderation", providerValue(cfg.Providers.Moderation)},
		{"Exit word", cfg.Assistant.ExitWord},
		{"Language", cfg.Assistant.Language},
		{"History", fmt.Sprintf("%d turns", cfg.Assistant.HistoryTurns)},
		{"Export dir", orDefault(cfg.Export.Dir, ".")},
		{"Log file", logValue(cfg.ConversationLog)},
		{"MCP servers", fmt.Sprintf("%d", len(cfg.MCP.Servers))},
	}
	if cfg.Server.ListenAddr != "" {
		rows = append(rows, [2]string{"Listen addr", cfg.Server.ListenAddr})
	}

	lines := []string{titleStyle.Render("voxa " + version), ""}
	for _, r := range rows {
		v := valueStyle.Render(truncate(r[1], maxValueWidth))
		if r[1] == "" || strings.HasPrefix(r[1], "(") {
			v = dimStyle.Render(truncate(orDefault(r[1], "(none)"), maxValueWidth))
		}
		lines = append(lines, labelStyle.Render(r[0])+" "+v)
	}
	return summaryStyle.Render(strings.Join(lines, "\n"))
}

func providerValue(e config.ProviderEntry) string {
	switch {
	case e.Name == "":
		return "(not configured)"
	case e.Model != "":
		return e.Name + " / " + e.Model
	default:
		return e.Name
	}
}

func logValue(c config.ConvLogConfig) string {
	v := c.Path
	if v == "-" {
		v = "(disabled)"
	}
	if c.PostgresDSN != "" {
		v += " + postgres"
	}
	return v
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
