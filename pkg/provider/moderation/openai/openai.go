// Package openai provides a moderation provider backed by the OpenAI
// moderations endpoint.
package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"

	"github.com/MrWong99/voxa/pkg/provider/moderation"
)

// DefaultModel is the moderation model used when none is configured.
const DefaultModel = oai.ModerationModelOmniModerationLatest

// Provider implements moderation.Provider using the OpenAI API.
type Provider struct {
	client oai.Client
	model  string
}

var _ moderation.Provider = (*Provider)(nil)

type config struct {
	baseURL    string
	model      string
	timeout    time.Duration
	maxRetries int
}

// Option is a functional option for Provider.
type Option func(*config)

// WithBaseURL overrides the default OpenAI API base URL.
func WithBaseURL(url string) Option {
	return func(c *config) { c.baseURL = url }
}

// WithModel selects the moderation model.
func WithModel(model string) Option {
	return func(c *config) { c.model = model }
}

// WithTimeout sets a per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *config) { c.timeout = d }
}

// WithMaxRetries sets the SDK's transport retry count.
func WithMaxRetries(n int) Option {
	return func(c *config) { c.maxRetries = n }
}

// New constructs an OpenAI moderation provider.
func New(apiKey string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai moderation: apiKey must not be empty")
	}
	cfg := &config{model: DefaultModel, maxRetries: -1}
	for _, o := range opts {
		o(cfg)
	}

	reqOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}
	if cfg.timeout > 0 {
		reqOpts = append(reqOpts, option.WithHTTPClient(&http.Client{Timeout: cfg.timeout}))
	}
	if cfg.maxRetries >= 0 {
		reqOpts = append(reqOpts, option.WithMaxRetries(cfg.maxRetries))
	}
	return &Provider{client: oai.NewClient(reqOpts...), model: cfg.model}, nil
}

// Moderate implements moderation.Provider. The input is flagged when any
// result is flagged.
func (p *Provider) Moderate(ctx context.Context, text string) (*moderation.Verdict, error) {
	res, err := p.client.Moderations.New(ctx, oai.ModerationNewParams{
		Input: oai.ModerationNewParamsInputUnion{OfString: param.NewOpt(text)},
		Model: oai.ModerationModel(p.model),
	})
	if err != nil {
		return nil, fmt.Errorf("openai moderation: %w", err)
	}

	v := &moderation.Verdict{}
	for _, r := range res.Results {
		if !r.Flagged {
			continue
		}
		v.Flagged = true
		for _, c := range flaggedCategories(r.Categories.RawJSON()) {
			if !slices.Contains(v.Categories, c) {
				v.Categories = append(v.Categories, c)
			}
		}
	}
	slices.Sort(v.Categories)
	return v, nil
}

// flaggedCategories returns the names set to true in a categories object.
func flaggedCategories(raw string) []string {
	var m map[string]bool
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil
	}
	var out []string
	for name, hit := range m {
		if hit {
			out = append(out, name)
		}
	}
	slices.Sort(out)
	return out
}
