package claude

import (
	"context"
	"encoding/json"
	"os"
	"strings"
	"time"

	"market-report/internal/api"
	"market-report/internal/interfaces"
	"market-report/internal/llm"
	"market-report/internal/trace"
	"market-report/internal/types"
)

const (
	Name             = "claude"
	DefaultModel     = "claude-3-sonnet-20240229"
	DefaultEndpoint  = "https://api.anthropic.com/v1/messages"
	anthropicVersion = "2023-06-01"
)

// Provider calls the Anthropic Messages API
type Provider struct {
	client   *api.Client
	apiKey   string
	model    string
	endpoint string
}

var _ interfaces.Provider = (*Provider)(nil)

type Option func(*Provider)

// WithEndpoint overrides the messages endpoint (proxies, tests).
func WithEndpoint(endpoint string) Option {
	return func(p *Provider) {
		if endpoint != "" {
			p.endpoint = endpoint
		}
	}
}

// WithHTTPTimeout bounds a single HTTP exchange. The orchestrator's per-call
// timeout still applies through the request context.
func WithHTTPTimeout(d time.Duration) Option {
	return func(p *Provider) {
		p.client = api.NewClient(api.WithTimeout(d), api.WithLogging(true))
	}
}

// New creates a Claude provider. CLAUDE_API_ENDPOINT overrides the default endpoint.
func New(apiKey, model string, opts ...Option) *Provider {
	if model == "" {
		model = DefaultModel
	}
	endpoint := DefaultEndpoint
	if ep := os.Getenv("CLAUDE_API_ENDPOINT"); ep != "" {
		endpoint = ep
	}
	p := &Provider{
		client:   api.NewClient(api.WithTimeout(2*time.Minute), api.WithLogging(true)),
		apiKey:   apiKey,
		model:    model,
		endpoint: endpoint,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Provider) Name() string { return Name }

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesRequest struct {
	Model       string    `json:"model"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float32   `json:"temperature"`
	System      string    `json:"system,omitempty"`
	Messages    []message `json:"messages"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	// Completion is returned by legacy proxies behind CLAUDE_API_ENDPOINT.
	Completion string `json:"completion"`
	StopReason string `json:"stop_reason"`
}

// Complete sends the prompt as a single user message
func (p *Provider) Complete(ctx context.Context, req types.CompletionRequest) (string, error) {
	ctx, span := trace.StartSpan(ctx, "claude-api-call")
	defer span.End()

	if p.apiKey == "" {
		return "", llm.Fatal(Name, llm.ErrNoCredential)
	}

	body := messagesRequest{
		Model:       p.model,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		System:      req.System,
		Messages:    []message{{Role: "user", Content: req.Prompt}},
	}
	resp, err := p.client.POST(ctx, p.endpoint, body, map[string]string{
		"x-api-key":         p.apiKey,
		"anthropic-version": anthropicVersion,
	})
	if err != nil {
		err = llm.Classify(Name, err)
		trace.RecordError(span, err)
		return "", err
	}

	var mr messagesResponse
	if err := json.Unmarshal(resp.Body, &mr); err != nil {
		return "", llm.Fatal(Name, err)
	}

	var sb strings.Builder
	for _, block := range mr.Content {
		if block.Type == "text" || block.Type == "" {
			sb.WriteString(block.Text)
		}
	}
	text := sb.String()
	if strings.TrimSpace(text) == "" {
		text = mr.Completion
	}
	if strings.TrimSpace(text) == "" {
		return "", llm.Fatal(Name, llm.ErrEmptyCompletion)
	}
	return text, nil
}
