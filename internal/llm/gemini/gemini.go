package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"market-report/internal/interfaces"
	"market-report/internal/llm"
	"market-report/internal/trace"
	"market-report/internal/types"
)

const (
	Name         = "gemini"
	DefaultModel = "gemini-pro"
)

// Provider calls Google Gemini through the genai SDK
type Provider struct {
	client *genai.Client
	model  string
}

var _ interfaces.Provider = (*Provider)(nil)

// ClientOption configures the provider
type ClientOption func(*genai.ClientConfig)

// WithBaseURL points the client at a different API host
func WithBaseURL(baseURL string) ClientOption {
	return func(cfg *genai.ClientConfig) {
		cfg.HTTPOptions.BaseURL = baseURL
	}
}

// New creates a Gemini provider. The genai client is created eagerly so a bad
// configuration surfaces at startup.
func New(ctx context.Context, apiKey, model string, opts ...ClientOption) (*Provider, error) {
	if model == "" {
		model = DefaultModel
	}
	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &Provider{client: client, model: model}, nil
}

func (p *Provider) Name() string { return Name }

func (p *Provider) Complete(ctx context.Context, req types.CompletionRequest) (string, error) {
	ctx, span := trace.StartSpan(ctx, "gemini-api-call")
	defer span.End()

	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(req.Temperature),
	}
	if req.System != "" {
		config.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	if req.MaxTokens > 0 {
		config.MaxOutputTokens = int32(req.MaxTokens)
	}

	result, err := p.client.Models.GenerateContent(ctx, p.model, genai.Text(req.Prompt), config)
	if err != nil {
		err = classify(err)
		trace.RecordError(span, err)
		return "", err
	}
	return extractText(result)
}

// extractText joins the text parts of the first candidate
func extractText(result *genai.GenerateContentResponse) (string, error) {
	if result == nil || len(result.Candidates) == 0 || result.Candidates[0].Content == nil || len(result.Candidates[0].Content.Parts) == 0 {
		return "", llm.Fatal(Name, llm.ErrEmptyCompletion)
	}
	var sb strings.Builder
	for _, part := range result.Candidates[0].Content.Parts {
		if part != nil && part.Text != "" {
			sb.WriteString(part.Text)
		}
	}
	return sb.String(), nil
}

func classify(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return llm.FromStatus(Name, apiErr.Code, err)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) {
		return llm.FromStatus(Name, apiErrPtr.Code, err)
	}
	return llm.Classify(Name, err)
}
