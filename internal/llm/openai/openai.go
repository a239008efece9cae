package openai

import (
	"context"
	"errors"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"market-report/internal/interfaces"
	"market-report/internal/llm"
	"market-report/internal/trace"
	"market-report/internal/types"
)

const (
	Name         = "openai"
	DefaultModel = "gpt-4-turbo-preview"
)

// Provider calls the OpenAI chat completions API through the official SDK
type Provider struct {
	client openai.Client // NewClient returns a value, not a pointer
	model  string
	hasKey bool
}

var _ interfaces.Provider = (*Provider)(nil)

// New creates an OpenAI provider. The SDK's own retries are disabled because the
// orchestrator owns retry and fallback. Extra options (base URL in tests) are appended.
func New(apiKey, model string, opts ...option.RequestOption) *Provider {
	if model == "" {
		model = DefaultModel
	}
	all := append([]option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}, opts...)
	return &Provider{
		client: openai.NewClient(all...),
		model:  model,
		hasKey: apiKey != "",
	}
}

func (p *Provider) Name() string { return Name }

func (p *Provider) Complete(ctx context.Context, req types.CompletionRequest) (string, error) {
	ctx, span := trace.StartSpan(ctx, "openai-api-call")
	defer span.End()

	if !p.hasKey {
		return "", llm.Fatal(Name, llm.ErrNoCredential)
	}

	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(p.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(req.System),
			openai.UserMessage(req.Prompt),
		},
		Temperature: openai.Float(float64(req.Temperature)),
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		err = classify(err)
		trace.RecordError(span, err)
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", llm.Fatal(Name, llm.ErrEmptyCompletion)
	}
	return resp.Choices[0].Message.Content, nil
}

func classify(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return llm.FromStatus(Name, apiErr.StatusCode, err)
	}
	return llm.Classify(Name, err)
}
