package llmobs

import (
	"context"
	"time"

	"market-report/internal/interfaces"
	"market-report/internal/logger"
	"market-report/internal/trace"
	"market-report/internal/types"
)

// observableProvider wraps a Provider with logging and tracing
type observableProvider struct {
	provider interfaces.Provider
}

// Compile-time interface check
var _ interfaces.Provider = (*observableProvider)(nil)

// Wrap wraps a provider with observability middleware
func Wrap(provider interfaces.Provider) interfaces.Provider {
	return &observableProvider{provider: provider}
}

func (op *observableProvider) Name() string {
	return op.provider.Name()
}

// Complete calls the wrapped provider inside an llm.Complete span
func (op *observableProvider) Complete(ctx context.Context, req types.CompletionRequest) (string, error) {
	ctx, span := trace.StartSpan(ctx, "llm.Complete")
	defer span.End()

	name := op.provider.Name()
	// DebugSkip(1) reports the orchestrator as the caller, not this wrapper
	logger.DebugSkip(ctx, 1, "Requesting completion",
		"provider", name,
		"prompt_chars", len(req.Prompt),
		"max_tokens", req.MaxTokens,
	)

	start := time.Now()
	text, err := op.provider.Complete(ctx, req)
	if err != nil {
		// Failures are expected during fallback; the orchestrator decides what is fatal
		trace.RecordError(span, err)
		logger.WarnSkip(ctx, 1, "Completion failed",
			"provider", name,
			"duration_ms", time.Since(start).Milliseconds(),
			"error", err,
		)
		return "", err
	}

	logger.InfoSkip(ctx, 1, "Completion received",
		"provider", name,
		"duration_ms", time.Since(start).Milliseconds(),
		"chars", len(text),
	)
	return text, nil
}
