package interfaces

import (
	"context"

	"market-report/internal/types"
)

type Provider interface {
	Name() string
	Complete(ctx context.Context, req types.CompletionRequest) (string, error)
}

// Generator produces text for a prompt and reports which provider wrote it.
type Generator interface {
	Generate(ctx context.Context, prompt string, snap *types.MarketSnapshot) (text string, provider string, err error)
}
