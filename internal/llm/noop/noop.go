package noop

import (
	"context"
	"strings"

	"market-report/internal/interfaces"
	"market-report/internal/logger"
	"market-report/internal/types"
)

const Name = "noop"

// Provider is an offline stand-in used for dry runs. It never fails and needs no credential.
type Provider struct{}

var _ interfaces.Provider = (*Provider)(nil)

func New() *Provider {
	return &Provider{}
}

func (p *Provider) Name() string { return Name }

// Complete echoes the first line of the prompt so the report layout can be checked offline
func (p *Provider) Complete(ctx context.Context, req types.CompletionRequest) (string, error) {
	first := req.Prompt
	if i := strings.IndexByte(first, '\n'); i >= 0 {
		first = first[:i]
	}
	logger.Debug(ctx, "Noop provider called", "prompt_chars", len(req.Prompt))
	return "_Dry run: no model was called._\n\n> " + strings.TrimSpace(first), nil
}
