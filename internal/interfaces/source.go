package interfaces

import (
	"context"

	"market-report/internal/types"
)

// Source is one market data feed. A returned error degrades the source to empty.
type Source interface {
	Name() string
	Fetch(ctx context.Context, r types.DateRange) (*types.SourceData, error)
}
