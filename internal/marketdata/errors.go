package marketdata

import (
	"fmt"
	"time"

	"market-report/internal/types"
)

// InvalidRangeError rejects a date range before anything is fetched.
type InvalidRangeError struct {
	Start  time.Time
	End    time.Time
	Reason string
}

func (e *InvalidRangeError) Error() string {
	return fmt.Sprintf("invalid date range %s..%s: %s",
		e.Start.Format(types.DateLayout), e.End.Format(types.DateLayout), e.Reason)
}

// SourceUnavailableError records why a source contributed nothing. It never leaves
// the aggregator except as a diagnostic string on the snapshot.
type SourceUnavailableError struct {
	Source string
	Err    error
}

func (e *SourceUnavailableError) Error() string {
	return fmt.Sprintf("source %s unavailable: %v", e.Source, e.Err)
}

func (e *SourceUnavailableError) Unwrap() error {
	return e.Err
}
