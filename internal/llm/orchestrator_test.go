package llm

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"market-report/internal/types"
)

type fakeProvider struct {
	name     string
	mu       sync.Mutex
	calls    int
	requests []types.CompletionRequest
	complete func(call int) (string, error)
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Complete(ctx context.Context, req types.CompletionRequest) (string, error) {
	f.mu.Lock()
	f.calls++
	call := f.calls
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	return f.complete(call)
}

func succeed(text string) func(int) (string, error) {
	return func(int) (string, error) { return text, nil }
}

func failWith(status int) func(int) (string, error) {
	return func(int) (string, error) {
		return "", FromStatus("fake", status, errors.New(http.StatusText(status)))
	}
}

func reg(p *fakeProvider, priority int) Registration {
	return Registration{
		Config:   ProviderConfig{Name: p.name, Priority: priority, Credentialed: true},
		Provider: p,
	}
}

// newTestOrchestrator records backoff waits instead of sleeping.
func newTestOrchestrator(t *testing.T, regs []Registration, opts ...Option) (*Orchestrator, *[]time.Duration) {
	t.Helper()
	o, err := NewOrchestrator(regs, opts...)
	require.NoError(t, err)
	var waits []time.Duration
	o.sleep = func(ctx context.Context, d time.Duration) error {
		waits = append(waits, d)
		return ctx.Err()
	}
	return o, &waits
}

func TestGenerate_FirstProviderSucceeds(t *testing.T) {
	a := &fakeProvider{name: "openai", complete: succeed("  report text \n")}
	b := &fakeProvider{name: "claude", complete: succeed("unused")}
	o, _ := newTestOrchestrator(t, []Registration{reg(b, 2), reg(a, 1)})

	text, used, err := o.Generate(context.Background(), "prompt", nil)
	require.NoError(t, err)
	assert.Equal(t, "report text", text)
	assert.Equal(t, "openai", used)
	assert.Equal(t, 1, a.calls)
	assert.Zero(t, b.calls)
}

func TestGenerate_FallsBackAfterTransientRetries(t *testing.T) {
	a := &fakeProvider{name: "openai", complete: failWith(http.StatusTooManyRequests)}
	b := &fakeProvider{name: "claude", complete: failWith(http.StatusServiceUnavailable)}
	c := &fakeProvider{name: "gemini", complete: succeed("from gemini")}
	o, waits := newTestOrchestrator(t, []Registration{reg(a, 1), reg(b, 2), reg(c, 3)})

	text, used, err := o.Generate(context.Background(), "prompt", nil)
	require.NoError(t, err)
	assert.Equal(t, "from gemini", text)
	assert.Equal(t, "gemini", used)

	assert.Equal(t, 3, a.calls)
	assert.Equal(t, 3, b.calls)
	assert.Equal(t, 1, c.calls)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, time.Second, 2 * time.Second}, *waits)
}

func TestGenerate_FatalErrorSkipsWithoutRetry(t *testing.T) {
	a := &fakeProvider{name: "openai", complete: failWith(http.StatusUnauthorized)}
	b := &fakeProvider{name: "claude", complete: succeed("ok")}
	o, waits := newTestOrchestrator(t, []Registration{reg(a, 1), reg(b, 2)})

	_, used, err := o.Generate(context.Background(), "prompt", nil)
	require.NoError(t, err)
	assert.Equal(t, "claude", used)
	assert.Equal(t, 1, a.calls)
	assert.Empty(t, *waits)
}

func TestGenerate_EmptyCompletionIsFatal(t *testing.T) {
	a := &fakeProvider{name: "openai", complete: succeed("   ")}
	b := &fakeProvider{name: "claude", complete: succeed("ok")}
	o, _ := newTestOrchestrator(t, []Registration{reg(a, 1), reg(b, 2)})

	_, used, err := o.Generate(context.Background(), "prompt", nil)
	require.NoError(t, err)
	assert.Equal(t, "claude", used)
	assert.Equal(t, 1, a.calls)
}

func TestGenerate_AllExhausted(t *testing.T) {
	a := &fakeProvider{name: "openai", complete: failWith(http.StatusInternalServerError)}
	b := &fakeProvider{name: "claude", complete: failWith(http.StatusForbidden)}
	o, _ := newTestOrchestrator(t, []Registration{reg(a, 1), reg(b, 2)})

	_, _, err := o.Generate(context.Background(), "prompt", nil)
	var exhausted *AllProvidersExhaustedError
	require.ErrorAs(t, err, &exhausted)
	require.Len(t, exhausted.Attempts, 2)
	assert.Equal(t, []string{"openai", "claude"}, exhausted.Providers())
	assert.Equal(t, 3, exhausted.Attempts[0].Calls)
	assert.Equal(t, 1, exhausted.Attempts[1].Calls)

	var pe *ProviderError
	require.ErrorAs(t, exhausted.Attempts[1].Err, &pe)
	assert.Equal(t, http.StatusForbidden, pe.StatusCode)
	assert.False(t, pe.Transient)
}

func TestGenerate_UncredentialedNeverAttempted(t *testing.T) {
	a := &fakeProvider{name: "openai", complete: succeed("should not run")}
	b := &fakeProvider{name: "claude", complete: succeed("ok")}
	regs := []Registration{
		{Config: ProviderConfig{Name: "openai", Priority: 1, Credentialed: false}, Provider: a},
		reg(b, 2),
	}
	o, _ := newTestOrchestrator(t, regs)

	assert.Equal(t, []string{"claude"}, o.Providers())
	_, used, err := o.Generate(context.Background(), "prompt", nil)
	require.NoError(t, err)
	assert.Equal(t, "claude", used)
	assert.Zero(t, a.calls)
}

func TestGenerate_OverrideDisablesFallback(t *testing.T) {
	a := &fakeProvider{name: "openai", complete: succeed("ok")}
	b := &fakeProvider{name: "claude", complete: failWith(http.StatusBadRequest)}
	o, _ := newTestOrchestrator(t, []Registration{reg(a, 1), reg(b, 2)}, WithOverride("Claude"))

	assert.Equal(t, []string{"claude"}, o.Providers())
	_, _, err := o.Generate(context.Background(), "prompt", nil)
	var exhausted *AllProvidersExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, []string{"claude"}, exhausted.Providers())
	assert.Zero(t, a.calls)
}

func TestGenerate_CancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	a := &fakeProvider{name: "openai", complete: func(int) (string, error) {
		cancel()
		return "", FromStatus("openai", http.StatusTooManyRequests, errors.New("slow down"))
	}}
	b := &fakeProvider{name: "claude", complete: succeed("ok")}
	o, _ := newTestOrchestrator(t, []Registration{reg(a, 1), reg(b, 2)})

	_, _, err := o.Generate(ctx, "prompt", nil)
	assert.ErrorIs(t, err, types.ErrCancelled)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, b.calls)
}

func TestGenerate_EmptyPrompt(t *testing.T) {
	a := &fakeProvider{name: "openai", complete: succeed("ok")}
	o, _ := newTestOrchestrator(t, []Registration{reg(a, 1)})

	_, _, err := o.Generate(context.Background(), "  \n", nil)
	assert.ErrorIs(t, err, ErrEmptyPrompt)
	assert.Zero(t, a.calls)
}

func TestGenerate_RequestCarriesSamplingAndDegradedNote(t *testing.T) {
	a := &fakeProvider{name: "openai", complete: succeed("ok")}
	o, _ := newTestOrchestrator(t, []Registration{reg(a, 1)},
		WithSystemPrompt("system"), WithSampling(500, 0.2))

	snap := types.NewSnapshot(types.DateRange{})
	_, _, err := o.Generate(context.Background(), "prompt", snap)
	require.NoError(t, err)

	req := a.requests[0]
	assert.Equal(t, "prompt", req.Prompt)
	assert.Equal(t, 500, req.MaxTokens)
	assert.InDelta(t, 0.2, req.Temperature, 1e-6)
	assert.True(t, strings.HasPrefix(req.System, "system"))
	assert.Contains(t, req.System, degradedNote)

	snap.Indicators["10Y"] = 4.2
	_, _, err = o.Generate(context.Background(), "prompt", snap)
	require.NoError(t, err)
	assert.Equal(t, "system", a.requests[1].System)
}

func TestNewOrchestrator_Validation(t *testing.T) {
	a := &fakeProvider{name: "openai", complete: succeed("ok")}
	b := &fakeProvider{name: "claude", complete: succeed("ok")}

	_, err := NewOrchestrator([]Registration{reg(a, 1), reg(&fakeProvider{name: "OpenAI"}, 2)})
	assert.ErrorIs(t, err, ErrDuplicateProvider)

	_, err = NewOrchestrator([]Registration{reg(a, 1), reg(b, 1)})
	assert.ErrorIs(t, err, ErrDuplicatePriority)

	_, err = NewOrchestrator([]Registration{{Config: ProviderConfig{Name: "openai", Priority: 1}}})
	assert.ErrorIs(t, err, ErrNoProviders)

	_, err = NewOrchestrator([]Registration{reg(a, 1)}, WithOverride("gemini"))
	assert.ErrorIs(t, err, ErrProviderNotConfigured)

	_, err = NewOrchestrator([]Registration{reg(a, 1), {Config: ProviderConfig{Name: "claude", Priority: 2}}}, WithOverride("claude"))
	assert.ErrorIs(t, err, ErrNoCredential)
}

func TestCursorAdvance(t *testing.T) {
	transient := FromStatus("p", http.StatusBadGateway, errors.New("bad gateway"))
	fatal := FromStatus("p", http.StatusUnauthorized, errors.New("unauthorized"))

	c := cursor{calls: 1}
	assert.True(t, c.advance(transient, 2))
	c.calls = 2
	assert.True(t, c.advance(transient, 2))
	c.calls = 3
	assert.False(t, c.advance(transient, 2))
	assert.Equal(t, cursor{idx: 1}, c)

	c = cursor{calls: 1}
	assert.False(t, c.advance(fatal, 2))
	assert.Equal(t, 1, c.idx)

	c = cursor{calls: 1}
	assert.False(t, c.advance(transient, 0))
}

func TestRetryPolicyDelay(t *testing.T) {
	p := DefaultRetryPolicy()
	assert.Equal(t, time.Second, p.delay(1))
	assert.Equal(t, 2*time.Second, p.delay(2))
	assert.Equal(t, 4*time.Second, p.delay(3))
	assert.Equal(t, 8*time.Second, p.delay(4))
	assert.Equal(t, 8*time.Second, p.delay(10))
}

func TestSleepContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, sleepContext(ctx, time.Hour), context.Canceled)
	assert.NoError(t, sleepContext(context.Background(), time.Millisecond))
}
