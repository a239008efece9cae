package llm

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"market-report/internal/interfaces"
	"market-report/internal/logger"
	"market-report/internal/trace"
	"market-report/internal/types"
)

// ProviderConfig identifies one provider. Priority ranks must be unique; lower runs first.
type ProviderConfig struct {
	Name         string
	Priority     int
	Credentialed bool
	Model        string
}

// Registration pairs a provider config with its implementation. Provider may be nil
// when the provider has no credential.
type Registration struct {
	Config   ProviderConfig
	Provider interfaces.Provider
}

// RetryPolicy bounds retries of transient failures on a single provider.
type RetryPolicy struct {
	MaxRetries int
	Backoff    time.Duration
	MaxBackoff time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: 2, Backoff: time.Second, MaxBackoff: 8 * time.Second}
}

// delay returns the wait before retry n (1-based): Backoff doubled per retry, capped.
func (p RetryPolicy) delay(n int) time.Duration {
	d := p.Backoff
	for i := 1; i < n; i++ {
		d *= 2
		if p.MaxBackoff > 0 && d >= p.MaxBackoff {
			return p.MaxBackoff
		}
	}
	if p.MaxBackoff > 0 && d > p.MaxBackoff {
		return p.MaxBackoff
	}
	return d
}

const (
	DefaultTimeout     = 60 * time.Second
	DefaultMaxTokens   = 2000
	DefaultTemperature = 0.7
	DefaultSystem      = "You are a financial analyst creating comprehensive market reports. Provide detailed, professional analysis."

	degradedNote = "Some market data sources were unavailable for this period. Where a figure is missing, say it is unavailable instead of estimating it."
)

type provider struct {
	cfg  ProviderConfig
	impl interfaces.Provider
}

// Orchestrator runs a prompt against providers in priority order with fallback.
// Its provider list is read-only after construction.
type Orchestrator struct {
	providers   []provider
	override    string
	retry       RetryPolicy
	timeout     time.Duration
	system      string
	maxTokens   int
	temperature float32
	sleep       func(ctx context.Context, d time.Duration) error
}

var _ interfaces.Generator = (*Orchestrator)(nil)

type Option func(*Orchestrator)

// WithOverride pins a single provider and disables fallback.
func WithOverride(name string) Option {
	return func(o *Orchestrator) {
		o.override = strings.ToLower(strings.TrimSpace(name))
	}
}

func WithRetryPolicy(p RetryPolicy) Option {
	return func(o *Orchestrator) {
		o.retry = p
	}
}

// WithTimeout sets the per-call timeout.
func WithTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.timeout = d
		}
	}
}

func WithSystemPrompt(system string) Option {
	return func(o *Orchestrator) {
		if system != "" {
			o.system = system
		}
	}
}

func WithSampling(maxTokens int, temperature float32) Option {
	return func(o *Orchestrator) {
		if maxTokens > 0 {
			o.maxTokens = maxTokens
		}
		o.temperature = temperature
	}
}

// NewOrchestrator validates the provider table and keeps only credentialed providers,
// sorted by priority.
func NewOrchestrator(regs []Registration, opts ...Option) (*Orchestrator, error) {
	o := &Orchestrator{
		retry:       DefaultRetryPolicy(),
		timeout:     DefaultTimeout,
		system:      DefaultSystem,
		maxTokens:   DefaultMaxTokens,
		temperature: DefaultTemperature,
		sleep:       sleepContext,
	}
	for _, opt := range opts {
		opt(o)
	}

	names := make(map[string]bool, len(regs))
	priorities := make(map[int]string, len(regs))
	var usable []provider
	pinned := -1
	for _, r := range regs {
		name := strings.ToLower(r.Config.Name)
		if names[name] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateProvider, name)
		}
		names[name] = true
		if other, dup := priorities[r.Config.Priority]; dup {
			return nil, fmt.Errorf("%w: %s and %s share %d", ErrDuplicatePriority, other, name, r.Config.Priority)
		}
		priorities[r.Config.Priority] = name

		if !r.Config.Credentialed || r.Provider == nil {
			if name == o.override {
				return nil, fmt.Errorf("override %s: %w", name, ErrNoCredential)
			}
			continue
		}
		p := provider{cfg: r.Config, impl: r.Provider}
		p.cfg.Name = name
		usable = append(usable, p)
		if name == o.override {
			pinned = len(usable) - 1
		}
	}

	if o.override != "" {
		if pinned < 0 {
			return nil, fmt.Errorf("override %s: %w", o.override, ErrProviderNotConfigured)
		}
		o.providers = []provider{usable[pinned]}
		return o, nil
	}
	if len(usable) == 0 {
		return nil, ErrNoProviders
	}
	sort.SliceStable(usable, func(i, j int) bool {
		return usable[i].cfg.Priority < usable[j].cfg.Priority
	})
	o.providers = usable
	return o, nil
}

// Providers returns provider names in the order they are attempted.
func (o *Orchestrator) Providers() []string {
	names := make([]string, len(o.providers))
	for i, p := range o.providers {
		names[i] = p.cfg.Name
	}
	return names
}

// cursor is the fallback state: which provider, and how many calls it has had.
type cursor struct {
	idx   int
	calls int
}

// advance decides what follows a failed call. It returns true to retry the current
// provider; otherwise the cursor moves to the next provider.
func (c *cursor) advance(err error, maxRetries int) bool {
	if IsTransient(err) && c.calls <= maxRetries {
		return true
	}
	c.idx++
	c.calls = 0
	return false
}

// Generate returns text from the first provider that succeeds, and its name.
func (o *Orchestrator) Generate(ctx context.Context, prompt string, snap *types.MarketSnapshot) (string, string, error) {
	ctx, span := trace.StartSpan(ctx, "llm.Generate")
	defer span.End()

	if strings.TrimSpace(prompt) == "" {
		return "", "", ErrEmptyPrompt
	}
	req := o.request(prompt, snap)

	var attempts []ProviderAttempt
	c := cursor{}
	for c.idx < len(o.providers) {
		if ctx.Err() != nil {
			return "", "", types.Cancelled(ctx)
		}
		p := o.providers[c.idx]
		c.calls++

		text, err := o.call(ctx, p, req)
		logger.Attempt(ctx, p.cfg.Name, c.calls, err)
		if err == nil {
			span.SetAttributes(attribute.String("provider", p.cfg.Name))
			return text, p.cfg.Name, nil
		}
		if ctx.Err() != nil {
			return "", "", types.Cancelled(ctx)
		}

		calls := c.calls
		if c.advance(err, o.retry.MaxRetries) {
			if werr := o.sleep(ctx, o.retry.delay(calls)); werr != nil {
				return "", "", types.Cancelled(ctx)
			}
			continue
		}
		attempts = append(attempts, ProviderAttempt{Provider: p.cfg.Name, Calls: calls, Err: err})
	}

	exhausted := &AllProvidersExhaustedError{Attempts: attempts}
	trace.RecordError(span, exhausted)
	return "", "", exhausted
}

func (o *Orchestrator) call(ctx context.Context, p provider, req types.CompletionRequest) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	text, err := p.impl.Complete(callCtx, req)
	if err != nil {
		return "", Classify(p.cfg.Name, err)
	}
	if strings.TrimSpace(text) == "" {
		return "", Fatal(p.cfg.Name, ErrEmptyCompletion)
	}
	return strings.TrimSpace(text), nil
}

func (o *Orchestrator) request(prompt string, snap *types.MarketSnapshot) types.CompletionRequest {
	system := o.system
	if snap != nil && (snap.Degraded || snap.Empty()) {
		system += "\n\n" + degradedNote
	}
	return types.CompletionRequest{
		System:      system,
		Prompt:      prompt,
		MaxTokens:   o.maxTokens,
		Temperature: o.temperature,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
