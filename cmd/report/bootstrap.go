package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/openai/openai-go/v3/option"

	"market-report/internal/interfaces"
	"market-report/internal/llm"
	"market-report/internal/llm/claude"
	"market-report/internal/llm/gemini"
	"market-report/internal/llm/llmobs"
	"market-report/internal/llm/noop"
	"market-report/internal/llm/openai"
	"market-report/internal/logger"
	"market-report/internal/marketdata"
	"market-report/internal/sections"
	"market-report/internal/store"
	"market-report/internal/trace"
	"market-report/internal/types"
)

// initializeSystem loads .env and sets up logging and tracing
func initializeSystem(verbose bool) error {
	_ = godotenv.Load()

	logCfg := logger.LoadConfigFromEnv()
	if verbose {
		logCfg.Level = "DEBUG"
	}
	if err := logger.InitWithConfig(logCfg); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	if err := trace.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize tracer: %v\n", err)
	}
	return nil
}

// loadConfig reads the YAML config, falling back to built-in defaults when the file is absent
func loadConfig(ctx context.Context, path string) (*store.Config, error) {
	cfg, err := store.LoadOrDefault(path)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to load config", err, "path", path)
		return nil, err
	}
	return cfg, nil
}

// resolveRange parses -start/-end. Missing values default to the last defaultDays
// days ending today.
func resolveRange(start, end string, defaultDays int, now time.Time) (time.Time, time.Time, error) {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	e := today
	if end != "" {
		t, err := time.Parse(types.DateLayout, end)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid -end %q: want YYYY-MM-DD", end)
		}
		e = t
	}
	s := e.AddDate(0, 0, -defaultDays)
	if start != "" {
		t, err := time.Parse(types.DateLayout, start)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid -start %q: want YYYY-MM-DD", start)
		}
		s = t
	}
	return s, e, nil
}

// buildProvider creates the concrete provider for a configured name
func buildProvider(ctx context.Context, p store.Provider, creds store.Credentials) (interfaces.Provider, error) {
	key := creds.ProviderKey(p.Name)
	switch p.Name {
	case openai.Name:
		var opts []option.RequestOption
		if p.Endpoint != "" {
			opts = append(opts, option.WithBaseURL(p.Endpoint))
		}
		return openai.New(key, p.Model, opts...), nil
	case claude.Name:
		var opts []claude.Option
		if p.Endpoint != "" {
			opts = append(opts, claude.WithEndpoint(p.Endpoint))
		}
		return claude.New(key, p.Model, opts...), nil
	case gemini.Name:
		var opts []gemini.ClientOption
		if p.Endpoint != "" {
			opts = append(opts, gemini.WithBaseURL(p.Endpoint))
		}
		return gemini.New(ctx, key, p.Model, opts...)
	case noop.Name:
		return noop.New(), nil
	}
	return nil, fmt.Errorf("unknown provider: %s", p.Name)
}

// providerRegistrations turns the configured provider table into orchestrator
// registrations. Providers without a key are registered uncredentialed and never
// attempted. A dry run registers only the offline provider.
func providerRegistrations(ctx context.Context, cfg *store.Config, creds store.Credentials, dryRun bool) ([]llm.Registration, error) {
	if dryRun {
		logger.Warn(ctx, "Dry run - no model will be called")
		return []llm.Registration{{
			Config:   llm.ProviderConfig{Name: noop.Name, Priority: 1, Credentialed: true},
			Provider: llmobs.Wrap(noop.New()),
		}}, nil
	}

	regs := make([]llm.Registration, 0, len(cfg.LLM.Providers))
	for _, p := range cfg.LLM.Providers {
		reg := llm.Registration{Config: llm.ProviderConfig{
			Name:         p.Name,
			Priority:     p.Priority,
			Model:        p.Model,
			Credentialed: creds.HasProvider(p.Name),
		}}
		if reg.Config.Credentialed {
			impl, err := buildProvider(ctx, p, creds)
			if err != nil {
				logger.Warn(ctx, "Provider could not be created, skipping", "provider", p.Name, "error", err)
				reg.Config.Credentialed = false
			} else {
				reg.Provider = llmobs.Wrap(impl)
			}
		} else {
			logger.Debug(ctx, "No API key for provider", "provider", p.Name)
		}
		regs = append(regs, reg)
	}
	return regs, nil
}

// initializeOrchestrator builds the fallback chain. agent pins a single provider.
func initializeOrchestrator(ctx context.Context, cfg *store.Config, creds store.Credentials, agent string, dryRun bool) (*llm.Orchestrator, error) {
	regs, err := providerRegistrations(ctx, cfg, creds, dryRun)
	if err != nil {
		return nil, err
	}

	opts := []llm.Option{
		llm.WithRetryPolicy(llm.RetryPolicy{
			MaxRetries: cfg.LLM.MaxRetries,
			Backoff:    cfg.LLM.Backoff,
			MaxBackoff: cfg.LLM.MaxBackoff,
		}),
		llm.WithTimeout(cfg.LLM.Timeout),
		llm.WithSystemPrompt(cfg.LLM.System),
		llm.WithSampling(cfg.LLM.MaxTokens, cfg.LLM.Temperature),
	}
	if agent != "" && !dryRun {
		opts = append(opts, llm.WithOverride(strings.ToLower(agent)))
	}

	orch, err := llm.NewOrchestrator(regs, opts...)
	if err != nil {
		return nil, err
	}
	logger.Info(ctx, "AI providers ready", "order", strings.Join(orch.Providers(), " > "))
	return orch, nil
}

// initializePipeline wires the section pipeline to the orchestrator
func initializePipeline(cfg *store.Config, gen interfaces.Generator) (*sections.Pipeline, error) {
	sectors := make([]string, 0, len(cfg.Data.Yahoo.Sectors))
	for _, s := range cfg.Data.Yahoo.Sectors {
		sectors = append(sectors, s.MergeKey())
	}
	return sections.New(gen, sections.DefaultSpecs(), sections.WithSectorSymbols(sectors...))
}

// printKeyStatus lists which providers and sources have the credentials they need
func printKeyStatus(w io.Writer, cfg *store.Config, creds store.Credentials) {
	mark := func(ok bool) string {
		if ok {
			return "configured"
		}
		return "missing"
	}
	fmt.Fprintln(w, "AI providers (priority order):")
	for _, p := range cfg.LLM.Providers {
		fmt.Fprintf(w, "  %d. %-8s %s\n", p.Priority, p.Name, mark(creds.HasProvider(p.Name)))
	}
	fmt.Fprintln(w, "Data sources:")
	for _, s := range cfg.Data.Sources {
		fmt.Fprintf(w, "  - %-8s %s\n", s, mark(creds.HasSource(s)))
	}
}

// initializeAggregator wires the configured market data sources
func initializeAggregator(ctx context.Context, cfg *store.Config, creds store.Credentials) (*marketdata.Aggregator, error) {
	return marketdata.NewFromConfig(ctx, cfg, creds)
}
