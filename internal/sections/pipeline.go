package sections

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/google/uuid"

	"market-report/internal/interfaces"
	"market-report/internal/llm"
	"market-report/internal/logger"
	"market-report/internal/trace"
	"market-report/internal/types"
)

// AllSectionsFailedError is returned alongside the report when no section could be
// generated.
type AllSectionsFailedError struct {
	Errs []error
}

func (e *AllSectionsFailedError) Error() string {
	msg := fmt.Sprintf("all %d report sections failed", len(e.Errs))
	if len(e.Errs) > 0 {
		msg += ": " + e.Errs[0].Error()
	}
	return msg
}

func (e *AllSectionsFailedError) Unwrap() []error { return e.Errs }

// Pipeline generates the report sections one after another.
type Pipeline struct {
	gen     interfaces.Generator
	specs   []compiledSpec
	sectors map[string]bool
	now     func() time.Time
	newID   func() string
}

type Option func(*Pipeline)

// WithSectorSymbols marks which price series are sector funds; the rest are
// reported as individual stocks.
func WithSectorSymbols(symbols ...string) Option {
	return func(p *Pipeline) {
		p.sectors = make(map[string]bool, len(symbols))
		for _, s := range symbols {
			p.sectors[s] = true
		}
	}
}

// WithClock overrides the generation timestamp source.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		if now != nil {
			p.now = now
		}
	}
}

// New validates the section table. A nil specs slice means DefaultSpecs.
func New(gen interfaces.Generator, specs []SectionSpec, opts ...Option) (*Pipeline, error) {
	if gen == nil {
		return nil, errors.New("sections: nil generator")
	}
	if specs == nil {
		specs = DefaultSpecs()
	}
	compiled, err := compile(specs)
	if err != nil {
		return nil, err
	}
	p := &Pipeline{
		gen:   gen,
		specs: compiled,
		now:   time.Now,
		newID: uuid.NewString,
	}
	WithSectorSymbols(defaultSectors...)(p)
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

var defaultSectors = []string{"XLK", "XLV", "XLF", "XLY", "XLP", "XLE", "XLU", "XLI", "XLB", "XLRE", "XLC"}

// Build runs every section in ordinal order and always returns all of them, failed
// ones carrying a placeholder. It errors only on cancellation, or with
// *AllSectionsFailedError together with the report when nothing succeeded.
func (p *Pipeline) Build(ctx context.Context, snap *types.MarketSnapshot) (*types.Report, error) {
	if snap == nil {
		snap = types.NewSnapshot(types.DateRange{})
	}
	ctx, span := trace.StartSpan(ctx, "sections.Build")
	defer span.End()

	runID := p.newID()
	op := logger.StartOperation(ctx, "sections.Build", "run_id", runID, "period", snap.Range.String())
	ctx = op.GetContext()

	sv := newSnapshotView(snap, p.sectors)
	completed := make([]types.SectionResult, 0, len(p.specs))
	var failures []error

	for i, cs := range p.specs {
		if ctx.Err() != nil {
			err := types.Cancelled(ctx)
			op.EndWithError(err, "completed", i)
			return nil, err
		}
		res, err := p.runSection(ctx, cs, sv, snap, completed)
		if err != nil && (errors.Is(err, types.ErrCancelled) || ctx.Err() != nil) {
			cerr := types.Cancelled(ctx)
			op.EndWithError(cerr, "completed", i)
			return nil, cerr
		}
		if err != nil {
			failures = append(failures, fmt.Errorf("%s: %w", cs.ID, err))
		}
		logger.Section(ctx, string(cs.ID), cs.Ordinal, res.Success, res.Provider)
		completed = append(completed, res)
	}

	report := &types.Report{
		RunID:    runID,
		Sections: completed,
		Metadata: p.metadata(snap, completed),
	}

	if report.Metadata.Succeeded == 0 {
		err := &AllSectionsFailedError{Errs: failures}
		trace.RecordError(span, err)
		op.EndWithError(err, "sections", len(completed))
		return report, err
	}
	op.End(
		"succeeded", report.Metadata.Succeeded,
		"total", report.Metadata.Total,
		"providers", strings.Join(report.Metadata.ProvidersUsed, ","),
	)
	return report, nil
}

// runSection renders and generates one section. The returned error is the cause of
// a failed section; the result is populated either way.
func (p *Pipeline) runSection(ctx context.Context, cs compiledSpec, sv snapshotView, snap *types.MarketSnapshot, completed []types.SectionResult) (types.SectionResult, error) {
	res := types.SectionResult{ID: cs.ID, Ordinal: cs.Ordinal, Title: cs.Title}

	prompt, err := p.render(cs, sv, completed)
	if err != nil {
		err = fmt.Errorf("render prompt: %w", err)
		return failed(res, err), err
	}

	text, provider, err := p.gen.Generate(ctx, prompt, snap)
	if err != nil {
		return failed(res, err), err
	}
	res.Text = text
	res.Provider = provider
	res.Success = true
	return res, nil
}

func (p *Pipeline) render(cs compiledSpec, sv snapshotView, completed []types.SectionResult) (string, error) {
	funcs := template.FuncMap{
		"section": sectionLookup(cs, p.specs, completed),
	}
	v := sv.forSpec(cs.SectionSpec)

	prompt, err := execute(cs.prompt, funcs, v)
	if err != nil {
		return "", err
	}
	data, err := execute(cs.data, funcs, v)
	if err != nil {
		return "", err
	}
	return types.JoinData(prompt, data), nil
}

// execute runs a clone so concurrent builds never share bound funcs.
func execute(t *template.Template, funcs template.FuncMap, v view) (string, error) {
	c, err := t.Clone()
	if err != nil {
		return "", err
	}
	var b strings.Builder
	if err := c.Funcs(funcs).Execute(&b, v); err != nil {
		return "", err
	}
	return strings.TrimSpace(b.String()), nil
}

// sectionLookup resolves a declared dependency to its text by ordinal index into
// the completed results. Failed dependencies render as a short note.
func sectionLookup(cs compiledSpec, specs []compiledSpec, completed []types.SectionResult) func(string) (string, error) {
	return func(id string) (string, error) {
		sid := types.SectionID(id)
		if !cs.deps[sid] {
			return "", fmt.Errorf("section %q is not a declared dependency of %s", id, cs.ID)
		}
		for _, s := range specs {
			if s.ID != sid {
				continue
			}
			idx := s.Ordinal - 1
			if idx >= len(completed) {
				return "", fmt.Errorf("section %q has not been generated yet", id)
			}
			if !completed[idx].Success {
				return "(not available: that section could not be generated)", nil
			}
			return completed[idx].Text, nil
		}
		return "", fmt.Errorf("unknown section %q", id)
	}
}

func failed(res types.SectionResult, err error) types.SectionResult {
	res.Success = false
	res.Err = err.Error()
	res.Text = Placeholder(err)
	return res
}

// Placeholder is the text a failed section carries in the report.
func Placeholder(err error) string {
	return "[Section unavailable: " + failureReason(err) + "]"
}

func failureReason(err error) string {
	var exhausted *llm.AllProvidersExhaustedError
	switch {
	case errors.As(err, &exhausted):
		if names := exhausted.Providers(); len(names) > 0 {
			return "all AI providers failed (" + strings.Join(names, ", ") + ")"
		}
		return "all AI providers failed"
	case errors.Is(err, llm.ErrNoProviders):
		return "no AI provider is configured"
	case err == nil:
		return "unknown error"
	}
	return err.Error()
}

func (p *Pipeline) metadata(snap *types.MarketSnapshot, results []types.SectionResult) types.ReportMetadata {
	md := types.ReportMetadata{
		Range:         snap.Range,
		GeneratedAt:   p.now(),
		ProvidersUsed: []string{},
		Total:         len(results),
		Degraded:      snap.Degraded || snap.Unavailable,
		Sources:       snap.Sources,
	}
	seen := make(map[string]bool)
	for _, r := range results {
		if !r.Success {
			continue
		}
		md.Succeeded++
		if r.Provider != "" && !seen[r.Provider] {
			seen[r.Provider] = true
			md.ProvidersUsed = append(md.ProvidersUsed, r.Provider)
		}
	}
	return md
}
