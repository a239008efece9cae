package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"market-report/internal/logger"
	"market-report/internal/marketdata"
	"market-report/internal/report"
	"market-report/internal/sections"
	"market-report/internal/store"
	"market-report/internal/trace"
	"market-report/internal/types"
)

const (
	exitOK        = 0
	exitFailure   = 1
	exitUsage     = 2
	exitCancelled = 130
)

func main() {
	os.Exit(run())
}

func run() int {
	// Command-line flags
	agent := flag.String("agent", "", "use only this AI provider: openai, claude, gemini or noop")
	start := flag.String("start", "", "start date YYYY-MM-DD (default: end minus report.default_days)")
	end := flag.String("end", "", "end date YYYY-MM-DD (default: today)")
	output := flag.String("output", "", "report file name or path (default: output.dir/market_report_<timestamp>.md)")
	configPath := flag.String("config", "config.yaml", "path to config file")
	verbose := flag.Bool("verbose", false, "enable debug logging")
	checkKeys := flag.Bool("check-keys", false, "show which API keys are configured and exit")
	dryRun := flag.Bool("dry-run", false, "build the report with the offline provider, no model is called")
	flag.Parse()

	if err := initializeSystem(*verbose); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitFailure
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = trace.Shutdown(ctx)
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(ctx, *configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		return exitUsage
	}
	creds, err := store.LoadCredentials()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading credentials: %v\n", err)
		return exitUsage
	}

	if *checkKeys {
		printKeyStatus(os.Stdout, cfg, creds)
		return exitOK
	}

	from, to, err := resolveRange(*start, *end, cfg.Report.DefaultDays, time.Now())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitUsage
	}
	if err := marketdata.ValidateRange(from, to, cfg.Data.MaxRangeDays); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitUsage
	}

	orch, err := initializeOrchestrator(ctx, cfg, creds, *agent, *dryRun)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\nRun with -check-keys to see which API keys are set.\n", err)
		return exitUsage
	}
	agg, err := initializeAggregator(ctx, cfg, creds)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitUsage
	}
	pipeline, err := initializePipeline(cfg, orch)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitFailure
	}

	logger.Info(ctx, "Generating market report",
		"start", from.Format(types.DateLayout),
		"end", to.Format(types.DateLayout),
	)

	snap, err := agg.Fetch(ctx, from, to)
	if err != nil {
		return reportError(err)
	}

	rep, buildErr := pipeline.Build(ctx, snap)
	var allFailed *sections.AllSectionsFailedError
	if buildErr != nil && !errors.As(buildErr, &allFailed) {
		return reportError(buildErr)
	}

	content := report.Assembler{Title: cfg.Report.Title}.Assemble(rep)
	path, err := report.Write(cfg.Output.Dir, *output, content)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to save report", err)
		fmt.Println(content)
		return exitFailure
	}

	fmt.Printf("✅ Report saved to: %s\n", path)
	fmt.Printf("Sections generated: %d of %d\n", rep.Metadata.Succeeded, rep.Metadata.Total)
	if rep.Metadata.Degraded {
		fmt.Println("⚠️  Some market data sources were unavailable")
	}

	if allFailed != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", allFailed)
		return exitFailure
	}
	return exitOK
}

func reportError(err error) int {
	if errors.Is(err, types.ErrCancelled) {
		fmt.Fprintln(os.Stderr, "Cancelled")
		return exitCancelled
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	var rangeErr *marketdata.InvalidRangeError
	if errors.As(err, &rangeErr) {
		return exitUsage
	}
	return exitFailure
}
