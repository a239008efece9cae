package report

import (
	"fmt"
	"strings"
	"time"

	"market-report/internal/types"
)

// DefaultTitle heads the document when no title is configured.
const DefaultTitle = "COMPREHENSIVE STOCK MARKET REPORT"

const disclaimer = "**Disclaimer:** This report is for informational purposes only and should not be " +
	"considered as investment advice. Always consult with qualified financial advisors before " +
	"making investment decisions."

// Assembler renders a report as markdown.
type Assembler struct {
	Title string
}

// Assemble renders with the default title.
func Assemble(r *types.Report) string {
	return Assembler{}.Assemble(r)
}

func (a Assembler) Assemble(r *types.Report) string {
	title := a.Title
	if title == "" {
		title = DefaultTitle
	}
	md := r.Metadata

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", title)
	// header fields are separate paragraphs so markdown does not join them
	fmt.Fprintf(&b, "**Report Period:** %s\n\n", period(md.Range))
	fmt.Fprintf(&b, "**Generated:** %s\n\n", md.GeneratedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "**AI Providers:** %s\n\n", providers(md.ProvidersUsed))
	if r.RunID != "" {
		fmt.Fprintf(&b, "**Run ID:** %s\n\n", r.RunID)
	}
	fmt.Fprintf(&b, "**Sections Generated:** %d of %d\n", md.Succeeded, md.Total)
	if md.Degraded {
		b.WriteString("\n> Some market data sources were unavailable; figures in this report may be incomplete.\n")
	}

	if md.Succeeded < md.Total {
		b.WriteString("\n### Section Status\n\n")
		b.WriteString("| # | Section | Status | Detail |\n")
		b.WriteString("|---|---|---|---|\n")
		for _, s := range r.Sections {
			status, detail := "ok", s.Provider
			if !s.Success {
				status, detail = "FAILED", escapeCell(s.Err)
			}
			fmt.Fprintf(&b, "| %d | %s | %s | %s |\n", s.Ordinal, s.Title, status, detail)
		}
	}

	for _, s := range r.Sections {
		b.WriteString("\n---\n\n")
		fmt.Fprintf(&b, "## %d. %s\n\n", s.Ordinal, strings.ToUpper(s.Title))
		if !s.Success {
			b.WriteString("> **This section could not be generated.**\n\n")
		}
		b.WriteString(strings.TrimSpace(s.Text))
		b.WriteString("\n")
	}

	b.WriteString("\n---\n\n## METHODOLOGY & DATA SOURCES\n")
	b.WriteString("This report was generated using AI analysis of:\n")
	b.WriteString("- Daily market data for major indices, sector funds and large-cap stocks\n")
	b.WriteString("- Financial news from RSS feeds and news APIs\n")
	b.WriteString("- Economic indicators and market sentiment data\n")
	if len(md.Sources) > 0 {
		b.WriteString("\n| Source | Status | Time |\n|---|---|---|\n")
		for _, src := range md.Sources {
			status := "ok"
			if !src.OK {
				status = "unavailable: " + escapeCell(src.Err)
			}
			fmt.Fprintf(&b, "| %s | %s | %s |\n", src.Name, status, src.Duration.Round(time.Millisecond))
		}
	}
	b.WriteString("\n" + disclaimer + "\n\n---\n")
	b.WriteString("*Report generated by the AI-Powered Market Report Generator*\n")
	return b.String()
}

func period(r types.DateRange) string {
	if r.Start.IsZero() {
		return "unspecified"
	}
	return r.String()
}

func providers(names []string) string {
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, ", ")
}

func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	return strings.Join(strings.Fields(s), " ")
}
