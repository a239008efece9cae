package report

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DefaultDir is where reports land when no output directory is configured.
const DefaultDir = "reports"

// DefaultName is market_report_YYYYMMDD_HHMMSS.md for t.
func DefaultName(t time.Time) string {
	return "market_report_" + t.Format("20060102_150405") + ".md"
}

// Write stores content as dir/name, creating dir as needed, and returns the path.
// An empty name uses DefaultName for the current time. A name containing a path
// separator is used as given and dir is ignored.
func Write(dir, name, content string) (string, error) {
	if name == "" {
		name = DefaultName(time.Now())
	}
	if dir == "" {
		dir = DefaultDir
	}
	p := name
	if filepath.Base(name) == name {
		p = filepath.Join(dir, name)
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return "", fmt.Errorf("create report dir: %w", err)
	}
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	return p, nil
}
