package usecase

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/semmidev/pgkeeper/internal/domain"
)

const summaryTimeLayout = "2006-01-02 15:04:05"

// RestoreSummary renders the closing block printed after every restore attempt.
func RestoreSummary(r *domain.RestoreResult) string {
	status := "FAILED"
	if r.Success {
		status = "SUCCESS"
	}

	var b strings.Builder
	b.WriteString(strings.Repeat("=", 60) + "\n")
	b.WriteString("Restore summary\n")
	fmt.Fprintf(&b, "Start time: %s\n", r.StartedAt.Format(summaryTimeLayout))
	fmt.Fprintf(&b, "End time:   %s\n", r.EndedAt.Format(summaryTimeLayout))
	fmt.Fprintf(&b, "Duration:   %s\n", r.Duration().Round(time.Second))
	fmt.Fprintf(&b, "Status:     %s\n", status)
	fmt.Fprintf(&b, "Database:   %s\n", r.Database)
	b.WriteString(strings.Repeat("=", 60))
	return b.String()
}

// RunSummary renders a backup run for notifications. err is the run error, if any.
func RunSummary(host string, run *domain.BackupRun, err error) string {
	var b strings.Builder
	if err == nil && run != nil && run.Succeeded() {
		fmt.Fprintf(&b, "Backup on %s succeeded\n", host)
	} else {
		fmt.Fprintf(&b, "Backup on %s FAILED\n", host)
	}
	if run == nil {
		if err != nil {
			fmt.Fprintf(&b, "Error: %v\n", err)
		}
		return strings.TrimRight(b.String(), "\n")
	}

	fmt.Fprintf(&b, "Started: %s\n", run.StartedAt.Format(summaryTimeLayout))
	fmt.Fprintf(&b, "Duration: %s\n", run.EndedAt.Sub(run.StartedAt).Round(time.Second))
	fmt.Fprintf(&b, "Artifacts: %d, failures: %d\n", len(run.Artifacts), run.Failures())

	for _, o := range run.Outcomes {
		if len(o.Errors) == 0 {
			fmt.Fprintf(&b, "- %s: ok (%d file(s))\n", o.Database, len(o.Artifacts))
			continue
		}
		fmt.Fprintf(&b, "- %s: %d ok, %d failed: %v\n", o.Database, len(o.Artifacts), len(o.Errors), o.Errors[0])
	}
	for _, a := range run.Artifacts {
		fmt.Fprintf(&b, "  %s (%.2f MB)\n", filepath.Base(a.Path), float64(a.Size)/(1024*1024))
	}
	if err != nil && len(run.Outcomes) == 0 {
		fmt.Fprintf(&b, "Error: %v\n", err)
	}
	return strings.TrimRight(b.String(), "\n")
}
