package pipeline

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Report is the structured outcome of a pipeline run.
//
// The run always produces a report, including when best-effort steps failed:
// partial failure is surfaced here rather than by the process exit code.
type Report struct {
	// RunID is the unique identifier for this run.
	RunID string `json:"run_id"`

	// Status is the overall run status.
	Status RunStatus `json:"status"`

	// StartedAt is when the run started.
	StartedAt time.Time `json:"started_at"`

	// CompletedAt is when the run completed.
	CompletedAt time.Time `json:"completed_at"`

	// Duration is the total run duration.
	Duration time.Duration `json:"duration"`

	// Steps are the per-step results in execution order.
	Steps []StepResult `json:"steps"`

	// Warnings are run-level notices (e.g. default secrets in use).
	Warnings []string `json:"warnings,omitempty"`
}

// Summary returns aggregate counts over the step results.
func (r *Report) Summary() (succeeded, skipped, failed int) {
	for _, s := range r.Steps {
		switch s.Outcome {
		case OutcomeSucceeded:
			succeeded++
		case OutcomeSkipped:
			skipped++
		case OutcomeFailed:
			failed++
		}
	}
	return succeeded, skipped, failed
}

// JSON renders the report as indented JSON.
func (r *Report) JSON() (string, error) {
	b, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal report: %w", err)
	}
	return string(b), nil
}

// String renders a human-readable summary table.
func (r *Report) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "run %s: %s (%s)\n", r.RunID, r.Status, r.Duration.Round(time.Millisecond))
	for _, s := range r.Steps {
		line := fmt.Sprintf("  %-28s %-10s %s", s.Name, s.Outcome, s.Duration.Round(time.Millisecond))
		if s.Error != "" {
			line += "  (" + s.Error + ")"
		}
		b.WriteString(line + "\n")
	}
	succeeded, skipped, failed := r.Summary()
	fmt.Fprintf(&b, "  %d applied, %d skipped, %d failed\n", succeeded, skipped, failed)
	for _, w := range r.Warnings {
		fmt.Fprintf(&b, "  warning: %s\n", w)
	}
	return b.String()
}
