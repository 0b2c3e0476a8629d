package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// RunStatus is the overall status of a pipeline run.
type RunStatus string

const (
	// RunStatusSucceeded indicates every step succeeded or was skipped.
	RunStatusSucceeded RunStatus = "succeeded"

	// RunStatusPartial indicates at least one best-effort step failed.
	RunStatusPartial RunStatus = "partial"

	// RunStatusFailed indicates a fatal step failed and the run aborted.
	RunStatusFailed RunStatus = "failed"

	// RunStatusCancelled indicates the run was interrupted.
	RunStatusCancelled RunStatus = "cancelled"
)

// Runner executes an ordered list of steps sequentially.
//
// There is no parallelism between steps: the pipeline is a total order over
// host mutations. A fatal step failure aborts the run; best-effort failures
// are recorded in the report and execution continues.
type Runner struct {
	steps []Step
}

// NewRunner creates a Runner over the given ordered steps.
func NewRunner(steps ...Step) *Runner {
	return &Runner{steps: steps}
}

// Run executes the pipeline and returns the run report.
//
// The returned error is non-nil only when a fatal step failed or the context
// was cancelled; best-effort failures surface solely through the report.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	report := &Report{
		RunID:     uuid.New().String(),
		StartedAt: time.Now(),
		Status:    RunStatusSucceeded,
	}
	logger := zerolog.Ctx(ctx).With().Str("run_id", report.RunID).Logger()

	var fatalErr error
	for _, step := range r.steps {
		if err := ctx.Err(); err != nil {
			report.Status = RunStatusCancelled
			fatalErr = err
			break
		}

		result := r.executeStep(ctx, &logger, step)
		report.Steps = append(report.Steps, result)

		if result.Outcome == OutcomeFailed {
			if step.Policy() == PolicyFatal {
				report.Status = RunStatusFailed
				fatalErr = fmt.Errorf("fatal step %s failed: %s", step.Name(), result.Error)
				break
			}
			report.Status = RunStatusPartial
		}
	}

	report.CompletedAt = time.Now()
	report.Duration = report.CompletedAt.Sub(report.StartedAt)
	return report, fatalErr
}

func (r *Runner) executeStep(ctx context.Context, logger *zerolog.Logger, step Step) StepResult {
	slog := logger.With().Str("step", step.Name()).Logger()
	start := time.Now()

	result := StepResult{
		Name:   step.Name(),
		Policy: step.Policy(),
	}

	satisfied, err := step.IsSatisfied(ctx)
	if err != nil {
		// A failing probe means we cannot prove the state holds; the
		// step applies as if unsatisfied.
		slog.Debug().Err(err).Msg("satisfaction probe failed, applying step")
		satisfied = false
	}

	if satisfied {
		slog.Info().Msg("already satisfied, skipping")
		result.Outcome = OutcomeSkipped
		result.Duration = time.Since(start)
		return result
	}

	slog.Info().Msg("applying")
	if err := step.Apply(ctx); err != nil {
		result.Outcome = OutcomeFailed
		result.Error = err.Error()
		result.Duration = time.Since(start)
		if step.Policy() == PolicyFatal {
			slog.Error().Err(err).Msg("step failed")
		} else {
			slog.Warn().Err(err).Msg("step failed, continuing")
		}
		return result
	}

	result.Outcome = OutcomeSucceeded
	result.Duration = time.Since(start)
	slog.Info().Dur("duration", result.Duration).Msg("applied")
	return result
}
