// Package pipeline implements the sequential provisioning pipeline: an
// ordered list of idempotent steps executed against the target host, each
// with its own failure policy, collected into a structured run report.
package pipeline

import (
	"context"
	"fmt"
	"time"
)

// FailurePolicy controls how a step failure affects the run.
type FailurePolicy string

const (
	// PolicyFatal aborts the whole run when the step fails.
	PolicyFatal FailurePolicy = "fatal"

	// PolicyBestEffort records the failure and continues the run.
	PolicyBestEffort FailurePolicy = "best-effort"
)

// Validate checks if the failure policy is valid.
func (p FailurePolicy) Validate() error {
	switch p {
	case PolicyFatal, PolicyBestEffort:
		return nil
	default:
		return fmt.Errorf("invalid failure policy: %s", p)
	}
}

// Outcome is the terminal state of a single step execution.
type Outcome string

const (
	// OutcomeSucceeded indicates the step applied its action successfully.
	OutcomeSucceeded Outcome = "succeeded"

	// OutcomeSkipped indicates the step's desired state was already
	// satisfied and no action was taken.
	OutcomeSkipped Outcome = "skipped"

	// OutcomeFailed indicates the step's action failed.
	OutcomeFailed Outcome = "failed"
)

// Step is an idempotent unit of provisioning work.
//
// The runner consults IsSatisfied before Apply; a step that reports its
// desired state as already present is skipped. Re-running a pipeline on a
// partially provisioned host must therefore be safe: each step either skips
// or re-applies without changing the outcome beyond the first success.
type Step interface {
	// Name returns the step identifier used in logs and the run report.
	Name() string

	// Policy returns the step's failure policy.
	Policy() FailurePolicy

	// IsSatisfied reports whether the desired state already holds on the
	// host. Probe errors are treated by the runner as "not satisfied".
	IsSatisfied(ctx context.Context) (bool, error)

	// Apply performs the step's action. It must be safe to call again
	// after a partial prior application.
	Apply(ctx context.Context) error
}

// StepResult records the outcome of one step execution.
type StepResult struct {
	// Name is the step identifier.
	Name string `json:"name"`

	// Outcome is the terminal state of the step.
	Outcome Outcome `json:"outcome"`

	// Policy is the step's failure policy.
	Policy FailurePolicy `json:"policy"`

	// Error is the failure message, if any.
	Error string `json:"error,omitempty"`

	// Duration is how long the step took.
	Duration time.Duration `json:"duration"`
}

// Func adapts plain functions into a Step for actions that have no
// meaningful satisfaction probe (they re-apply deterministically).
type Func struct {
	StepName   string
	StepPolicy FailurePolicy
	Check      func(ctx context.Context) (bool, error)
	Run        func(ctx context.Context) error
}

// Name implements Step.
func (f *Func) Name() string { return f.StepName }

// Policy implements Step.
func (f *Func) Policy() FailurePolicy {
	if f.StepPolicy == "" {
		return PolicyBestEffort
	}
	return f.StepPolicy
}

// IsSatisfied implements Step.
func (f *Func) IsSatisfied(ctx context.Context) (bool, error) {
	if f.Check == nil {
		return false, nil
	}
	return f.Check(ctx)
}

// Apply implements Step.
func (f *Func) Apply(ctx context.Context) error { return f.Run(ctx) }
