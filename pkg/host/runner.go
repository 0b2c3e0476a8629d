// Package host provides command execution against the target host.
// Every step that mutates or inspects host state goes through the Runner
// interface so the provisioning pipeline can be exercised against a fake.
package host

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// Result captures the outcome of a single host command.
type Result struct {
	// Stdout is the captured standard output.
	Stdout string

	// Stderr is the captured standard error.
	Stderr string

	// ExitCode is the process exit code. Zero on success.
	ExitCode int

	// Duration is the wall-clock execution time.
	Duration time.Duration
}

// Runner executes commands on the target host.
type Runner interface {
	// Run executes name with args and returns the captured result.
	// A non-zero exit code is returned as a non-nil error alongside the
	// result so callers can inspect output on failure.
	Run(ctx context.Context, name string, args ...string) (Result, error)

	// RunShell executes a command line through /bin/sh -c. Reserved for
	// operations that genuinely need shell features (pipes, redirection).
	RunShell(ctx context.Context, cmdline string) (Result, error)

	// LookPath reports whether an executable is available on PATH.
	LookPath(name string) bool
}

// ExecRunner runs commands locally via os/exec.
type ExecRunner struct{}

// NewExecRunner returns a Runner backed by os/exec.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{}
}

// Run implements Runner.
func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) (Result, error) {
	return r.run(exec.CommandContext(ctx, name, args...))
}

// RunShell implements Runner.
func (r *ExecRunner) RunShell(ctx context.Context, cmdline string) (Result, error) {
	return r.run(exec.CommandContext(ctx, "/bin/sh", "-c", cmdline))
}

// LookPath implements Runner.
func (r *ExecRunner) LookPath(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}

func (r *ExecRunner) run(cmd *exec.Cmd) (Result, error) {
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()

	result := Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}

	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			result.ExitCode = exitErr.ExitCode()
			return result, fmt.Errorf("%s exited %d: %s",
				cmd.Path, result.ExitCode, firstLine(result.Stderr))
		}
		return result, fmt.Errorf("failed to execute %s: %w", cmd.Path, err)
	}

	return result, nil
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
