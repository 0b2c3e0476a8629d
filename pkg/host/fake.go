package host

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// FakeResponse is a canned response for a FakeRunner command pattern.
type FakeResponse struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Err      error
}

// FakeRunner is a scriptable Runner for tests. Commands are matched by
// prefix against the joined command line; unmatched commands succeed with
// empty output. It records every invocation in order.
type FakeRunner struct {
	mu sync.Mutex

	// responses maps a command-line prefix to its canned responses.
	// Responses for a prefix are consumed in order; the last one repeats.
	responses map[string][]FakeResponse

	// Calls records every command line executed, in order.
	Calls []string

	// Path lists executables LookPath reports as present.
	Path []string
}

// NewFakeRunner returns an empty FakeRunner.
func NewFakeRunner() *FakeRunner {
	return &FakeRunner{responses: make(map[string][]FakeResponse)}
}

// Respond registers canned responses for command lines starting with prefix.
func (f *FakeRunner) Respond(prefix string, resp ...FakeResponse) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[prefix] = append(f.responses[prefix], resp...)
}

// Fail registers a single failing response for the given prefix.
func (f *FakeRunner) Fail(prefix, stderr string) {
	f.Respond(prefix, FakeResponse{
		Stderr:   stderr,
		ExitCode: 1,
		Err:      fmt.Errorf("%s exited 1: %s", prefix, stderr),
	})
}

// CallCount returns how many executed command lines start with prefix.
func (f *FakeRunner) CallCount(prefix string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.Calls {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

// Run implements Runner.
func (f *FakeRunner) Run(ctx context.Context, name string, args ...string) (Result, error) {
	return f.dispatch(ctx, strings.Join(append([]string{name}, args...), " "))
}

// RunShell implements Runner.
func (f *FakeRunner) RunShell(ctx context.Context, cmdline string) (Result, error) {
	return f.dispatch(ctx, cmdline)
}

// LookPath implements Runner.
func (f *FakeRunner) LookPath(name string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.Path {
		if p == name {
			return true
		}
	}
	return false
}

func (f *FakeRunner) dispatch(ctx context.Context, cmdline string) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	f.mu.Lock()
	f.Calls = append(f.Calls, cmdline)

	best := ""
	for prefix := range f.responses {
		if strings.HasPrefix(cmdline, prefix) && len(prefix) > len(best) {
			best = prefix
		}
	}

	var resp *FakeResponse
	if best != "" {
		queue := f.responses[best]
		r := queue[0]
		resp = &r
		if len(queue) > 1 {
			f.responses[best] = queue[1:]
		}
	}
	f.mu.Unlock()

	if resp == nil {
		return Result{}, nil
	}
	return Result{Stdout: resp.Stdout, Stderr: resp.Stderr, ExitCode: resp.ExitCode}, resp.Err
}
