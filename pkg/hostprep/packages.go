package hostprep

import (
	"context"
	"fmt"

	"github.com/aistack/stackup/pkg/host"
	"github.com/aistack/stackup/pkg/pipeline"
)

// baselinePackages are the tools every later step assumes.
var baselinePackages = []string{"git", "curl", "tar", "unzip", "jq"}

// BaselinePackages updates the package index and installs the baseline
// tools. This is the one fatal step in host preparation: nothing downstream
// works without a functioning package manager.
type BaselinePackages struct {
	Runner host.Runner
}

// Name implements pipeline.Step.
func (s *BaselinePackages) Name() string { return "baseline-packages" }

// Policy implements pipeline.Step.
func (s *BaselinePackages) Policy() pipeline.FailurePolicy { return pipeline.PolicyFatal }

// IsSatisfied implements pipeline.Step.
func (s *BaselinePackages) IsSatisfied(ctx context.Context) (bool, error) {
	for _, pkg := range baselinePackages {
		if !s.installed(ctx, pkg) {
			return false, nil
		}
	}
	return true, nil
}

// Apply implements pipeline.Step.
func (s *BaselinePackages) Apply(ctx context.Context) error {
	if _, err := s.Runner.Run(ctx, "apt-get", "update"); err != nil {
		return fmt.Errorf("apt-get update: %w", err)
	}

	args := append([]string{"install", "-y"}, baselinePackages...)
	if _, err := s.Runner.Run(ctx, "apt-get", args...); err != nil {
		return fmt.Errorf("apt-get install: %w", err)
	}
	return nil
}

func (s *BaselinePackages) installed(ctx context.Context, pkg string) bool {
	_, err := s.Runner.Run(ctx, "dpkg-query", "-W", "-f=${Version}", pkg)
	return err == nil
}
