package blockdev

import (
	"context"
	"fmt"

	"github.com/aistack/stackup/pkg/host"
	"github.com/aistack/stackup/pkg/pipeline"
)

// RestartEngine restarts the container engine after the storage phase so it
// picks up the data directory. It runs whether or not a volume was
// configured, exactly once per pipeline run.
type RestartEngine struct {
	Runner host.Runner
}

// Name implements pipeline.Step.
func (s *RestartEngine) Name() string { return "restart-engine" }

// Policy implements pipeline.Step.
func (s *RestartEngine) Policy() pipeline.FailurePolicy { return pipeline.PolicyBestEffort }

// IsSatisfied implements pipeline.Step. A restart is never "already done".
func (s *RestartEngine) IsSatisfied(ctx context.Context) (bool, error) {
	return false, nil
}

// Apply implements pipeline.Step.
func (s *RestartEngine) Apply(ctx context.Context) error {
	if _, err := s.Runner.Run(ctx, "systemctl", "restart", "docker"); err != nil {
		return fmt.Errorf("restart docker: %w", err)
	}
	return nil
}
