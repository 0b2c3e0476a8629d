package hostprep

import (
	"context"
	"fmt"

	"github.com/aistack/stackup/pkg/host"
	"github.com/aistack/stackup/pkg/pipeline"
)

// ContainerEngine installs and enables the container engine when absent and
// adds the provisioning user to its privileged group.
type ContainerEngine struct {
	Runner host.Runner

	// User is the login user granted engine access.
	User string
}

// Name implements pipeline.Step.
func (s *ContainerEngine) Name() string { return "container-engine" }

// Policy implements pipeline.Step.
func (s *ContainerEngine) Policy() pipeline.FailurePolicy { return pipeline.PolicyBestEffort }

// IsSatisfied implements pipeline.Step. Presence on PATH is the install
// check; group membership must also hold, and usermod -aG is itself
// idempotent on apply.
func (s *ContainerEngine) IsSatisfied(ctx context.Context) (bool, error) {
	if !s.Runner.LookPath("docker") {
		return false, nil
	}
	res, err := s.Runner.Run(ctx, "id", "-nG", s.User)
	if err != nil {
		return false, err
	}
	return containsWord(res.Stdout, "docker"), nil
}

// Apply implements pipeline.Step.
func (s *ContainerEngine) Apply(ctx context.Context) error {
	if !s.Runner.LookPath("docker") {
		if _, err := s.Runner.RunShell(ctx, "curl -fsSL https://get.docker.com | sh"); err != nil {
			return fmt.Errorf("engine install: %w", err)
		}
	}

	if _, err := s.Runner.Run(ctx, "systemctl", "enable", "--now", "docker"); err != nil {
		return fmt.Errorf("engine enable: %w", err)
	}

	if _, err := s.Runner.Run(ctx, "usermod", "-aG", "docker", s.User); err != nil {
		return fmt.Errorf("usermod: %w", err)
	}
	return nil
}

func containsWord(fields, want string) bool {
	start := 0
	for i := 0; i <= len(fields); i++ {
		if i == len(fields) || fields[i] == ' ' || fields[i] == '\n' || fields[i] == '\t' {
			if fields[start:i] == want {
				return true
			}
			start = i + 1
		}
	}
	return false
}
