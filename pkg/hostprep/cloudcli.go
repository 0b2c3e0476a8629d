package hostprep

import (
	"context"
	"fmt"
	"os"

	"github.com/aistack/stackup/pkg/host"
	"github.com/aistack/stackup/pkg/pipeline"
)

const awscliURL = "https://awscli.amazonaws.com/awscli-exe-linux-x86_64.zip"

// CloudCLI installs the cloud provider CLI when absent via
// download-verify-install-cleanup of a temporary archive.
type CloudCLI struct {
	Runner host.Runner
}

// Name implements pipeline.Step.
func (s *CloudCLI) Name() string { return "cloud-cli" }

// Policy implements pipeline.Step.
func (s *CloudCLI) Policy() pipeline.FailurePolicy { return pipeline.PolicyBestEffort }

// IsSatisfied implements pipeline.Step.
func (s *CloudCLI) IsSatisfied(ctx context.Context) (bool, error) {
	return s.Runner.LookPath("aws"), nil
}

// Apply implements pipeline.Step.
func (s *CloudCLI) Apply(ctx context.Context) error {
	tmpDir, err := os.MkdirTemp("", "awscli-*")
	if err != nil {
		return fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	archive := tmpDir + "/awscliv2.zip"
	if _, err := s.Runner.Run(ctx, "curl", "-fsSL", "-o", archive, awscliURL); err != nil {
		return fmt.Errorf("download awscli: %w", err)
	}
	if _, err := s.Runner.Run(ctx, "unzip", "-q", archive, "-d", tmpDir); err != nil {
		return fmt.Errorf("unzip awscli: %w", err)
	}
	if _, err := s.Runner.Run(ctx, tmpDir+"/aws/install", "--update"); err != nil {
		return fmt.Errorf("install awscli: %w", err)
	}

	if !s.Runner.LookPath("aws") {
		return fmt.Errorf("aws not on PATH after install")
	}
	return nil
}
