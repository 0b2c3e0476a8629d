package hostprep

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aistack/stackup/pkg/host"
	"github.com/aistack/stackup/pkg/pipeline"
)

const composePluginDir = "/usr/local/lib/docker/cli-plugins"

// ComposePlugin installs the compose CLI. The package-manager plugin is
// preferred; when verification still fails a pinned standalone binary is
// installed instead. Verification (`docker compose version`) is a hard
// check: the step fails loudly if neither path produced a working CLI.
type ComposePlugin struct {
	Runner host.Runner

	// PinnedVersion is the standalone fallback release, e.g. "v2.27.0".
	PinnedVersion string
}

// Name implements pipeline.Step.
func (s *ComposePlugin) Name() string { return "compose-plugin" }

// Policy implements pipeline.Step.
func (s *ComposePlugin) Policy() pipeline.FailurePolicy { return pipeline.PolicyBestEffort }

// IsSatisfied implements pipeline.Step.
func (s *ComposePlugin) IsSatisfied(ctx context.Context) (bool, error) {
	return s.verify(ctx), nil
}

// Apply implements pipeline.Step.
func (s *ComposePlugin) Apply(ctx context.Context) error {
	if _, err := s.Runner.Run(ctx, "apt-get", "install", "-y", "docker-compose-plugin"); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("plugin package install failed, trying standalone binary")
	}

	if s.verify(ctx) {
		return nil
	}

	if err := s.installStandalone(ctx); err != nil {
		return err
	}

	if !s.verify(ctx) {
		return fmt.Errorf("docker compose version failed after standalone install %s", s.PinnedVersion)
	}
	return nil
}

func (s *ComposePlugin) verify(ctx context.Context) bool {
	_, err := s.Runner.Run(ctx, "docker", "compose", "version")
	return err == nil
}

func (s *ComposePlugin) installStandalone(ctx context.Context) error {
	if _, err := s.Runner.Run(ctx, "mkdir", "-p", composePluginDir); err != nil {
		return fmt.Errorf("mkdir plugin dir: %w", err)
	}

	url := fmt.Sprintf(
		"https://github.com/docker/compose/releases/download/%s/docker-compose-linux-x86_64",
		s.PinnedVersion)
	dest := composePluginDir + "/docker-compose"

	if _, err := s.Runner.Run(ctx, "curl", "-fsSL", "-o", dest, url); err != nil {
		return fmt.Errorf("download compose %s: %w", s.PinnedVersion, err)
	}
	if _, err := s.Runner.Run(ctx, "chmod", "+x", dest); err != nil {
		return fmt.Errorf("chmod compose binary: %w", err)
	}
	return nil
}
