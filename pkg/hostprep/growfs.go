// Package hostprep prepares the operating system: root filesystem growth,
// baseline packages, the container engine, the compose CLI, and the cloud
// CLI. Every step checks current host state before acting so a re-run on a
// partially provisioned instance is safe.
package hostprep

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/aistack/stackup/pkg/host"
	"github.com/aistack/stackup/pkg/pipeline"
)

// GrowRootFS expands the root filesystem to consume all available space on
// the boot volume. Best-effort: hosts without a resizable partition are not
// an error.
type GrowRootFS struct {
	Runner host.Runner
}

// Name implements pipeline.Step.
func (s *GrowRootFS) Name() string { return "grow-root-fs" }

// Policy implements pipeline.Step.
func (s *GrowRootFS) Policy() pipeline.FailurePolicy { return pipeline.PolicyBestEffort }

// IsSatisfied implements pipeline.Step. Growth is cheap and growpart itself
// reports NOCHANGE when the partition already fills the disk, so the step
// always applies and lets the tool decide.
func (s *GrowRootFS) IsSatisfied(ctx context.Context) (bool, error) {
	return false, nil
}

// Apply implements pipeline.Step.
func (s *GrowRootFS) Apply(ctx context.Context) error {
	source, disk, part, err := s.rootPartition(ctx)
	if err != nil {
		zerolog.Ctx(ctx).Debug().Err(err).Msg("no resizable root partition found")
		return nil
	}

	res, err := s.Runner.Run(ctx, "growpart", disk, part)
	if err != nil {
		// NOCHANGE exits non-zero but means "already grown".
		if strings.Contains(res.Stdout, "NOCHANGE") || strings.Contains(res.Stderr, "NOCHANGE") {
			return nil
		}
		return fmt.Errorf("growpart %s %s: %w", disk, part, err)
	}

	if _, err := s.Runner.Run(ctx, "resize2fs", source); err != nil {
		return fmt.Errorf("resize2fs: %w", err)
	}
	return nil
}

// rootPartition finds the partition device backing / and splits it into the
// parent disk and partition number, e.g. /dev/nvme0n1p1 -> (/dev/nvme0n1, 1)
// and /dev/xvda1 -> (/dev/xvda, 1).
func (s *GrowRootFS) rootPartition(ctx context.Context) (source, disk, part string, err error) {
	res, err := s.Runner.Run(ctx, "findmnt", "-n", "-o", "SOURCE", "/")
	if err != nil {
		return "", "", "", fmt.Errorf("findmnt /: %w", err)
	}

	source = strings.TrimSpace(res.Stdout)
	i := len(source)
	for i > 0 && source[i-1] >= '0' && source[i-1] <= '9' {
		i--
	}
	if i == len(source) || i == 0 {
		return "", "", "", fmt.Errorf("unpartitioned root source %q", source)
	}

	disk = source[:i]
	part = source[i:]
	if strings.Contains(disk, "nvme") {
		disk = strings.TrimSuffix(disk, "p")
	}
	return source, disk, part, nil
}
