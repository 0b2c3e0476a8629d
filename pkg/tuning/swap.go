// Package tuning configures swap and kernel memory-pressure parameters.
package tuning

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/aistack/stackup/pkg/config"
	"github.com/aistack/stackup/pkg/host"
	"github.com/aistack/stackup/pkg/pipeline"
)

// Swapfile creates and activates a fixed-size swap backing file.
//
// "Already configured" is decided from the kernel's active-swap list, not
// file existence: a stale file that was never attached (e.g. after an
// interrupted earlier run) is recreated rather than trusted.
type Swapfile struct {
	Runner host.Runner
	Cfg    config.SwapSettings
}

// Name implements pipeline.Step.
func (s *Swapfile) Name() string { return "swapfile" }

// Policy implements pipeline.Step.
func (s *Swapfile) Policy() pipeline.FailurePolicy { return pipeline.PolicyBestEffort }

// IsSatisfied implements pipeline.Step.
func (s *Swapfile) IsSatisfied(ctx context.Context) (bool, error) {
	res, err := s.Runner.Run(ctx, "swapon", "--show=NAME", "--noheadings")
	if err != nil {
		return false, fmt.Errorf("swapon --show: %w", err)
	}
	for _, line := range strings.Split(res.Stdout, "\n") {
		if strings.TrimSpace(line) == s.Cfg.Path {
			return true, nil
		}
	}
	return false, nil
}

// Apply implements pipeline.Step.
func (s *Swapfile) Apply(ctx context.Context) error {
	size := fmt.Sprintf("%dM", s.Cfg.SizeMiB)

	// Preallocation is unsupported on some filesystems; fall back to
	// zero-fill.
	if _, err := s.Runner.Run(ctx, "fallocate", "-l", size, s.Cfg.Path); err != nil {
		zerolog.Ctx(ctx).Debug().Err(err).Msg("fallocate failed, falling back to dd")
		if _, err := s.Runner.Run(ctx, "dd", "if=/dev/zero", "of="+s.Cfg.Path,
			"bs=1M", fmt.Sprintf("count=%d", s.Cfg.SizeMiB)); err != nil {
			return fmt.Errorf("allocate swap file: %w", err)
		}
	}

	if _, err := s.Runner.Run(ctx, "chmod", "600", s.Cfg.Path); err != nil {
		return fmt.Errorf("chmod swap file: %w", err)
	}
	if _, err := s.Runner.Run(ctx, "mkswap", s.Cfg.Path); err != nil {
		return fmt.Errorf("mkswap: %w", err)
	}
	if _, err := s.Runner.Run(ctx, "swapon", s.Cfg.Path); err != nil {
		return fmt.Errorf("swapon: %w", err)
	}

	return s.persist(ctx)
}

func (s *Swapfile) persist(ctx context.Context) error {
	res, err := s.Runner.Run(ctx, "grep", "-q", s.Cfg.Path, "/etc/fstab")
	if err == nil && res.ExitCode == 0 {
		return nil
	}

	entry := fmt.Sprintf("%s none swap sw 0 0", s.Cfg.Path)
	if _, err := s.Runner.RunShell(ctx, fmt.Sprintf("echo '%s' >> /etc/fstab", entry)); err != nil {
		return fmt.Errorf("persist swap fstab entry: %w", err)
	}
	return nil
}
