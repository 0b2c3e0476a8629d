// Package blockdev configures an optional secondary block device as the
// container engine's data volume.
package blockdev

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/aistack/stackup/pkg/config"
	"github.com/aistack/stackup/pkg/host"
	"github.com/aistack/stackup/pkg/pipeline"
)

// DataVolume formats and mounts a secondary block device at the container
// engine's data root and persists the mount in fstab.
//
// Formatting is destructive, so it only happens when the idempotence checks
// prove the device carries no filesystem and nothing is mounted at the
// target path. A host without a secondary device skips cleanly.
type DataVolume struct {
	Runner host.Runner
	Cfg    config.StorageSettings
}

// Name implements pipeline.Step.
func (s *DataVolume) Name() string { return "data-volume" }

// Policy implements pipeline.Step.
func (s *DataVolume) Policy() pipeline.FailurePolicy { return pipeline.PolicyBestEffort }

// IsSatisfied implements pipeline.Step. Satisfied when something is already
// mounted at the data root, or when no secondary device exists at all.
func (s *DataVolume) IsSatisfied(ctx context.Context) (bool, error) {
	if s.mounted(ctx, s.Cfg.DataRoot) {
		return true, nil
	}
	dev := s.findDevice(ctx)
	return dev == "", nil
}

// Apply implements pipeline.Step.
func (s *DataVolume) Apply(ctx context.Context) error {
	logger := zerolog.Ctx(ctx)

	// Never reformat under an existing mount.
	if s.mounted(ctx, s.Cfg.DataRoot) {
		return nil
	}

	dev := s.findDevice(ctx)
	if dev == "" {
		logger.Info().Msg("no secondary block device present")
		return nil
	}

	if !s.hasFilesystem(ctx, dev) {
		if _, err := s.Runner.Run(ctx, "mkfs."+s.Cfg.Filesystem, dev); err != nil {
			return fmt.Errorf("mkfs %s: %w", dev, err)
		}
	}

	if _, err := s.Runner.Run(ctx, "mkdir", "-p", s.Cfg.DataRoot); err != nil {
		return fmt.Errorf("mkdir %s: %w", s.Cfg.DataRoot, err)
	}
	if _, err := s.Runner.Run(ctx, "mount", dev, s.Cfg.DataRoot); err != nil {
		return fmt.Errorf("mount %s: %w", dev, err)
	}

	if err := s.persistMount(ctx, dev); err != nil {
		return err
	}

	logger.Info().Str("device", dev).Str("mount", s.Cfg.DataRoot).Msg("data volume configured")
	return nil
}

// findDevice returns the first candidate that exists as a bare disk with no
// mounted partitions, or "".
func (s *DataVolume) findDevice(ctx context.Context) string {
	res, err := s.Runner.Run(ctx, "lsblk", "-dn", "-o", "NAME,TYPE,MOUNTPOINT")
	if err != nil {
		return ""
	}

	present := make(map[string]bool)
	for _, line := range strings.Split(res.Stdout, "\n") {
		fields := strings.Fields(line)
		// NAME TYPE [MOUNTPOINT]; a mountpoint means the disk is in use.
		if len(fields) == 2 && fields[1] == "disk" {
			present["/dev/"+fields[0]] = true
		}
	}

	for _, cand := range s.Cfg.DeviceCandidates {
		if present[cand] {
			return cand
		}
	}
	return ""
}

func (s *DataVolume) mounted(ctx context.Context, path string) bool {
	_, err := s.Runner.Run(ctx, "findmnt", "-n", path)
	return err == nil
}

func (s *DataVolume) hasFilesystem(ctx context.Context, dev string) bool {
	res, err := s.Runner.Run(ctx, "blkid", "-o", "value", "-s", "TYPE", dev)
	return err == nil && strings.TrimSpace(res.Stdout) != ""
}

// persistMount appends the fstab entry only when no entry for the mount
// point exists yet.
func (s *DataVolume) persistMount(ctx context.Context, dev string) error {
	res, err := s.Runner.Run(ctx, "grep", "-q", s.Cfg.DataRoot, "/etc/fstab")
	if err == nil && res.ExitCode == 0 {
		return nil
	}

	entry := fmt.Sprintf("%s %s %s defaults,nofail 0 2", dev, s.Cfg.DataRoot, s.Cfg.Filesystem)
	if _, err := s.Runner.RunShell(ctx, fmt.Sprintf("echo '%s' >> /etc/fstab", entry)); err != nil {
		return fmt.Errorf("persist fstab entry: %w", err)
	}
	return nil
}
