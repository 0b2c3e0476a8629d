package tuning

import (
	"context"
	"fmt"
	"os"

	"github.com/aistack/stackup/pkg/config"
	"github.com/aistack/stackup/pkg/host"
	"github.com/aistack/stackup/pkg/pipeline"
)

// sysctlConfPath is a dedicated drop-in owned entirely by the orchestrator.
// Writing the whole file keeps re-runs byte-identical instead of appending
// duplicate lines to the shared sysctl configuration.
const sysctlConfPath = "/etc/sysctl.d/99-stackup.conf"

// Sysctl persists and applies the kernel memory-pressure parameters.
type Sysctl struct {
	Runner host.Runner
	Cfg    config.SwapSettings

	// Path overrides the drop-in location. Empty means sysctlConfPath.
	Path string
}

func (s *Sysctl) confPath() string {
	if s.Path != "" {
		return s.Path
	}
	return sysctlConfPath
}

// Name implements pipeline.Step.
func (s *Sysctl) Name() string { return "sysctl-tuning" }

// Policy implements pipeline.Step.
func (s *Sysctl) Policy() pipeline.FailurePolicy { return pipeline.PolicyBestEffort }

// IsSatisfied implements pipeline.Step.
func (s *Sysctl) IsSatisfied(ctx context.Context) (bool, error) {
	current, err := os.ReadFile(s.confPath())
	if err != nil {
		return false, nil
	}
	return string(current) == s.render(), nil
}

// Apply implements pipeline.Step.
func (s *Sysctl) Apply(ctx context.Context) error {
	if err := os.WriteFile(s.confPath(), []byte(s.render()), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", s.confPath(), err)
	}

	if _, err := s.Runner.Run(ctx, "sysctl", "--system"); err != nil {
		return fmt.Errorf("sysctl --system: %w", err)
	}
	return nil
}

func (s *Sysctl) render() string {
	return fmt.Sprintf("vm.swappiness=%d\nvm.vfs_cache_pressure=%d\n",
		s.Cfg.Swappiness, s.Cfg.CachePressure)
}
