// Package config loads and validates the orchestrator settings.
// Settings are plain data: device paths, sizes, service names, parameter
// store prefixes, fallback defaults. All decision logic lives in the steps.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Settings is the full orchestrator configuration.
type Settings struct {
	// StateDir holds the run lock and the run-history database.
	StateDir string `yaml:"state_dir" validate:"required"`

	// ProjectDir is the compose project directory containing the stack
	// definition and the rendered configuration artifacts.
	ProjectDir string `yaml:"project_dir" validate:"required"`

	// ProvisionUser is the login user added to the container engine group.
	ProvisionUser string `yaml:"provision_user" validate:"required"`

	// SecretPrefix is the parameter store namespace, e.g. "/ai-ecosystem".
	SecretPrefix string `yaml:"secret_prefix" validate:"required,startswith=/"`

	// RequireSecretOverride reports fallback use of password-class secrets
	// as a run warning instead of accepting it silently.
	RequireSecretOverride bool `yaml:"require_secret_override"`

	// SecretFallbacks overrides the built-in fallback value per secret name.
	SecretFallbacks map[string]string `yaml:"secret_fallbacks"`

	// Storage configures the optional secondary data volume.
	Storage StorageSettings `yaml:"storage"`

	// Swap configures the swap backing file and kernel tuning.
	Swap SwapSettings `yaml:"swap"`

	// Compose configures the orchestration CLI.
	Compose ComposeSettings `yaml:"compose"`

	// Launch configures readiness polling and service ordering.
	Launch LaunchSettings `yaml:"launch"`
}

// StorageSettings configures the secondary block device handling.
type StorageSettings struct {
	// DeviceCandidates are probed in order for an unused secondary disk.
	DeviceCandidates []string `yaml:"device_candidates" validate:"required,min=1,dive,startswith=/dev/"`

	// DataRoot is the container engine data directory the volume backs.
	DataRoot string `yaml:"data_root" validate:"required"`

	// Filesystem is the filesystem type used when formatting.
	Filesystem string `yaml:"filesystem" validate:"required"`
}

// SwapSettings configures the swap file and memory-pressure tuning.
type SwapSettings struct {
	// Path is the swap backing file location.
	Path string `yaml:"path" validate:"required"`

	// SizeMiB is the swap file size in MiB.
	SizeMiB int `yaml:"size_mib" validate:"required,min=128"`

	// Swappiness is the vm.swappiness value.
	Swappiness int `yaml:"swappiness" validate:"min=0,max=100"`

	// CachePressure is the vm.vfs_cache_pressure value.
	CachePressure int `yaml:"cache_pressure" validate:"min=1"`
}

// ComposeSettings configures the compose CLI installation and invocation.
type ComposeSettings struct {
	// PinnedVersion is the standalone binary version installed when the
	// package-manager plugin fails verification.
	PinnedVersion string `yaml:"pinned_version" validate:"required"`

	// File is the compose file name within ProjectDir.
	File string `yaml:"file" validate:"required"`
}

// LaunchSettings configures the service launch state machine.
type LaunchSettings struct {
	// PollInterval is the readiness probe interval.
	PollInterval time.Duration `yaml:"poll_interval" validate:"required"`

	// PollAttempts bounds each readiness poll.
	PollAttempts int `yaml:"poll_attempts" validate:"required,min=1"`

	// SettleDelay is the wait between the messaging platform start and its
	// migration command.
	SettleDelay time.Duration `yaml:"settle_delay"`

	// DataServices are the backing stores started first.
	DataServices []string `yaml:"data_services" validate:"required,min=1"`

	// MessagingService is the service that must migrate before the rest.
	MessagingService string `yaml:"messaging_service" validate:"required"`

	// MessagingDatabase is the messaging platform's dedicated database.
	MessagingDatabase string `yaml:"messaging_database" validate:"required"`

	// MessagingRole is the messaging platform's database role.
	MessagingRole string `yaml:"messaging_role" validate:"required"`
}

// Default returns the built-in settings.
func Default() Settings {
	return Settings{
		StateDir:      "/var/lib/stackup",
		ProjectDir:    "/opt/ai-ecosystem",
		ProvisionUser: "ubuntu",
		SecretPrefix:  "/ai-ecosystem",
		Storage: StorageSettings{
			DeviceCandidates: []string{"/dev/nvme1n1", "/dev/xvdb", "/dev/sdb"},
			DataRoot:         "/var/lib/docker",
			Filesystem:       "ext4",
		},
		Swap: SwapSettings{
			Path:          "/swapfile",
			SizeMiB:       4096,
			Swappiness:    10,
			CachePressure: 50,
		},
		Compose: ComposeSettings{
			PinnedVersion: "v2.27.0",
			File:          "docker-compose.yml",
		},
		Launch: LaunchSettings{
			PollInterval:      2 * time.Second,
			PollAttempts:      90,
			SettleDelay:       15 * time.Second,
			DataServices:      []string{"postgres", "redis", "mongo"},
			MessagingService:  "chatwoot",
			MessagingDatabase: "chatwoot",
			MessagingRole:     "chatwoot",
		},
	}
}

// Load returns the defaults overlaid with the YAML file at path, validated.
// An empty path returns the validated defaults.
func Load(path string) (Settings, error) {
	s := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Settings{}, fmt.Errorf("failed to read settings file: %w", err)
		}
		if err := yaml.Unmarshal(data, &s); err != nil {
			return Settings{}, fmt.Errorf("failed to parse settings file: %w", err)
		}
	}

	if err := validator.New().Struct(s); err != nil {
		return Settings{}, fmt.Errorf("invalid settings: %w", err)
	}
	return s, nil
}
