package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultValidates(t *testing.T) {
	if _, err := Load(""); err != nil {
		t.Fatalf("built-in defaults must validate: %v", err)
	}
}

func TestLoadOverlaysFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	content := `
project_dir: /srv/stack
require_secret_override: true
secret_fallbacks:
  postgres_password: local-dev-pw
swap:
  path: /swapfile
  size_mib: 2048
  swappiness: 5
  cache_pressure: 50
launch:
  poll_interval: 1s
  poll_attempts: 30
  settle_delay: 5s
  data_services: [postgres, redis, mongo]
  messaging_service: chatwoot
  messaging_database: chatwoot
  messaging_role: chatwoot
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if s.ProjectDir != "/srv/stack" {
		t.Errorf("ProjectDir = %s", s.ProjectDir)
	}
	if !s.RequireSecretOverride {
		t.Error("RequireSecretOverride not set")
	}
	if s.SecretFallbacks["postgres_password"] != "local-dev-pw" {
		t.Errorf("SecretFallbacks = %v", s.SecretFallbacks)
	}
	if s.Swap.SizeMiB != 2048 || s.Swap.Swappiness != 5 {
		t.Errorf("Swap = %+v", s.Swap)
	}
	if s.Launch.PollInterval != time.Second || s.Launch.PollAttempts != 30 {
		t.Errorf("Launch = %+v", s.Launch)
	}
	// Untouched sections keep their defaults.
	if s.StateDir != "/var/lib/stackup" {
		t.Errorf("StateDir = %s", s.StateDir)
	}
	if s.Compose.PinnedVersion != "v2.27.0" {
		t.Errorf("Compose = %+v", s.Compose)
	}
}

func TestLoadRejectsInvalidSettings(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{"relative secret prefix", "secret_prefix: ai-ecosystem\n"},
		{"tiny swap", "swap:\n  path: /swapfile\n  size_mib: 16\n  cache_pressure: 50\n"},
		{"zero poll attempts", "launch:\n  poll_interval: 1s\n  poll_attempts: 0\n  data_services: [postgres]\n  messaging_service: chatwoot\n  messaging_database: chatwoot\n  messaging_role: chatwoot\n"},
		{"bad device path", "storage:\n  device_candidates: [nvme1n1]\n  data_root: /var/lib/docker\n  filesystem: ext4\n"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "settings.yaml")
			if err := os.WriteFile(path, []byte(tc.content), 0o644); err != nil {
				t.Fatal(err)
			}
			if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "invalid settings") {
				t.Errorf("expected validation error, got %v", err)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/does/not/exist.yaml"); err == nil {
		t.Fatal("missing file must be an error")
	}
}

func TestLoadMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	if err := os.WriteFile(path, []byte("project_dir: [unclosed"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("malformed YAML must be an error")
	}
}
