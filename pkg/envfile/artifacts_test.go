package envfile

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aistack/stackup/pkg/secrets"
)

// resolveOffline resolves the default refs with every fetch failing, so
// every value is a hardcoded fallback default.
func resolveOffline(t *testing.T) secrets.Set {
	t.Helper()
	refs := secrets.DefaultRefs(nil)
	return secrets.NewResolver(secrets.Offline(), "/ai-ecosystem").ResolveAll(context.Background(), refs)
}

func TestBuildAllFallbacksGolden(t *testing.T) {
	artifacts := Build(Inputs{
		ProjectDir:    "/opt/ai-ecosystem",
		PublicAddress: "127.0.0.1",
		Secrets:       resolveOffline(t),
	})

	if len(artifacts) != 4 {
		t.Fatalf("built %d artifacts, want 4", len(artifacts))
	}

	want := map[string]string{
		"/opt/ai-ecosystem/.env": "PUBLIC_HOST=127.0.0.1\n" +
			"POSTGRES_HOST=postgres\n" +
			"POSTGRES_PORT=5432\n" +
			"POSTGRES_DB=chatwoot\n" +
			"POSTGRES_USER=chatwoot\n" +
			"POSTGRES_PASSWORD=chatwoot\n" +
			"REDIS_HOST=redis\n" +
			"REDIS_PORT=6379\n" +
			"MONGO_HOST=mongo\n" +
			"MONGO_PORT=27017\n" +
			"MONGO_DB=LibreChat\n" +
			"MONGO_ROOT_USERNAME=admin\n" +
			"MONGO_ROOT_PASSWORD=librechat\n" +
			"JWT_SECRET=librechat-jwt-secret-change-me\n" +
			"JWT_REFRESH_SECRET=librechat-jwt-refresh-secret-change-me\n",
		"/opt/ai-ecosystem/n8n.env": "N8N_HOST=127.0.0.1\n" +
			"N8N_PORT=5678\n" +
			"N8N_PROTOCOL=http\n" +
			"WEBHOOK_URL=http://127.0.0.1:5678/\n" +
			"GENERIC_TIMEZONE=UTC\n",
		"/opt/ai-ecosystem/chatwoot.env": "RAILS_ENV=production\n" +
			"INSTALLATION_ENV=docker\n" +
			"FRONTEND_URL=http://127.0.0.1:3000\n" +
			"SECRET_KEY_BASE=replace-with-a-long-random-secret-key-base\n" +
			"POSTGRES_HOST=postgres\n" +
			"POSTGRES_PORT=5432\n" +
			"POSTGRES_DATABASE=chatwoot\n" +
			"POSTGRES_USERNAME=chatwoot\n" +
			"POSTGRES_PASSWORD=chatwoot\n" +
			"REDIS_URL=redis://redis:6379\n",
		"/opt/ai-ecosystem/bridge.env": "POSTGRES_HOST=postgres\n" +
			"POSTGRES_PORT=5432\n" +
			"POSTGRES_DB=chatwoot\n" +
			"POSTGRES_USER=chatwoot\n" +
			"POSTGRES_PASSWORD=chatwoot\n" +
			"MONGO_HOST=mongo\n" +
			"MONGO_PORT=27017\n" +
			"MONGO_DB=LibreChat\n" +
			"MONGO_ROOT_USERNAME=admin\n" +
			"MONGO_ROOT_PASSWORD=librechat\n" +
			"BRIDGE_API_KEY=deepnote-api-key-change-me\n",
	}

	for _, a := range artifacts {
		expected, ok := want[a.Path]
		if !ok {
			t.Errorf("unexpected artifact %s", a.Path)
			continue
		}
		if got := a.Render(); got != expected {
			t.Errorf("%s:\n got %q\nwant %q", a.Path, got, expected)
		}
	}
}

func TestBuildSentinelKeyPresentOnlyWithRemoteValue(t *testing.T) {
	set := resolveOffline(t)

	// Fallback path: the sentinel key must be absent.
	artifacts := Build(Inputs{ProjectDir: "/p", PublicAddress: "127.0.0.1", Secrets: set})
	n8n := artifacts[1]
	if strings.Contains(n8n.Render(), "N8N_ENCRYPTION_KEY") {
		t.Error("sentinel key rendered despite empty value")
	}

	// Remote path: a non-empty value must appear.
	set["n8n_encryption_key"] = secrets.Resolved{
		Name: "n8n_encryption_key", Value: "abc123", Origin: secrets.OriginRemote,
	}
	artifacts = Build(Inputs{ProjectDir: "/p", PublicAddress: "127.0.0.1", Secrets: set})
	if !strings.Contains(artifacts[1].Render(), "N8N_ENCRYPTION_KEY=abc123\n") {
		t.Error("sentinel key missing despite remote value")
	}
}

func TestBuildNonSentinelValuesNeverEmpty(t *testing.T) {
	artifacts := Build(Inputs{
		ProjectDir:    "/p",
		PublicAddress: "127.0.0.1",
		Secrets:       resolveOffline(t),
	})
	for _, a := range artifacts {
		if err := a.Validate(); err != nil {
			t.Errorf("artifact %s: %v", a.Path, err)
		}
	}
}

func TestBuildCredentialArtifactsOwnerOnly(t *testing.T) {
	artifacts := Build(Inputs{
		ProjectDir:    "/p",
		PublicAddress: "127.0.0.1",
		Secrets:       resolveOffline(t),
	})

	modes := map[string]os.FileMode{}
	for _, a := range artifacts {
		modes[filepath.Base(a.Path)] = a.Mode.Perm()
	}
	if modes["chatwoot.env"] != 0o600 || modes["bridge.env"] != 0o600 {
		t.Errorf("credential artifacts must be 0600: %v", modes)
	}
	if modes[".env"] != 0o644 || modes["n8n.env"] != 0o644 {
		t.Errorf("shared artifacts should be 0644: %v", modes)
	}
}

func TestWriteAll(t *testing.T) {
	dir := t.TempDir()
	artifacts := Build(Inputs{
		ProjectDir:    dir,
		PublicAddress: "203.0.113.7",
		Secrets:       resolveOffline(t),
	})

	if err := WriteAll(artifacts); err != nil {
		t.Fatalf("WriteAll: %v", err)
	}
	for _, a := range artifacts {
		b, err := os.ReadFile(a.Path)
		if err != nil {
			t.Fatalf("read %s: %v", a.Path, err)
		}
		if string(b) != a.Render() {
			t.Errorf("%s content differs from render", a.Path)
		}
	}
}
