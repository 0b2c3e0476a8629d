package envfile

import (
	"path/filepath"

	"github.com/aistack/stackup/pkg/secrets"
)

// Inputs collects everything the artifact set is derived from.
type Inputs struct {
	// ProjectDir is the compose project directory artifacts land in.
	ProjectDir string

	// PublicAddress is the host's public address (or the loopback
	// placeholder when metadata lookup failed).
	PublicAddress string

	// Secrets is the resolved secret set.
	Secrets secrets.Set
}

// Build returns the stack's four configuration artifacts in a fixed order:
// the shared interpolation file, then one env file per dependent service.
//
// The key sets are each downstream service's own contract and must stay
// stable across releases; the bridge and messaging platform files embed
// plaintext credentials and are written owner-only.
func Build(in Inputs) []*Artifact {
	sec := in.Secrets
	addr := in.PublicAddress

	shared := &Artifact{
		Path: filepath.Join(in.ProjectDir, ".env"),
		Mode: 0o644,
		Entries: []Entry{
			{Key: "PUBLIC_HOST", Value: addr},
			{Key: "POSTGRES_HOST", Value: "postgres"},
			{Key: "POSTGRES_PORT", Value: "5432"},
			{Key: "POSTGRES_DB", Value: "chatwoot"},
			{Key: "POSTGRES_USER", Value: "chatwoot"},
			{Key: "POSTGRES_PASSWORD", Value: sec.Value("postgres_password")},
			{Key: "REDIS_HOST", Value: "redis"},
			{Key: "REDIS_PORT", Value: "6379"},
			{Key: "MONGO_HOST", Value: "mongo"},
			{Key: "MONGO_PORT", Value: "27017"},
			{Key: "MONGO_DB", Value: "LibreChat"},
			{Key: "MONGO_ROOT_USERNAME", Value: sec.Value("mongo_root_username")},
			{Key: "MONGO_ROOT_PASSWORD", Value: sec.Value("mongo_root_password")},
			{Key: "JWT_SECRET", Value: sec.Value("jwt_secret")},
			{Key: "JWT_REFRESH_SECRET", Value: sec.Value("jwt_refresh_secret")},
		},
	}

	n8n := &Artifact{
		Path: filepath.Join(in.ProjectDir, "n8n.env"),
		Mode: 0o644,
		Entries: []Entry{
			{Key: "N8N_HOST", Value: addr},
			{Key: "N8N_PORT", Value: "5678"},
			{Key: "N8N_PROTOCOL", Value: "http"},
			{Key: "WEBHOOK_URL", Value: "http://" + addr + ":5678/"},
			{Key: "GENERIC_TIMEZONE", Value: "UTC"},
			// Absent key means n8n generates and persists its own key on
			// first start.
			{Key: "N8N_ENCRYPTION_KEY", Value: sec.Value("n8n_encryption_key"), OmitIfEmpty: true},
		},
	}

	chatwoot := &Artifact{
		Path: filepath.Join(in.ProjectDir, "chatwoot.env"),
		Mode: 0o600,
		Entries: []Entry{
			{Key: "RAILS_ENV", Value: "production"},
			{Key: "INSTALLATION_ENV", Value: "docker"},
			{Key: "FRONTEND_URL", Value: "http://" + addr + ":3000"},
			{Key: "SECRET_KEY_BASE", Value: sec.Value("secret_key_base")},
			{Key: "POSTGRES_HOST", Value: "postgres"},
			{Key: "POSTGRES_PORT", Value: "5432"},
			{Key: "POSTGRES_DATABASE", Value: "chatwoot"},
			{Key: "POSTGRES_USERNAME", Value: "chatwoot"},
			{Key: "POSTGRES_PASSWORD", Value: sec.Value("postgres_password")},
			{Key: "REDIS_URL", Value: "redis://redis:6379"},
		},
	}

	bridge := &Artifact{
		Path: filepath.Join(in.ProjectDir, "bridge.env"),
		Mode: 0o600,
		Entries: []Entry{
			{Key: "POSTGRES_HOST", Value: "postgres"},
			{Key: "POSTGRES_PORT", Value: "5432"},
			{Key: "POSTGRES_DB", Value: "chatwoot"},
			{Key: "POSTGRES_USER", Value: "chatwoot"},
			{Key: "POSTGRES_PASSWORD", Value: sec.Value("postgres_password")},
			{Key: "MONGO_HOST", Value: "mongo"},
			{Key: "MONGO_PORT", Value: "27017"},
			{Key: "MONGO_DB", Value: "LibreChat"},
			{Key: "MONGO_ROOT_USERNAME", Value: sec.Value("mongo_root_username")},
			{Key: "MONGO_ROOT_PASSWORD", Value: sec.Value("mongo_root_password")},
			{Key: "BRIDGE_API_KEY", Value: sec.Value("bridge_api_key")},
		},
	}

	return []*Artifact{shared, n8n, chatwoot, bridge}
}

// WriteAll writes every artifact, stopping at the first error.
func WriteAll(artifacts []*Artifact) error {
	for _, a := range artifacts {
		if err := a.Write(); err != nil {
			return err
		}
	}
	return nil
}
