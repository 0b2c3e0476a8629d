package secrets

// Default fallback values, kept in one place so they are reviewable as
// configuration data. RequireSecretOverride in the orchestrator settings
// turns their use into a run warning.
const (
	defaultPostgresPassword = "chatwoot"
	defaultSecretKeyBase    = "replace-with-a-long-random-secret-key-base"
	defaultMongoUser        = "admin"
	defaultMongoPassword    = "librechat"
	defaultJWTSecret        = "librechat-jwt-secret-change-me"
	defaultJWTRefreshSecret = "librechat-jwt-refresh-secret-change-me"
	defaultBridgeAPIKey     = "deepnote-api-key-change-me"
)

// DefaultRefs returns the stack's secret references. overrides replaces the
// built-in fallback per secret name.
//
// n8n_encryption_key is the single sentinel-empty ref: when the parameter
// store yields nothing, the key stays out of the rendered configuration and
// the workflow engine generates and persists its own key on first start.
func DefaultRefs(overrides map[string]string) []Ref {
	refs := []Ref{
		{Name: "postgres_password", Decrypt: true, Fallback: defaultPostgresPassword, Sensitive: true},
		{Name: "secret_key_base", Decrypt: true, Fallback: defaultSecretKeyBase, Sensitive: true},
		{Name: "mongo_root_username", Fallback: defaultMongoUser},
		{Name: "mongo_root_password", Decrypt: true, Fallback: defaultMongoPassword, Sensitive: true},
		{Name: "jwt_secret", Decrypt: true, Fallback: defaultJWTSecret, Sensitive: true},
		{Name: "jwt_refresh_secret", Decrypt: true, Fallback: defaultJWTRefreshSecret, Sensitive: true},
		{Name: "bridge_api_key", Decrypt: true, Fallback: defaultBridgeAPIKey, Sensitive: true},
		{Name: "n8n_encryption_key", Decrypt: true, Fallback: "", AllowEmpty: true},
	}

	for i, ref := range refs {
		if v, ok := overrides[ref.Name]; ok {
			refs[i].Fallback = v
		}
	}
	return refs
}
