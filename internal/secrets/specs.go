package secrets

import "github.com/tsukumogami/sasl2/internal/config"

// GitHubToken authenticates release lookups and asset downloads.
const GitHubToken = "github_token"

// KeySpec defines how to resolve a specific secret.
type KeySpec struct {
	// EnvVars lists environment variables to check, in priority order.
	EnvVars []string

	// FileEnv names a variable holding the path of a file containing the
	// secret, as mounted by CI systems.
	FileEnv string

	// Desc is a human-readable description for error messages.
	Desc string
}

var knownKeys = map[string]KeySpec{
	GitHubToken: {
		EnvVars: []string{config.EnvGitHubToken, "GH_TOKEN"},
		FileEnv: "GITHUB_TOKEN_FILE",
		Desc:    "GitHub token for release lookups and downloads",
	},
}
