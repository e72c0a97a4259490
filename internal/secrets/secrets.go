// Package secrets resolves API tokens.
//
// A token is taken from the first non-empty environment variable in its
// KeySpec, then from the file named by its FileEnv. Requesting
// an unknown key returns an error.
package secrets

import (
	"fmt"
	"os"
	"strings"

	"github.com/tsukumogami/sasl2/internal/config"
)

// Get resolves a secret by name. It fails if the key is unknown, the
// token file cannot be read, or no source has a value.
func Get(env *config.Env, name string) (string, error) {
	ks, ok := knownKeys[name]
	if !ok {
		return "", fmt.Errorf("unknown secret key: %q", name)
	}

	for _, key := range ks.EnvVars {
		if val := env.Get(key); val != "" {
			return val, nil
		}
	}

	if path := env.Get(ks.FileEnv); ks.FileEnv != "" && path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("reading %s from %s: %w", name, ks.FileEnv, err)
		}
		if val := strings.TrimSpace(string(data)); val != "" {
			return val, nil
		}
	}

	return "", fmt.Errorf("%s not configured. Set the %s environment variable, or point %s at a file holding it",
		name, strings.Join(ks.EnvVars, " or "), ks.FileEnv)
}

// Optional resolves name and returns "" when the secret is not configured.
// Only an unknown key or an unreadable token file is an error.
func Optional(env *config.Env, name string) (string, error) {
	if !IsSet(env, name) {
		if _, ok := knownKeys[name]; !ok {
			return "", fmt.Errorf("unknown secret key: %q", name)
		}
		return "", nil
	}
	return Get(env, name)
}

// IsSet reports whether any source for name has a value. A token file
// counts as set without being read. Returns false for unknown keys.
func IsSet(env *config.Env, name string) bool {
	ks, ok := knownKeys[name]
	if !ok {
		return false
	}
	for _, key := range ks.EnvVars {
		if env.Get(key) != "" {
			return true
		}
	}
	return ks.FileEnv != "" && env.Get(ks.FileEnv) != ""
}
