package buildmeta

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tsukumogami/sasl2/internal/builderr"
	"github.com/tsukumogami/sasl2/internal/config"
	"github.com/tsukumogami/sasl2/internal/platform"
)

func fullEnv() map[string]string {
	return map[string]string{
		config.EnvHost:   "x86_64-unknown-linux-gnu",
		config.EnvTarget: "x86_64-unknown-linux-gnu",
		config.EnvOutDir: "/tmp/out",
	}
}

func TestParseLinkPreference(t *testing.T) {
	assert.Equal(t, PreferUnset, ParseLinkPreference("", false))
	assert.Equal(t, PreferDynamic, ParseLinkPreference("0", true))
	assert.Equal(t, PreferStatic, ParseLinkPreference("1", true))
	assert.Equal(t, PreferStatic, ParseLinkPreference("", true))
	assert.Equal(t, PreferStatic, ParseLinkPreference("yes", true))
}

func TestFromEnv(t *testing.T) {
	m, err := FromEnv(config.MapEnv(fullEnv()), Overrides{})
	require.NoError(t, err)

	assert.Equal(t, "x86_64-unknown-linux-gnu", m.Host)
	assert.Equal(t, "/tmp/out", m.OutDir)
	assert.Equal(t, PreferUnset, m.WantStatic)
	assert.False(t, m.CrossCompiling())
	assert.Equal(t, platform.Linux, m.TargetFamily())
}

func TestFromEnvStatic(t *testing.T) {
	env := fullEnv()
	env[config.EnvStatic] = "0"
	m, err := FromEnv(config.MapEnv(env), Overrides{})
	require.NoError(t, err)
	assert.Equal(t, PreferDynamic, m.WantStatic)
}

func TestFromEnvOverrides(t *testing.T) {
	m, err := FromEnv(config.MapEnv(map[string]string{}), Overrides{
		Host:   "x86_64-apple-darwin",
		Target: "aarch64-apple-darwin",
		OutDir: "/work",
	})
	require.NoError(t, err)
	assert.True(t, m.CrossCompiling())
	assert.Equal(t, platform.Darwin, m.HostFamily())
	assert.Equal(t, "/work", m.OutDir)
}

func TestFromEnvMissing(t *testing.T) {
	for _, key := range []string{config.EnvHost, config.EnvTarget, config.EnvOutDir} {
		t.Run(key, func(t *testing.T) {
			env := fullEnv()
			delete(env, key)

			_, err := FromEnv(config.MapEnv(env), Overrides{})
			require.Error(t, err)
			assert.True(t, builderr.Is(err, builderr.KindMissingEnv))
			assert.Contains(t, err.Error(), key)
		})
	}
}

func TestLinkPreferenceString(t *testing.T) {
	assert.Equal(t, "unset", PreferUnset.String())
	assert.Equal(t, "static", PreferStatic.String())
	assert.Equal(t, "dynamic", PreferDynamic.String())
}
