// Package features manages the build toggles that select the acquisition
// strategy and the optional SASL plugins.
//
// Toggles come from, in increasing precedence: defaults (all off), the
// sasl2.toml feature file, the SASL2_FEATURES environment variable, and
// the --features command-line flag.
package features

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/tsukumogami/sasl2/internal/builderr"
)

// Toggle names accepted by Get, Set, and feature lists.
const (
	Vendored       = "vendored"
	GSSAPIVendored = "gssapi-vendored"
	Plain          = "plain"
	SCRAM          = "scram"
	PkgConfig      = "pkg-config"
	OpenSSL        = "openssl"
)

// Toggles holds the boolean feature switches.
type Toggles struct {
	// Vendored builds libsasl2 from source instead of discovering a system copy.
	Vendored bool `toml:"vendored"`

	// GSSAPIVendored links the GSSAPI plugin against a vendored MIT Kerberos.
	GSSAPIVendored bool `toml:"gssapi-vendored"`

	// Plain enables the PLAIN mechanism plugin.
	Plain bool `toml:"plain"`

	// SCRAM enables the SCRAM mechanism plugin.
	SCRAM bool `toml:"scram"`

	// PkgConfig allows the pkg-config discovery strategy.
	PkgConfig bool `toml:"pkg-config"`

	// OpenSSL passes a vendored OpenSSL's headers to the source build.
	OpenSSL bool `toml:"openssl"`
}

// Source locates the vendored libsasl2 sources.
type Source struct {
	// Dir is a checked-out source tree.
	Dir string `toml:"dir,omitempty"`

	// Archive is a release tarball used when Dir is empty.
	Archive string `toml:"archive,omitempty"`

	// Signature is a detached PGP signature over Archive.
	Signature string `toml:"signature,omitempty"`

	// PublicKey is the armored key that must have produced Signature.
	PublicKey string `toml:"public_key,omitempty"`
}

// Config is the decoded feature file.
type Config struct {
	Features Toggles `toml:"features"`
	Source   Source  `toml:"source"`
}

// Default returns a Config with every toggle off.
func Default() *Config {
	return &Config{}
}

// LoadFile reads the feature file at path.
// Returns default values if the file doesn't exist.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, builderr.Config(err, "failed to read feature file %s", path)
	}

	md, err := toml.Decode(string(data), cfg)
	if err != nil {
		return nil, builderr.Config(err, "failed to parse feature file %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, builderr.Config(nil, "unknown key %q in feature file %s", undecoded[0].String(), path)
	}

	// Relative source paths are relative to the feature file.
	base := filepath.Dir(path)
	cfg.Source.Dir = resolveRel(base, cfg.Source.Dir)
	cfg.Source.Archive = resolveRel(base, cfg.Source.Archive)
	cfg.Source.Signature = resolveRel(base, cfg.Source.Signature)
	cfg.Source.PublicKey = resolveRel(base, cfg.Source.PublicKey)

	return cfg, nil
}

func resolveRel(base, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}

// Save writes the configuration to path.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create feature file: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(c); err != nil {
		return fmt.Errorf("failed to write feature file: %w", err)
	}
	return nil
}

func (c *Config) toggle(key string) (*bool, bool) {
	t := &c.Features
	switch strings.ToLower(key) {
	case Vendored:
		return &t.Vendored, true
	case GSSAPIVendored:
		return &t.GSSAPIVendored, true
	case Plain:
		return &t.Plain, true
	case SCRAM:
		return &t.SCRAM, true
	case PkgConfig:
		return &t.PkgConfig, true
	case OpenSSL:
		return &t.OpenSSL, true
	default:
		return nil, false
	}
}

// Get returns the value of a toggle as a string.
// Returns empty string and false if the key doesn't exist.
func (c *Config) Get(key string) (string, bool) {
	p, ok := c.toggle(key)
	if !ok {
		return "", false
	}
	return strconv.FormatBool(*p), true
}

// Set updates a toggle from a string.
// Returns an error if the key doesn't exist or the value is invalid.
func (c *Config) Set(key, value string) error {
	p, ok := c.toggle(key)
	if !ok {
		return builderr.Config(nil, "unknown feature: %s", key)
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return builderr.Config(nil, "invalid value for %s: must be true or false", key)
	}
	*p = b
	return nil
}

// ApplyList applies a comma-separated feature list such as
// "vendored,plain,-scram". A leading "-" turns a toggle off.
func (c *Config) ApplyList(list string) error {
	for _, item := range strings.Split(list, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		value := "true"
		if name, ok := strings.CutPrefix(item, "-"); ok {
			item, value = name, "false"
		}
		if err := c.Set(item, value); err != nil {
			return err
		}
	}
	return nil
}

// Enabled returns the names of every toggle that is on, sorted.
func (c *Config) Enabled() []string {
	var on []string
	for key := range AvailableKeys() {
		if v, _ := c.Get(key); v == "true" {
			on = append(on, key)
		}
	}
	sort.Strings(on)
	return on
}

// AvailableKeys returns a list of all toggles with descriptions.
func AvailableKeys() map[string]string {
	return map[string]string{
		Vendored:       "Build libsasl2 from vendored source (true/false)",
		GSSAPIVendored: "Link GSSAPI against a vendored MIT Kerberos (true/false)",
		Plain:          "Enable the PLAIN mechanism plugin (true/false)",
		SCRAM:          "Enable the SCRAM mechanism plugin (true/false)",
		PkgConfig:      "Allow discovery through pkg-config (true/false)",
		OpenSSL:        "Use a vendored OpenSSL's headers in the source build (true/false)",
	}
}

// Load resolves the effective configuration: the feature file at path,
// then envList (SASL2_FEATURES), then cliList (--features).
func Load(path, envList, cliList string) (*Config, error) {
	cfg, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyList(envList); err != nil {
		return nil, err
	}
	if err := cfg.ApplyList(cliList); err != nil {
		return nil, err
	}
	return cfg, nil
}
