package directive

import (
	"bytes"
	"fmt"
	"go/format"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/template"

	"github.com/tsukumogami/sasl2/internal/platform"
	"github.com/tsukumogami/sasl2/internal/probe"
)

// CgoFile renders the emitted directives as a Go source file carrying
// #cgo flags and the validated version constants.
type CgoFile struct {
	Package string

	// BuildTag, if set, guards the file with a //go:build line.
	BuildTag string

	// Target selects how static archives are requested from the linker.
	Target platform.Family
}

var cgoTemplate = template.Must(template.New("cgo").Parse(`// Code generated by sasl2-build. DO NOT EDIT.

{{if .BuildTag}}//go:build {{.BuildTag}}

{{end}}package {{.Package}}

{{range .CFlags}}// #cgo CFLAGS: {{.}}
{{end}}{{range .LDFlags}}// #cgo LDFLAGS: {{.}}
{{end}}import "C"

// Version of the libsasl2 headers this package was validated against.
const (
	VersionMajor = {{.Version.Major}}
	VersionMinor = {{.Version.Minor}}
	VersionStep  = {{.Version.Step}}
	VersionFull  = {{.Version.Full}}
)
`))

// VersionFrom recovers the published version from env directives.
func VersionFrom(ds []Directive) (probe.Version, error) {
	var v probe.Version
	found := map[string]bool{}
	for _, d := range Filter(ds, KeyEnv) {
		name, value, _ := strings.Cut(d.Value, "=")
		var dst *uint8
		switch name {
		case EnvVersionMajor:
			dst = &v.Major
		case EnvVersionMinor:
			dst = &v.Minor
		case EnvVersionStep:
			dst = &v.Step
		default:
			continue
		}
		n, err := strconv.ParseUint(value, 10, 8)
		if err != nil {
			return probe.Version{}, fmt.Errorf("invalid %s value %q", name, value)
		}
		*dst = uint8(n)
		found[name] = true
	}
	for _, name := range []string{EnvVersionMajor, EnvVersionMinor, EnvVersionStep} {
		if !found[name] {
			return probe.Version{}, fmt.Errorf("no %s directive was emitted", name)
		}
	}
	return v, nil
}

// Flags converts directives into cgo CFLAGS and LDFLAGS.
func (f CgoFile) Flags(ds []Directive) (cflags, ldflags []string) {
	var static []string
	flushStatic := func() {
		if len(static) == 0 {
			return
		}
		if f.usesBstatic() {
			ldflags = append(ldflags, "-Wl,-Bstatic")
			ldflags = append(ldflags, static...)
			ldflags = append(ldflags, "-Wl,-Bdynamic")
		} else {
			ldflags = append(ldflags, static...)
		}
		static = nil
	}

	for _, d := range ds {
		switch d.Key {
		case KeyInclude:
			cflags = append(cflags, quoteFlag("-I"+d.Value))
		case KeyRoot:
			cflags = append(cflags, quoteFlag("-I"+filepath.Join(d.Value, "include")))
		case KeyLinkSearch:
			dir := strings.TrimPrefix(d.Value, "native=")
			ldflags = append(ldflags, quoteFlag("-L"+dir))
		case KeyLinkLib:
			kind, name := SplitLinkLib(d.Value)
			if kind == Static {
				static = append(static, "-l"+name)
				continue
			}
			flushStatic()
			ldflags = append(ldflags, "-l"+name)
		}
	}
	flushStatic()
	return cflags, ldflags
}

// Apple's linker has no -Bstatic; static-only search paths are relied on.
func (f CgoFile) usesBstatic() bool {
	return f.Target != platform.Darwin && f.Target != platform.Windows
}

// Render returns the gofmt'ed file contents.
func (f CgoFile) Render(ds []Directive) ([]byte, error) {
	v, err := VersionFrom(ds)
	if err != nil {
		return nil, err
	}
	cflags, ldflags := f.Flags(ds)

	var buf bytes.Buffer
	err = cgoTemplate.Execute(&buf, struct {
		CgoFile
		CFlags  []string
		LDFlags []string
		Version probe.Version
	}{f, joinNonEmpty(cflags), joinNonEmpty(ldflags), v})
	if err != nil {
		return nil, fmt.Errorf("render cgo file: %w", err)
	}
	return format.Source(buf.Bytes())
}

// Write renders the file and atomically replaces path.
func (f CgoFile) Write(path string, ds []Directive) error {
	data, err := f.Render(ds)
	if err != nil {
		return err
	}
	return writeAtomic(path, data)
}

// WriteEnvFile writes the published env directives as KEY=VALUE lines.
func WriteEnvFile(path string, ds []Directive) error {
	var buf bytes.Buffer
	for _, d := range Filter(ds, KeyEnv) {
		buf.WriteString(d.Value)
		buf.WriteByte('\n')
	}
	return writeAtomic(path, buf.Bytes())
}

func joinNonEmpty(flags []string) []string {
	if len(flags) == 0 {
		return nil
	}
	return []string{strings.Join(flags, " ")}
}

func quoteFlag(s string) string {
	if strings.ContainsAny(s, " \t") {
		return "'" + s + "'"
	}
	return s
}

func writeAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create directory for %s: %w", path, err)
	}
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}
