package vendored

import (
	"archive/tar"
	"bytes"
	"testing"

	"github.com/ProtonMail/gopenpgp/v2/crypto"
	"github.com/klauspost/compress/gzip"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tsukumogami/sasl2/internal/builderr"
	"github.com/tsukumogami/sasl2/internal/features"
)

type tarEntry struct {
	name     string
	body     string
	typeflag byte
	linkname string
}

func writeTarGz(t *testing.T, fs afero.Fs, path string, entries []tarEntry) {
	t.Helper()
	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gw)
	for _, e := range entries {
		hdr := &tar.Header{Name: e.name, Mode: 0644, Typeflag: e.typeflag, Linkname: e.linkname}
		if e.typeflag == 0 {
			hdr.Typeflag = tar.TypeReg
			hdr.Size = int64(len(e.body))
		}
		if e.typeflag == tar.TypeDir {
			hdr.Mode = 0755
		}
		require.NoError(t, tw.WriteHeader(hdr))
		if hdr.Typeflag == tar.TypeReg {
			_, err := tw.Write([]byte(e.body))
			require.NoError(t, err)
		}
	}
	require.NoError(t, tw.Close())
	require.NoError(t, gw.Close())
	require.NoError(t, afero.WriteFile(fs, path, buf.Bytes(), 0644))
}

func releaseEntries() []tarEntry {
	return []tarEntry{
		{name: "cyrus-sasl-2.1.28/", typeflag: tar.TypeDir},
		{name: "cyrus-sasl-2.1.28/configure", body: "#!/bin/sh\n"},
		{name: "cyrus-sasl-2.1.28/include/sasl.h", body: "#define SASL_VERSION_STEP 28\n"},
	}
}

func TestStage_Directory(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/src/sasl2/configure", []byte("#!/bin/sh\n"), 0755))
	require.NoError(t, afero.WriteFile(fs, "/src/sasl2/lib/Makefile.in", []byte("all:\n"), 0644))

	s := &Stager{Fs: fs}
	staged, err := s.Stage(features.Source{Dir: "/src/sasl2"}, "/out/sasl2")
	require.NoError(t, err)
	assert.True(t, staged)

	data, err := afero.ReadFile(fs, "/out/sasl2/lib/Makefile.in")
	require.NoError(t, err)
	assert.Equal(t, "all:\n", string(data))

	info, err := fs.Stat("/out/sasl2/configure")
	require.NoError(t, err)
	assert.Equal(t, 0755, int(info.Mode().Perm()))
}

func TestStage_Idempotent(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/src/sasl2/configure", []byte("v1"), 0755))
	s := &Stager{Fs: fs}

	_, err := s.Stage(features.Source{Dir: "/src/sasl2"}, "/out/sasl2")
	require.NoError(t, err)

	// A changed checkout does not disturb the staged tree.
	require.NoError(t, afero.WriteFile(fs, "/src/sasl2/configure", []byte("v2"), 0755))
	staged, err := s.Stage(features.Source{Dir: "/src/sasl2"}, "/out/sasl2")
	require.NoError(t, err)
	assert.False(t, staged)

	data, err := afero.ReadFile(fs, "/out/sasl2/configure")
	require.NoError(t, err)
	assert.Equal(t, "v1", string(data))
}

func TestStage_Archive(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeTarGz(t, fs, "/dl/cyrus-sasl-2.1.28.tar.gz", releaseEntries())

	staged, err := (&Stager{Fs: fs}).Stage(features.Source{Archive: "/dl/cyrus-sasl-2.1.28.tar.gz"}, "/out/sasl2")
	require.NoError(t, err)
	assert.True(t, staged)

	data, err := afero.ReadFile(fs, "/out/sasl2/include/sasl.h")
	require.NoError(t, err)
	assert.Contains(t, string(data), "SASL_VERSION_STEP 28")
}

func TestStage_Errors(t *testing.T) {
	tests := []struct {
		name  string
		setup func(afero.Fs)
		src   features.Source
	}{
		{name: "nothing configured", src: features.Source{}},
		{name: "missing directory", src: features.Source{Dir: "/nope"}},
		{
			name:  "source is a file",
			setup: func(fs afero.Fs) { _ = afero.WriteFile(fs, "/src/file", []byte("x"), 0644) },
			src:   features.Source{Dir: "/src/file"},
		},
		{
			name:  "unsupported archive",
			setup: func(fs afero.Fs) { _ = afero.WriteFile(fs, "/dl/sasl.zip", []byte("PK"), 0644) },
			src:   features.Source{Archive: "/dl/sasl.zip"},
		},
		{
			name:  "signature without key",
			setup: func(fs afero.Fs) { _ = afero.WriteFile(fs, "/dl/sasl.tar.gz", []byte("x"), 0644) },
			src:   features.Source{Archive: "/dl/sasl.tar.gz", Signature: "/dl/sasl.tar.gz.sig"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			if tt.setup != nil {
				tt.setup(fs)
			}
			_, err := (&Stager{Fs: fs}).Stage(tt.src, "/out/sasl2")
			require.Error(t, err)
			assert.True(t, builderr.Is(err, builderr.KindTool))
			assert.Contains(t, err.Error(), "stage failed")

			exists, _ := afero.Exists(fs, "/out/sasl2")
			assert.False(t, exists, "failed staging must not leave a destination")
		})
	}
}

func TestExtract_Traversal(t *testing.T) {
	tests := []struct {
		name    string
		entries []tarEntry
		wantErr string
	}{
		{"dotdot entry", []tarEntry{{name: "pkg/../../etc/passwd", body: "root"}}, "escapes destination"},
		{"absolute symlink", []tarEntry{{name: "pkg/link", typeflag: tar.TypeSymlink, linkname: "/etc/passwd"}}, "absolute symlink"},
		{"escaping symlink", []tarEntry{{name: "pkg/link", typeflag: tar.TypeSymlink, linkname: "../../outside"}}, "escapes destination"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			writeTarGz(t, fs, "/dl/evil.tar.gz", tt.entries)
			err := Extract(fs, "/dl/evil.tar.gz", "/out/dest", 1)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDetectFormat(t *testing.T) {
	for in, want := range map[string]string{
		"cyrus-sasl-2.1.28.tar.gz":  "tar.gz",
		"cyrus-sasl-2.1.28.TGZ":     "tar.gz",
		"cyrus-sasl-2.1.28.tar.xz":  "tar.xz",
		"cyrus-sasl-2.1.28.tar.zst": "tar.zst",
		"cyrus-sasl-2.1.28.tar.lz":  "tar.lz",
		"cyrus-sasl-2.1.28.tar":     "tar",
		"cyrus-sasl-2.1.28.zip":     "unknown",
	} {
		assert.Equal(t, want, DetectFormat(in), in)
	}
}

func TestStage_Signature(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeTarGz(t, fs, "/dl/sasl.tar.gz", releaseEntries())
	archive, err := afero.ReadFile(fs, "/dl/sasl.tar.gz")
	require.NoError(t, err)

	signer, err := crypto.GenerateKey("Release Signer", "release@example.org", "x25519", 0)
	require.NoError(t, err)
	ring, err := crypto.NewKeyRing(signer)
	require.NoError(t, err)
	sig, err := ring.SignDetached(crypto.NewPlainMessage(archive))
	require.NoError(t, err)
	armoredSig, err := sig.GetArmored()
	require.NoError(t, err)
	pub, err := signer.GetArmoredPublicKey()
	require.NoError(t, err)

	require.NoError(t, afero.WriteFile(fs, "/dl/sasl.tar.gz.sig", []byte(armoredSig), 0644))
	require.NoError(t, afero.WriteFile(fs, "/keys/good.asc", []byte(pub), 0644))

	other, err := crypto.GenerateKey("Someone Else", "other@example.org", "x25519", 0)
	require.NoError(t, err)
	otherPub, err := other.GetArmoredPublicKey()
	require.NoError(t, err)
	require.NoError(t, afero.WriteFile(fs, "/keys/other.asc", []byte(otherPub), 0644))

	src := features.Source{Archive: "/dl/sasl.tar.gz", Signature: "/dl/sasl.tar.gz.sig", PublicKey: "/keys/other.asc"}
	_, err = (&Stager{Fs: fs}).Stage(src, "/out/sasl2")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "signature verification failed")

	src.PublicKey = "/keys/good.asc"
	staged, err := (&Stager{Fs: fs}).Stage(src, "/out/sasl2")
	require.NoError(t, err)
	assert.True(t, staged)

	key, err := LoadPublicKey(fs, "/keys/good.asc", signer.GetFingerprint())
	require.NoError(t, err)
	assert.Equal(t, signer.GetFingerprint(), key.GetFingerprint())

	_, err = LoadPublicKey(fs, "/keys/good.asc", other.GetFingerprint())
	assert.Error(t, err)
}

func TestParseFingerprint(t *testing.T) {
	fp, err := ParseFingerprint("abcd ef01 2345 6789 abcd ef01 2345 6789 abcd ef01")
	require.NoError(t, err)
	assert.Equal(t, "ABCDEF0123456789ABCDEF0123456789ABCDEF01", fp)

	_, err = ParseFingerprint("abc")
	assert.Error(t, err)
	_, err = ParseFingerprint("ZZZZEF0123456789ABCDEF0123456789ABCDEF01")
	assert.Error(t, err)
}
