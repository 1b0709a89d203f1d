package classpath

import (
	"archive/tar"
	"bytes"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/containerd/errdefs"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeDir(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		p := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
	return dir
}

func writeJar(t *testing.T, files map[string]string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "app.jar")
	f, err := os.Create(p)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	for name, content := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
	return p
}

func writeTarGz(t *testing.T, files map[string]string) string {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	tw := tar.NewWriter(zw)
	for name, content := range files {
		require.NoError(t, tw.WriteHeader(&tar.Header{
			Name:     name,
			Mode:     0o644,
			Size:     int64(len(content)),
			Typeflag: tar.TypeReg,
		}))
		_, err := tw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
	require.NoError(t, zw.Close())

	p := filepath.Join(t.TempDir(), "lib.tar.gz")
	require.NoError(t, os.WriteFile(p, buf.Bytes(), 0o644))
	return p
}

func TestParse(t *testing.T) {
	sep := string(os.PathListSeparator)

	spec, err := Parse("/libs/app.jar" + sep + sep + " /libs/extra ")
	require.NoError(t, err)
	assert.Equal(t, Spec{"/libs/app.jar", "/libs/extra"}, spec)
	assert.Equal(t, "/libs/app.jar"+sep+"/libs/extra", spec.String())

	rel, err := Parse("classes")
	require.NoError(t, err)
	require.Len(t, rel, 1)
	assert.True(t, filepath.IsAbs(rel[0]))
}

func TestParseEmpty(t *testing.T) {
	for _, raw := range []string{"", string(os.PathListSeparator), "  "} {
		_, err := Parse(raw)

		var resErr *ResolutionError
		require.ErrorAs(t, err, &resErr, "raw=%q", raw)
		assert.ErrorIs(t, err, ErrResolution)
		assert.True(t, errdefs.IsNotFound(err))
	}
}

func TestSpecEqualAndDigest(t *testing.T) {
	a := Spec{"/a", "/b"}
	b := Spec{"/a", "/b"}
	c := Spec{"/b", "/a"}

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
	assert.Equal(t, a.Digest(), b.Digest())
	assert.NotEqual(t, a.Digest(), c.Digest())
}

func TestClassPath(t *testing.T) {
	tests := []struct {
		name    string
		want    string
		wantErr bool
	}{
		{name: "Main", want: "Main.sh"},
		{name: "com.example.Main", want: "com/example/Main.sh"},
		{name: "", wantErr: true},
		{name: "com..Main", wantErr: true},
		{name: ".Main", wantErr: true},
		{name: "com/example.Main", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ClassPath(tt.name)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidClass)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOpenDirectory(t *testing.T) {
	dir := writeDir(t, map[string]string{"com/example/Main.sh": "main() { :; }"})

	scope, err := Open(Spec{dir})
	require.NoError(t, err)
	defer scope.Close()

	class, err := scope.Lookup("com.example.Main")
	require.NoError(t, err)
	assert.Equal(t, "com/example/Main.sh", class.Path)
	assert.Equal(t, dir, class.Location)
	assert.Equal(t, "main() { :; }", string(class.Source))
}

func TestOpenArchives(t *testing.T) {
	jar := writeJar(t, map[string]string{"Main.sh": "echo jar"})
	tgz := writeTarGz(t, map[string]string{"util/Helper.sh": "echo tar"})

	scope, err := Open(Spec{jar, tgz})
	require.NoError(t, err)

	main, err := scope.Lookup("Main")
	require.NoError(t, err)
	assert.Equal(t, "echo jar", string(main.Source))

	helper, err := scope.Lookup("util.Helper")
	require.NoError(t, err)
	assert.Equal(t, "echo tar", string(helper.Source))
	assert.Equal(t, tgz, helper.Location)

	require.NoError(t, scope.Close())
}

func TestOpenFirstLocationWins(t *testing.T) {
	first := writeDir(t, map[string]string{"Main.sh": "first"})
	second := writeDir(t, map[string]string{"Main.sh": "second", "Other.sh": "other"})

	scope, err := Open(Spec{first, second})
	require.NoError(t, err)
	defer scope.Close()

	class, err := scope.Lookup("Main")
	require.NoError(t, err)
	assert.Equal(t, "first", string(class.Source))

	data, err := fs.ReadFile(scope, "Other.sh")
	require.NoError(t, err)
	assert.Equal(t, "other", string(data))
}

func TestOpenSkipsMissingLocations(t *testing.T) {
	dir := writeDir(t, map[string]string{"Main.sh": "x"})
	missing := filepath.Join(t.TempDir(), "missing.jar")

	scope, err := Open(Spec{missing, dir})
	require.NoError(t, err)
	defer scope.Close()

	assert.Equal(t, []string{dir}, scope.Locations())
}

func TestOpenNothingResolves(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope")

	_, err := Open(Spec{missing})
	assert.ErrorIs(t, err, ErrResolution)
}

func TestOpenCorruptArchive(t *testing.T) {
	p := filepath.Join(t.TempDir(), "broken.jar")
	require.NoError(t, os.WriteFile(p, []byte("not a zip"), 0o644))

	_, err := Open(Spec{p})
	assert.ErrorIs(t, err, ErrArchive)
}

func TestTarRejectsEscapingEntries(t *testing.T) {
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	require.NoError(t, tw.WriteHeader(&tar.Header{Name: "../evil.sh", Mode: 0o644, Size: 1, Typeflag: tar.TypeReg}))
	_, err := tw.Write([]byte("x"))
	require.NoError(t, err)
	require.NoError(t, tw.Close())

	p := filepath.Join(t.TempDir(), "evil.tar")
	require.NoError(t, os.WriteFile(p, buf.Bytes(), 0o644))

	_, err = Open(Spec{p})
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "escapes"))
}

func TestLookupMissingClass(t *testing.T) {
	scope, err := Open(Spec{writeDir(t, map[string]string{"Main.sh": "x"})})
	require.NoError(t, err)
	defer scope.Close()

	_, err = scope.Lookup("Absent")
	assert.True(t, errors.Is(err, ErrClassNotFound))

	_, err = scope.Open("Absent.sh")
	assert.ErrorIs(t, err, fs.ErrNotExist)
}
