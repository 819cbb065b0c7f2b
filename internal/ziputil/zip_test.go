package ziputil

import (
	"archive/zip"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestTree(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0775))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
}

func readTestTree(t *testing.T, dir string) map[string]string {
	t.Helper()
	files := map[string]string{}
	err := fs.WalkDir(os.DirFS(dir), ".", func(path string, d fs.DirEntry, err error) error {
		require.NoError(t, err)
		if d.IsDir() {
			return nil
		}
		b, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(path)))
		require.NoError(t, err)
		files[path] = string(b)
		return nil
	})
	require.NoError(t, err)
	return files
}

func TestPackUnpack_roundTrip(t *testing.T) {
	want := map[string]string{
		"index.html":              "<html></html>",
		"data/suites.json":        `{"children":[]}`,
		"history/history.json":    `{}`,
		"history/.hidden":         "dot file",
		"widgets/nested/deep.txt": "deep",
	}
	src := t.TempDir()
	writeTestTree(t, src, want)

	archive := filepath.Join(t.TempDir(), "report.zip")
	require.NoError(t, Pack(src, archive))

	dst := t.TempDir()
	require.NoError(t, Unpack(archive, dst))
	assert.Equal(t, want, readTestTree(t, dst))
}

func TestPack_replacesExistingFile(t *testing.T) {
	src := t.TempDir()
	writeTestTree(t, src, map[string]string{"a.txt": "a"})
	archive := filepath.Join(t.TempDir(), "report.zip")
	require.NoError(t, os.WriteFile(archive, []byte("not a zip"), 0644))

	require.NoError(t, Pack(src, archive))

	zr, err := zip.OpenReader(archive)
	require.NoError(t, err)
	defer zr.Close()
	require.Len(t, zr.File, 1)
	assert.Equal(t, "a.txt", zr.File[0].Name)
}

func TestUnpack_corruptArchiveIsNotFatal(t *testing.T) {
	archive := filepath.Join(t.TempDir(), "broken.zip")
	require.NoError(t, os.WriteFile(archive, []byte("definitely not a zip archive"), 0644))
	dst := filepath.Join(t.TempDir(), "out")

	assert.NoError(t, Unpack(archive, dst))
	assert.DirExists(t, dst)
}

func TestUnpack_missingArchive(t *testing.T) {
	err := Unpack(filepath.Join(t.TempDir(), "missing.zip"), t.TempDir())
	assert.Error(t, err)
}

func TestUnpack_skipsEntriesOutsideDest(t *testing.T) {
	archive := filepath.Join(t.TempDir(), "slip.zip")
	f, err := os.Create(archive)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	w, err := zw.Create("../escaped.txt")
	require.NoError(t, err)
	w.Write([]byte("bad"))
	w, err = zw.Create("inside.txt")
	require.NoError(t, err)
	w.Write([]byte("good"))
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	parent := t.TempDir()
	dst := filepath.Join(parent, "dst")
	require.NoError(t, Unpack(archive, dst))

	assert.Equal(t, map[string]string{"inside.txt": "good"}, readTestTree(t, dst))
	assert.NoFileExists(t, filepath.Join(parent, "escaped.txt"))
}
