package resultstore

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/iver-wharf/wharf-allure/internal/ziputil"
	"github.com/iver-wharf/wharf-allure/pkg/buildref"
	"github.com/iver-wharf/wharf-allure/pkg/history"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	store, err := New(t.TempDir())
	require.NoError(t, err)
	return store
}

func writeFile(t *testing.T, path, content string) {
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0775))
	require.NoError(t, os.WriteFile(path, []byte(content), 0664))
}

func readFile(t *testing.T, path string) string {
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(b)
}

func uploadFiles(t *testing.T, store *Store, ref buildref.Ref, name string, files map[string]string) {
	src := t.TempDir()
	for rel, content := range files {
		writeFile(t, filepath.Join(src, rel), content)
	}
	require.NoError(t, store.UploadDirectory(context.Background(), ref, name, src))
}

func TestStore_DownloadArtifacts(t *testing.T) {
	store := newTestStore(t)
	ref := buildref.Ref{PlanKey: "PROJ-PLAN", Number: 42}
	uploadFiles(t, store, ref, "junit", map[string]string{"a-result.json": "a"})
	uploadFiles(t, store, ref, "e2e", map[string]string{"nested/b-result.json": "b"})

	zipSrc := t.TempDir()
	writeFile(t, filepath.Join(zipSrc, "c-result.json"), "c")
	buildDir, err := store.buildDir(ref)
	require.NoError(t, err)
	require.NoError(t, ziputil.Pack(zipSrc, filepath.Join(buildDir, artifactsDirName, "unit.zip")))

	dest := t.TempDir()
	paths, err := store.DownloadArtifacts(context.Background(), ref, dest, "")
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dest, "e2e"),
		filepath.Join(dest, "junit"),
		filepath.Join(dest, "unit"),
	}, paths)
	assert.Equal(t, "a", readFile(t, filepath.Join(dest, "junit", "a-result.json")))
	assert.Equal(t, "b", readFile(t, filepath.Join(dest, "e2e", "nested", "b-result.json")))
	assert.Equal(t, "c", readFile(t, filepath.Join(dest, "unit", "c-result.json")))
}

func TestStore_DownloadArtifactsFiltered(t *testing.T) {
	store := newTestStore(t)
	ref := buildref.Ref{PlanKey: "PROJ-PLAN", Number: 1}
	uploadFiles(t, store, ref, "junit", map[string]string{"a": "a"})
	uploadFiles(t, store, ref, "e2e", map[string]string{"b": "b"})

	dest := t.TempDir()
	paths, err := store.DownloadArtifacts(context.Background(), ref, dest, "e2e")
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dest, "e2e")}, paths)
	assert.NoDirExists(t, filepath.Join(dest, "junit"))
}

func TestStore_DownloadArtifactsSkipsEmpty(t *testing.T) {
	store := newTestStore(t)
	ref := buildref.Ref{PlanKey: "PROJ-PLAN", Number: 1}
	require.NoError(t, store.CreateBuild(ref))
	buildDir, err := store.buildDir(ref)
	require.NoError(t, err)
	writeFile(t, filepath.Join(buildDir, artifactsDirName, "broken.zip"), "not a zip")

	paths, err := store.DownloadArtifacts(context.Background(), ref, t.TempDir(), "")
	require.NoError(t, err)
	assert.Empty(t, paths)
}

func TestStore_DownloadArtifactsExcluded(t *testing.T) {
	store := newTestStore(t)
	ref := buildref.Ref{PlanKey: "PROJ-PLAN", Number: 1}
	uploadFiles(t, store, ref, "allure-results", map[string]string{"a-result.json": "a"})
	uploadFiles(t, store, ref, "allure-report", map[string]string{"index.html": "<html/>"})

	dest := t.TempDir()
	paths, err := store.DownloadArtifacts(context.Background(), ref, dest, "", "allure-report")
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dest, "allure-results")}, paths)
	assert.NoDirExists(t, filepath.Join(dest, "allure-report"))

	paths, err = store.DownloadArtifacts(context.Background(), ref, t.TempDir(), "allure-report", "allure-report")
	require.NoError(t, err)
	assert.Empty(t, paths)
}

func TestStore_DownloadArtifactsBuildNotFound(t *testing.T) {
	store := newTestStore(t)
	_, err := store.DownloadArtifacts(context.Background(),
		buildref.Ref{PlanKey: "PROJ-PLAN", Number: 1}, t.TempDir(), "")
	assert.ErrorIs(t, err, ErrBuildNotFound)
}

func TestStore_UploadDirectoryReplaces(t *testing.T) {
	store := newTestStore(t)
	ref := buildref.Ref{PlanKey: "PROJ-PLAN", Number: 1}
	uploadFiles(t, store, ref, "allure-report", map[string]string{"old.html": "old"})
	uploadFiles(t, store, ref, "allure-report", map[string]string{"index.html": "new"})

	dir, err := store.ArtifactDir(ref, "allure-report")
	require.NoError(t, err)
	assert.NoFileExists(t, filepath.Join(dir, "old.html"))
	assert.Equal(t, "new", readFile(t, filepath.Join(dir, "index.html")))
}

func TestStore_UploadDirectoryInvalidName(t *testing.T) {
	store := newTestStore(t)
	ref := buildref.Ref{PlanKey: "PROJ-PLAN", Number: 1}
	for _, name := range []string{"", ".", "..", "a/b", `a\b`} {
		err := store.UploadDirectory(context.Background(), ref, name, t.TempDir())
		assert.ErrorIs(t, err, ErrInvalidArtifactName, name)
	}
}

func TestStore_OpenArtifactFile(t *testing.T) {
	store := newTestStore(t)
	ref := buildref.Ref{PlanKey: "PROJ-PLAN", Number: 1}
	uploadFiles(t, store, ref, "allure-report", map[string]string{"data/x.json": "{}"})
	writeFile(t, filepath.Join(store.Root(), "secret.txt"), "secret")

	file, err := store.OpenArtifactFile(ref, "allure-report", "data/x.json")
	require.NoError(t, err)
	b, err := io.ReadAll(file)
	file.Close()
	require.NoError(t, err)
	assert.Equal(t, "{}", string(b))

	_, err = store.OpenArtifactFile(ref, "allure-report", "../../../../secret.txt")
	assert.ErrorIs(t, err, ErrArtifactNotFound)
	_, err = store.OpenArtifactFile(ref, "allure-report", "data")
	assert.ErrorIs(t, err, ErrArtifactNotFound)
}

func TestStore_CustomData(t *testing.T) {
	store := newTestStore(t)
	ref := buildref.Ref{PlanKey: "PROJ-PLAN", Number: 7}
	ctx := context.Background()

	require.NoError(t, store.PutCustomData(ctx, ref, map[string]string{"a": "1", "b": "2"}))
	require.NoError(t, store.PutCustomData(ctx, ref, map[string]string{"b": "3"}))

	data, err := store.ReadCustomData(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a": "1", "b": "3"}, data)
}

func TestStore_CustomDataConcurrentWriters(t *testing.T) {
	store := newTestStore(t)
	ref := buildref.Ref{PlanKey: "PROJ-PLAN", Number: 7}
	ctx := context.Background()
	keys := []string{"a", "b", "c", "d", "e", "f"}

	var wg sync.WaitGroup
	for _, key := range keys {
		wg.Add(1)
		go func(key string) {
			defer wg.Done()
			assert.NoError(t, store.PutCustomData(ctx, ref, map[string]string{key: key}))
		}(key)
	}
	wg.Wait()

	data, err := store.ReadCustomData(ctx, ref)
	require.NoError(t, err)
	assert.Len(t, data, len(keys))
}

func TestStore_CustomDataNullFile(t *testing.T) {
	store := newTestStore(t)
	ref := buildref.Ref{PlanKey: "PROJ-PLAN", Number: 7}
	ctx := context.Background()
	require.NoError(t, store.CreateBuild(ref))
	buildDir, err := store.buildDir(ref)
	require.NoError(t, err)
	writeFile(t, filepath.Join(buildDir, customDataFileName), "null")

	data, err := store.ReadCustomData(ctx, ref)
	require.NoError(t, err)
	assert.NotNil(t, data)
	assert.Empty(t, data)

	require.NoError(t, store.PutCustomData(ctx, ref, map[string]string{"k": "v"}))
	data, err = store.ReadCustomData(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"k": "v"}, data)
}

func TestStore_ReadCustomDataEmpty(t *testing.T) {
	store := newTestStore(t)
	ref := buildref.Ref{PlanKey: "PROJ-PLAN", Number: 7}
	require.NoError(t, store.CreateBuild(ref))

	data, err := store.ReadCustomData(context.Background(), ref)
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestStore_FindPriorBuild(t *testing.T) {
	store := newTestStore(t)
	for _, n := range []uint{1, 2, 9, 10, 11} {
		require.NoError(t, store.CreateBuild(buildref.Ref{PlanKey: "PROJ-PLAN", Number: n}))
	}
	writeFile(t, filepath.Join(store.Root(), "PROJ-PLAN", "notes.txt"), "")
	require.NoError(t, os.Mkdir(filepath.Join(store.Root(), "PROJ-PLAN", "tmp"), 0775))

	tests := []struct {
		name   string
		before uint
		want   uint
		wantOK bool
	}{
		{name: "numeric not lexical order", before: 11, want: 10, wantOK: true},
		{name: "gap", before: 9, want: 2, wantOK: true},
		{name: "missing current", before: 5, want: 2, wantOK: true},
		{name: "first", before: 1, wantOK: false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok, err := store.FindPriorBuild(context.Background(), "PROJ-PLAN", tc.before)
			require.NoError(t, err)
			assert.Equal(t, tc.wantOK, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestStore_FindPriorBuildUnknownPlan(t *testing.T) {
	store := newTestStore(t)
	_, ok, err := store.FindPriorBuild(context.Background(), "NOPE", 10)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHistorySource(t *testing.T) {
	store := newTestStore(t)
	withHistory := buildref.Ref{PlanKey: "PROJ-PLAN", Number: 1}
	withoutHistory := buildref.Ref{PlanKey: "PROJ-PLAN", Number: 2}
	uploadFiles(t, store, withHistory, "allure-report", map[string]string{
		"history/history.json": `{"a":1}`,
	})
	uploadFiles(t, store, withoutHistory, "allure-report", map[string]string{
		"index.html": "",
	})
	src := HistorySource{Store: store, ReportArtifactName: "allure-report"}
	ctx := context.Background()

	has, err := src.HasHistory(ctx, withHistory)
	require.NoError(t, err)
	assert.True(t, has)

	has, err = src.HasHistory(ctx, withoutHistory)
	require.NoError(t, err)
	assert.False(t, has)

	has, err = src.HasHistory(ctx, buildref.Ref{PlanKey: "PROJ-PLAN", Number: 3})
	require.NoError(t, err)
	assert.False(t, has)

	var buf bytes.Buffer
	require.NoError(t, src.FetchFile(ctx, withHistory, history.FileHistory, &buf))
	assert.Equal(t, `{"a":1}`, buf.String())

	err = src.FetchFile(ctx, withHistory, history.FileHistoryTrend, &buf)
	assert.ErrorIs(t, err, history.ErrFileNotFound)
}
