package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/iver-wharf/wharf-allure/internal/errutil"
	"github.com/iver-wharf/wharf-allure/pkg/allure"
	"github.com/iver-wharf/wharf-allure/pkg/buildref"
	"github.com/iver-wharf/wharf-allure/pkg/executorinfo"
	"github.com/iver-wharf/wharf-allure/pkg/history"
	"github.com/iver-wharf/wharf-allure/pkg/outcome"
	"github.com/iver-wharf/wharf-allure/pkg/resultstore"
	"github.com/iver-wharf/wharf-allure/pkg/settings"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/guregu/null.v4"
)

type mockStore struct {
	artifacts   map[string]map[string]string
	downloadErr error
	uploadErr   error
	uploads     map[string]map[string]string
}

func (m *mockStore) DownloadArtifacts(_ context.Context, _ buildref.Ref, destDir, nameFilter string, exclude ...string) ([]string, error) {
	if m.downloadErr != nil {
		return nil, m.downloadErr
	}
	excluded := map[string]bool{}
	for _, name := range exclude {
		excluded[name] = true
	}
	var dirs []string
	for _, name := range sortedKeys(m.artifacts) {
		if nameFilter != "" && name != nameFilter || excluded[name] {
			continue
		}
		dir := filepath.Join(destDir, name)
		for rel, content := range m.artifacts[name] {
			path := filepath.Join(dir, rel)
			if err := os.MkdirAll(filepath.Dir(path), 0775); err != nil {
				return nil, err
			}
			if err := os.WriteFile(path, []byte(content), 0664); err != nil {
				return nil, err
			}
		}
		dirs = append(dirs, dir)
	}
	return dirs, nil
}

func (m *mockStore) UploadDirectory(_ context.Context, _ buildref.Ref, name, dir string) error {
	if m.uploadErr != nil {
		return m.uploadErr
	}
	if m.uploads == nil {
		m.uploads = map[string]map[string]string{}
	}
	m.uploads[name] = readTree(dir)
	return nil
}

type mockSink struct {
	data map[string]string
}

func (m *mockSink) PutCustomData(_ context.Context, _ buildref.Ref, values map[string]string) error {
	if m.data == nil {
		m.data = map[string]string{}
	}
	for k, v := range values {
		m.data[k] = v
	}
	return nil
}

// mockGenerator records a snapshot of its input directories, since they are
// removed once the run is over.
type mockGenerator struct {
	err      error
	panicVal interface{}
	calls    int
	inputs   []map[string]string
}

func (m *mockGenerator) Generate(_ context.Context, inputDirs []string, outputDir string) error {
	m.calls++
	if m.panicVal != nil {
		panic(m.panicVal)
	}
	for _, dir := range inputDirs {
		m.inputs = append(m.inputs, readTree(dir))
	}
	if m.err != nil {
		return m.err
	}
	return os.WriteFile(filepath.Join(outputDir, "index.html"), []byte("<html/>"), 0664)
}

type mockExecutables map[string]allure.Generator

func (m mockExecutables) Provide(name string) (allure.Generator, error) {
	gen, ok := m[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", allure.ErrUnknownExecutable, name)
	}
	return gen, nil
}

type mockIndex struct{}

func (mockIndex) FindPriorBuild(_ context.Context, _ string, before uint) (uint, bool, error) {
	if before <= 1 {
		return 0, false, nil
	}
	return before - 1, true, nil
}

type mockHistorySource map[uint]string

func (m mockHistorySource) HasHistory(_ context.Context, ref buildref.Ref) (bool, error) {
	_, ok := m[ref.Number]
	return ok, nil
}

func (m mockHistorySource) FetchFile(_ context.Context, ref buildref.Ref, file string, w io.Writer) error {
	if file != history.FileHistory {
		return history.ErrFileNotFound
	}
	_, err := io.WriteString(w, m[ref.Number])
	return err
}

type testEnv struct {
	tmp   string
	store *mockStore
	sink  *mockSink
	gen   *mockGenerator
	opts  Options
}

func newTestEnv(t *testing.T) *testEnv {
	env := &testEnv{
		tmp: t.TempDir(),
		store: &mockStore{artifacts: map[string]map[string]string{
			"junit": {"a-result.json": "a"},
		}},
		sink: &mockSink{},
		gen:  &mockGenerator{},
	}
	env.opts = Options{
		BaseURL: "https://ci.example.com",
		Settings: settings.Static{
			EnabledByDefault:  true,
			DefaultExecutable: "allure-2.7.0",
		},
		Artifacts:   env.store,
		Executables: mockExecutables{"allure-2.7.0": env.gen},
		Outcomes:    env.sink,
		TempDir:     env.tmp,
	}
	return env
}

func (env *testEnv) run(t *testing.T, build buildref.Build, plan settings.PlanConfig) Result {
	result := New(env.opts).Run(context.Background(), build, plan)
	entries, err := os.ReadDir(env.tmp)
	require.NoError(t, err)
	assert.Empty(t, entries, "scratch dirs left behind")
	return result
}

func (env *testEnv) recorded(t *testing.T) outcome.Outcome {
	o, ok := outcome.Read(env.sink.data)
	require.True(t, ok, "outcome recorded")
	return o
}

var failedBuild = buildref.Build{
	Ref:    buildref.Ref{PlanKey: "PROJ-PLAN", Number: 42},
	Name:   "My Plan",
	Failed: true,
}

func TestRun_Skipped(t *testing.T) {
	successfulBuild := failedBuild
	successfulBuild.Failed = false
	tests := []struct {
		name   string
		global settings.Static
		plan   settings.PlanConfig
		build  buildref.Build
	}{
		{
			name:   "disabled by default",
			global: settings.Static{EnabledByDefault: false},
			build:  failedBuild,
		},
		{
			name:   "explicitly disabled",
			global: settings.Static{EnabledByDefault: true},
			plan:   settings.PlanConfig{Enabled: null.BoolFrom(false)},
			build:  failedBuild,
		},
		{
			name:   "failed only and build succeeded",
			global: settings.Static{EnabledByDefault: true},
			build:  successfulBuild,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.opts.Settings = tc.global
			result := env.run(t, tc.build, tc.plan)
			assert.True(t, result.Skipped)
			assert.Empty(t, env.sink.data)
			assert.Zero(t, env.gen.calls)
		})
	}
}

func TestRun_SuccessfulBuildWhenNotFailedOnly(t *testing.T) {
	env := newTestEnv(t)
	build := failedBuild
	build.Failed = false
	result := env.run(t, build, settings.PlanConfig{FailedOnly: null.BoolFrom(false)})
	assert.False(t, result.Skipped)
	assert.True(t, env.recorded(t).Success)
}

func TestRun_FullScenario(t *testing.T) {
	env := newTestEnv(t)
	env.store.artifacts = map[string]map[string]string{
		"e2e":   {"e-result.json": "e"},
		"junit": {"j-result.json": "j"},
		"unit":  {"u-result.json": "u"},
	}
	env.opts.History = history.NewResolver(mockIndex{}, mockHistorySource{41: `{"h":41}`},
		history.Options{TempDir: env.tmp})

	result := env.run(t, failedBuild, settings.PlanConfig{})

	require.Empty(t, result.Warnings)
	assert.Equal(t, outcome.Success(SuccessMessage), result.Outcome)
	assert.Equal(t, outcome.Success(SuccessMessage), env.recorded(t))
	assert.NoError(t, result.RecordErr)

	require.Len(t, env.gen.inputs, 3)
	for _, input := range env.gen.inputs {
		assert.Equal(t, `{"h":41}`, input["history/history.json"])
		var info map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(input[executorinfo.FileName]), &info))
		assert.Equal(t, "https://ci.example.com/browse/PROJ-PLAN-42", info["buildUrl"])
		assert.Equal(t, "https://ci.example.com/plugins/servlet/allure/report/PROJ-PLAN/42/", info["reportUrl"])
	}
	assert.Equal(t, map[string]string{"index.html": "<html/>"}, env.store.uploads[DefaultArtifactName])
}

func TestRun_ArtifactNameFilter(t *testing.T) {
	env := newTestEnv(t)
	env.store.artifacts["e2e"] = map[string]string{"e": "e"}
	env.run(t, failedBuild, settings.PlanConfig{ArtifactName: "e2e"})
	require.Len(t, env.gen.inputs, 1)
	assert.Equal(t, "e", env.gen.inputs[0]["e"])
}

func TestRun_NoArtifacts(t *testing.T) {
	env := newTestEnv(t)
	env.store.artifacts = nil
	result := env.run(t, failedBuild, settings.PlanConfig{})
	assert.Equal(t, outcome.Failure(NoArtifactsMessage), result.Outcome)
	assert.Equal(t, outcome.Failure(NoArtifactsMessage), env.recorded(t))
	assert.Zero(t, env.gen.calls)
	assert.Empty(t, env.store.uploads)
}

func TestRun_Failures(t *testing.T) {
	tests := []struct {
		name        string
		setup       func(env *testEnv)
		plan        settings.PlanConfig
		wantMessage string
	}{
		{
			name: "generator error",
			setup: func(env *testEnv) {
				env.gen.err = errors.New("allure exploded\nstack trace")
			},
			wantMessage: "allure exploded\nstack trace",
		},
		{
			name: "download error",
			setup: func(env *testEnv) {
				env.store.downloadErr = errors.New("disk on fire")
			},
			wantMessage: "disk on fire",
		},
		{
			name: "upload error",
			setup: func(env *testEnv) {
				env.store.uploadErr = errors.New("disk full")
			},
			wantMessage: "disk full",
		},
		{
			name: "no executable",
			setup: func(env *testEnv) {
				env.opts.Settings = settings.Static{EnabledByDefault: true}
			},
			wantMessage: ErrNoExecutable.Error(),
		},
		{
			name:        "unknown executable",
			plan:        settings.PlanConfig{Executable: "allure-1.0"},
			wantMessage: allure.ErrUnknownExecutable.Error(),
		},
		{
			name: "panic",
			setup: func(env *testEnv) {
				env.gen.panicVal = "boom"
			},
			wantMessage: "boom",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv(t)
			if tc.setup != nil {
				tc.setup(env)
			}
			result := env.run(t, failedBuild, tc.plan)
			assert.False(t, result.Skipped)
			assert.False(t, result.Outcome.Success)
			assert.Contains(t, result.Outcome.Message, tc.wantMessage)
			assert.Equal(t, result.Outcome, env.recorded(t))
			assert.Empty(t, env.store.uploads)
		})
	}
}

func TestRun_NilSink(t *testing.T) {
	env := newTestEnv(t)
	env.opts.Outcomes = nil
	result := env.run(t, failedBuild, settings.PlanConfig{})
	assert.ErrorIs(t, result.RecordErr, outcome.ErrNilSink)
	assert.True(t, result.Outcome.Success)
}

func TestRun_HistoryWarnings(t *testing.T) {
	env := newTestEnv(t)
	env.store.artifacts["e2e"] = map[string]string{"e": "e"}
	env.opts.History = failingAttacher{}
	result := env.run(t, failedBuild, settings.PlanConfig{})
	assert.True(t, result.Outcome.Success)
	require.Len(t, result.Warnings, 1)
	assert.EqualError(t, result.Warnings[0], "copy failed")
}

func TestRun_RerunIgnoresPreviousReport(t *testing.T) {
	env := newTestEnv(t)
	store, err := resultstore.New(t.TempDir())
	require.NoError(t, err)
	src := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(src, "a-result.json"), []byte("a"), 0664))
	require.NoError(t, store.UploadDirectory(context.Background(), failedBuild.Ref, "allure-results", src))
	env.opts.Artifacts = store
	env.opts.Outcomes = store

	first := env.run(t, failedBuild, settings.PlanConfig{})
	require.True(t, first.Outcome.Success, first.Outcome.Message)
	require.True(t, store.HasBuild(failedBuild.Ref))
	reportDir, err := store.ArtifactDir(failedBuild.Ref, DefaultArtifactName)
	require.NoError(t, err)
	require.FileExists(t, filepath.Join(reportDir, "index.html"))

	env.gen.inputs = nil
	second := env.run(t, failedBuild, settings.PlanConfig{})
	require.True(t, second.Outcome.Success, second.Outcome.Message)
	require.Len(t, env.gen.inputs, 1)
	assert.Equal(t, "a", env.gen.inputs[0]["a-result.json"])
	assert.NotContains(t, env.gen.inputs[0], "index.html")
}

func TestRun_PassesReportNameAsExclude(t *testing.T) {
	env := newTestEnv(t)
	env.store.artifacts[DefaultArtifactName] = map[string]string{"index.html": "<html/>"}
	env.run(t, failedBuild, settings.PlanConfig{})
	require.Len(t, env.gen.inputs, 1)
	assert.Equal(t, map[string]string{
		"a-result.json":        "a",
		executorinfo.FileName: env.gen.inputs[0][executorinfo.FileName],
	}, env.gen.inputs[0])
}

type panickingSink struct{}

func (panickingSink) PutCustomData(context.Context, buildref.Ref, map[string]string) error {
	panic("assignment to entry in nil map")
}

type panickingSettings struct{}

func (panickingSettings) GlobalSettings() settings.Global {
	panic("settings unavailable")
}

func TestRun_PanicOutsideGenerateIsRecovered(t *testing.T) {
	t.Run("record", func(t *testing.T) {
		env := newTestEnv(t)
		env.opts.Outcomes = panickingSink{}
		var result Result
		require.NotPanics(t, func() {
			result = env.run(t, failedBuild, settings.PlanConfig{})
		})
		assert.False(t, result.Outcome.Success)
		assert.Contains(t, result.Outcome.Message, "assignment to entry in nil map")
		assert.Error(t, result.RecordErr)
	})
	t.Run("settings", func(t *testing.T) {
		env := newTestEnv(t)
		env.opts.Settings = panickingSettings{}
		var result Result
		require.NotPanics(t, func() {
			result = env.run(t, failedBuild, settings.PlanConfig{})
		})
		assert.False(t, result.Outcome.Success)
		assert.Contains(t, result.Outcome.Message, "settings unavailable")
		assert.Zero(t, env.gen.calls)
	})
}

type failingAttacher struct{}

func (failingAttacher) Attach(context.Context, []string, string, uint) (history.Attachment, errutil.Slice) {
	return history.Attachment{}, errutil.Slice{errors.New("copy failed")}
}

func readTree(dir string) map[string]string {
	files := map[string]string{}
	filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return err
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		b, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		files[filepath.ToSlash(rel)] = string(b)
		return nil
	})
	return files
}

func sortedKeys(m map[string]map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
