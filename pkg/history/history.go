// Package history carries Allure's trend history over from the nearest prior
// build that has any, so that the trend graphs of a newly generated report
// continue from the previous report.
package history

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/iver-wharf/wharf-allure/internal/errutil"
	"github.com/iver-wharf/wharf-allure/internal/filecopy"
	"github.com/iver-wharf/wharf-allure/internal/parallel"
	"github.com/iver-wharf/wharf-allure/pkg/buildref"
	"github.com/iver-wharf/wharf-core/v2/pkg/logger"
)

var log = logger.NewScoped("HISTORY")

// Names of the history files inside a generated report's history directory.
const (
	FileHistory      = "history.json"
	FileHistoryTrend = "history-trend.json"
)

// DirName is the name of the history directory inside both generated reports
// and Allure result directories.
const DirName = "history"

// Files are the history files that are carried over between reports. The
// first file is the one used to decide if a build has any history at all.
var Files = []string{FileHistory, FileHistoryTrend}

// ErrFileNotFound is returned by a Source when a history file is missing.
var ErrFileNotFound = errors.New("history file not found")

// Index looks up the previous build of a plan.
type Index interface {
	// FindPriorBuild returns the nearest build number lower than the given
	// one. The boolean is false if there is no such build.
	FindPriorBuild(ctx context.Context, planKey string, before uint) (uint, bool, error)
}

// Source gives access to the history files of previously generated reports.
type Source interface {
	// HasHistory returns true if the build's report contains history.
	HasHistory(ctx context.Context, ref buildref.Ref) (bool, error)
	// FetchFile writes one history file of the build's report to w. Returns
	// ErrFileNotFound if the report does not have that file.
	FetchFile(ctx context.Context, ref buildref.Ref, file string, w io.Writer) error
}

// Options for a Resolver.
type Options struct {
	// MaxDepth is the maximum number of prior builds to look at. Zero or less
	// means no limit.
	MaxDepth int
	// Concurrency is the maximum number of artifact directories that the
	// history is copied into at the same time. Zero or less means no limit.
	Concurrency int
	// TempDir is where scratch directories are created. Empty means the
	// system default.
	TempDir string
}

// Attachment describes what history, if any, was attached.
type Attachment struct {
	// Found is true if a prior build with history was found.
	Found bool
	// Source is the build that the history was taken from.
	Source buildref.Ref
	// Files are the names of the history files that were fetched.
	Files []string
}

// Resolver finds and attaches history from prior builds.
type Resolver struct {
	index  Index
	source Source
	opts   Options
}

// NewResolver creates a new resolver.
func NewResolver(index Index, source Source, opts Options) *Resolver {
	return &Resolver{index: index, source: source, opts: opts}
}

// FindSource walks backwards from the given build number and returns the
// nearest prior build whose report has history. Lookup and probe errors are
// logged and never returned: an index error ends the walk, while a probe
// error only skips that build.
func (r *Resolver) FindSource(ctx context.Context, planKey string, number uint) (buildref.Ref, bool) {
	current := number
	for depth := 1; r.opts.MaxDepth <= 0 || depth <= r.opts.MaxDepth; depth++ {
		if ctx.Err() != nil {
			log.Warn().WithError(ctx.Err()).Message("Aborted history lookup.")
			return buildref.Ref{}, false
		}
		prior, ok, err := r.index.FindPriorBuild(ctx, planKey, current)
		if err != nil {
			log.Warn().
				WithError(err).
				WithString("plan", planKey).
				WithStringf("before", "%d", current).
				Message("Failed to look up prior build. Continuing without history.")
			return buildref.Ref{}, false
		}
		if !ok || prior >= current {
			return buildref.Ref{}, false
		}
		ref := buildref.Ref{PlanKey: planKey, Number: prior}
		has, err := r.source.HasHistory(ctx, ref)
		if err != nil {
			log.Info().
				WithError(err).
				WithStringer("build", ref).
				Message("Failed to check for history. Skipping build.")
		} else if has {
			log.Debug().WithStringer("build", ref).Message("Found build with history.")
			return ref, true
		}
		current = prior
	}
	log.Info().
		WithString("plan", planKey).
		WithInt("maxDepth", r.opts.MaxDepth).
		Message("Reached max history lookup depth.")
	return buildref.Ref{}, false
}

// Attach copies the history of the nearest prior build with history into a
// "history" subdirectory of every given directory. The "history"
// subdirectories are created even if no history was found.
//
// Failures to copy into a directory are returned scoped by that directory,
// and do not stop the history from being copied into the other directories.
func (r *Resolver) Attach(ctx context.Context, dirs []string, planKey string, number uint) (Attachment, errutil.Slice) {
	var att Attachment
	var errs errutil.Slice

	scratch, err := os.MkdirTemp(r.opts.TempDir, "wharf-allure-history-")
	if err != nil {
		errs.Add(fmt.Errorf("create history scratch dir: %w", err))
		return att, errs
	}
	defer os.RemoveAll(scratch)

	if src, ok := r.FindSource(ctx, planKey, number); ok {
		att.Found = true
		att.Source = src
		att.Files = r.fetchAll(ctx, src, scratch)
	}

	var g parallel.Group
	for _, dir := range dirs {
		dst := filepath.Join(dir, DirName)
		g.AddFunc(dir, func(context.Context) error {
			return filecopy.CopyDir(dst, scratch)
		})
	}
	errs.Add(g.RunAll(ctx, r.opts.Concurrency)...)
	return att, errs
}

func (r *Resolver) fetchAll(ctx context.Context, src buildref.Ref, dir string) []string {
	var fetched []string
	for _, file := range Files {
		err := r.fetch(ctx, src, file, filepath.Join(dir, file))
		if err != nil {
			log.Info().
				WithError(err).
				WithStringer("build", src).
				WithString("file", file).
				Message("Skipping history file.")
			continue
		}
		fetched = append(fetched, file)
	}
	return fetched
}

func (r *Resolver) fetch(ctx context.Context, src buildref.Ref, file, dst string) error {
	f, err := os.Create(dst)
	if err != nil {
		return err
	}
	if err := r.source.FetchFile(ctx, src, file, f); err != nil {
		f.Close()
		os.Remove(dst)
		return err
	}
	return f.Close()
}
