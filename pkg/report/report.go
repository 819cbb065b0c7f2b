// Package report runs the post-build report pipeline: it decides if a report
// should be generated for a finished build, gathers the build's results and
// history, runs Allure, and publishes the report together with the outcome.
package report

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/iver-wharf/wharf-allure/internal/errutil"
	"github.com/iver-wharf/wharf-allure/pkg/allure"
	"github.com/iver-wharf/wharf-allure/pkg/buildref"
	"github.com/iver-wharf/wharf-allure/pkg/executorinfo"
	"github.com/iver-wharf/wharf-allure/pkg/history"
	"github.com/iver-wharf/wharf-allure/pkg/outcome"
	"github.com/iver-wharf/wharf-allure/pkg/settings"
	"github.com/iver-wharf/wharf-core/v2/pkg/logger"
)

var log = logger.NewScoped("REPORT")

// DefaultArtifactName is the artifact name that generated reports are
// uploaded as.
const DefaultArtifactName = "allure-report"

// Outcome messages.
const (
	SuccessMessage     = "Allure report generated successfully"
	NoArtifactsMessage = "Build result does not have any uploaded artifacts!"
)

// ErrNoExecutable is recorded when neither the plan nor the global settings
// select an Allure executable.
var ErrNoExecutable = errors.New("no allure executable configured")

// ArtifactStore downloads and uploads the artifacts of a build result.
type ArtifactStore interface {
	DownloadArtifacts(ctx context.Context, ref buildref.Ref, destDir, nameFilter string, exclude ...string) ([]string, error)
	UploadDirectory(ctx context.Context, ref buildref.Ref, name, dir string) error
}

// Executables looks up Allure executables by name, such as an
// allure.Registry.
type Executables interface {
	Provide(name string) (allure.Generator, error)
}

// HistoryAttacher attaches history from prior builds into result
// directories, such as a history.Resolver.
type HistoryAttacher interface {
	Attach(ctx context.Context, dirs []string, planKey string, number uint) (history.Attachment, errutil.Slice)
}

// Options for an Orchestrator. All services are required except History,
// which when nil leaves the reports without trend history.
type Options struct {
	// BaseURL is the root URL of the host that serves the reports.
	BaseURL     string
	Settings    settings.Provider
	Artifacts   ArtifactStore
	History     HistoryAttacher
	Executables Executables
	Outcomes    outcome.Sink
	// ArtifactName is what the generated report is uploaded as. Defaults
	// to DefaultArtifactName.
	ArtifactName string
	// TempDir is where scratch directories are created. Empty means the
	// system default.
	TempDir string
	// Timeout bounds each run. Zero means no timeout.
	Timeout time.Duration
}

// Result of one run.
type Result struct {
	// Skipped is true if the report policy did not ask for a report. No
	// outcome is recorded for skipped runs.
	Skipped bool
	// Outcome is the recorded outcome of runs that were not skipped.
	Outcome outcome.Outcome
	// Warnings are failures that did not fail the run, such as being unable
	// to copy history or executor info into one of the result directories.
	Warnings errutil.Slice
	// RecordErr is set if the outcome could not be recorded.
	RecordErr error
}

// Orchestrator runs the report pipeline. It holds no state between runs and
// is safe for concurrent use.
type Orchestrator struct {
	opts Options
}

// New creates a new orchestrator.
func New(opts Options) *Orchestrator {
	if opts.ArtifactName == "" {
		opts.ArtifactName = DefaultArtifactName
	}
	if opts.Settings == nil {
		opts.Settings = settings.Static{}
	}
	return &Orchestrator{opts: opts}
}

// Run generates and publishes the report of a finished build, if its policy
// asks for one. Run never returns an error: every failure ends up as a
// recorded failure outcome. Panics are recovered, and one that happens while
// recording leaves RecordErr set. All scratch directories are removed before
// Run returns.
func (o *Orchestrator) Run(ctx context.Context, build buildref.Build, plan settings.PlanConfig) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().
				WithStringer("build", build.Ref).
				WithStringf("panic", "%v", r).
				Message("Recovered from panic outside report generation.")
			msg := fmt.Sprintf("report run panicked: %v", r)
			result = Result{
				Outcome:   outcome.Failure(msg),
				Warnings:  result.Warnings,
				RecordErr: errors.New(msg),
			}
		}
	}()
	global := o.opts.Settings.GlobalSettings()
	policy := settings.Resolve(global, plan)
	if !policy.ShouldRun(build.Failed) {
		log.Debug().
			WithStringer("build", build.Ref).
			WithBool("enabled", policy.Enabled).
			WithBool("failedOnly", policy.FailedOnly).
			WithBool("failed", build.Failed).
			Message("Skipping report.")
		return Result{Skipped: true}
	}

	runCtx := ctx
	if o.opts.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, o.opts.Timeout)
		defer cancel()
	}
	start := time.Now()
	out, warnings := o.generate(runCtx, build, policy, global)
	for _, w := range warnings {
		log.Warn().
			WithStringer("build", build.Ref).
			WithString("warning", errutil.Format(w)).
			Message("Report generated with warnings.")
	}

	result = Result{Outcome: out, Warnings: warnings}
	if err := outcome.Record(ctx, o.opts.Outcomes, build.Ref, out); err != nil {
		log.Error().
			WithError(err).
			WithStringer("build", build.Ref).
			Message("Failed to record report outcome.")
		result.RecordErr = err
	}
	ev := log.Info()
	if !out.Success {
		ev = log.Warn()
	}
	ev.WithStringer("build", build.Ref).
		WithBool("success", out.Success).
		WithDuration("duration", time.Since(start)).
		WithString("message", out.Message).
		Message("Report run done.")
	return result
}

func (o *Orchestrator) generate(ctx context.Context, build buildref.Build, policy settings.Policy, global settings.Global) (out outcome.Outcome, warnings errutil.Slice) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().
				WithStringer("build", build.Ref).
				WithStringf("panic", "%v", r).
				Message("Recovered from panic in report run.")
			out = outcome.Failure(fmt.Sprintf("report run panicked: %v", r))
		}
	}()

	artifactsDir, err := os.MkdirTemp(o.opts.TempDir, "wharf-allure-artifacts-")
	if err != nil {
		return outcome.Failure(fmt.Sprintf("create artifacts scratch dir: %v", err)), nil
	}
	defer removeScratch(artifactsDir)
	reportDir, err := os.MkdirTemp(o.opts.TempDir, "wharf-allure-report-")
	if err != nil {
		return outcome.Failure(fmt.Sprintf("create report scratch dir: %v", err)), nil
	}
	defer removeScratch(reportDir)

	gen, err := o.provideGenerator(policy, global)
	if err != nil {
		return outcome.Failure(err.Error()), nil
	}

	// The report of an earlier run of this build is not a result dir.
	dirs, err := o.opts.Artifacts.DownloadArtifacts(ctx, build.Ref, artifactsDir, policy.ArtifactName, o.opts.ArtifactName)
	if err != nil {
		return outcome.Failure(fmt.Sprintf("download artifacts: %v", err)), nil
	}
	if len(dirs) == 0 {
		return outcome.Failure(NoArtifactsMessage), nil
	}

	if o.opts.History != nil {
		_, errs := o.opts.History.Attach(ctx, dirs, build.PlanKey, build.Number)
		warnings.Add(errs...)
	}
	info := executorinfo.New(o.opts.BaseURL, build)
	warnings.Add(executorinfo.Stamp(dirs, info)...)

	if err := gen.Generate(ctx, dirs, reportDir); err != nil {
		return outcome.Failure(fmt.Sprintf("generate report: %v", err)), warnings
	}
	if err := o.opts.Artifacts.UploadDirectory(ctx, build.Ref, o.opts.ArtifactName, reportDir); err != nil {
		return outcome.Failure(fmt.Sprintf("upload report: %v", err)), warnings
	}
	return outcome.Success(SuccessMessage), warnings
}

func (o *Orchestrator) provideGenerator(policy settings.Policy, global settings.Global) (allure.Generator, error) {
	name := policy.Executable
	if name == "" {
		name = global.DefaultExecutable
	}
	if name == "" {
		return nil, ErrNoExecutable
	}
	return o.opts.Executables.Provide(name)
}

func removeScratch(dir string) {
	if err := os.RemoveAll(dir); err != nil {
		log.Warn().
			WithError(err).
			WithString("dir", dir).
			Message("Failed to remove scratch dir.")
	}
}
