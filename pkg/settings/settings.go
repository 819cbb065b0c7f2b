package settings

import (
	"gopkg.in/guregu/null.v4"
)

// Global holds the server-wide report settings.
type Global struct {
	// EnabledByDefault is used for plans that have not explicitly enabled or
	// disabled report generation.
	EnabledByDefault bool
	// DefaultExecutable is the name of the Allure executable used for plans
	// that have not selected one.
	DefaultExecutable string
}

// Provider returns the global settings.
type Provider interface {
	GlobalSettings() Global
}

// Static is a Provider that always returns the same settings.
type Static Global

// GlobalSettings implements Provider.
func (s Static) GlobalSettings() Global {
	return Global(s)
}

// PlanConfig is the per-plan configuration as stored by the host, before any
// global defaults have been applied.
type PlanConfig struct {
	// Enabled is unset when the plan relies on the global default.
	Enabled null.Bool `json:"enabled" yaml:"enabled"`
	// FailedOnly is unset when the plan relies on the default of true.
	FailedOnly null.Bool `json:"failedOnly" yaml:"failed-only"`
	// Executable is the name of the Allure executable to use. Empty means
	// the global default.
	Executable string `json:"executable" yaml:"executable"`
	// ArtifactName limits which artifacts are used as report input. Empty
	// means all artifacts.
	ArtifactName string `json:"artifactName" yaml:"artifact-name"`
}

// Policy is the resolved report policy for a single build.
type Policy struct {
	Enabled      bool
	FailedOnly   bool
	Executable   string
	ArtifactName string
}

// DefaultFailedOnly is used when the plan has not set failed-only.
const DefaultFailedOnly = true

// Resolve merges the per-plan configuration with the global settings.
//
// The executable is kept as configured on the plan; falling back to the
// global default executable is done when the report run starts, as a
// missing executable is a failure of that run.
func Resolve(global Global, plan PlanConfig) Policy {
	return Policy{
		Enabled:      plan.Enabled.ValueOrZero() || (!plan.Enabled.Valid && global.EnabledByDefault),
		FailedOnly:   plan.FailedOnly.ValueOrZero() || (!plan.FailedOnly.Valid && DefaultFailedOnly),
		Executable:   plan.Executable,
		ArtifactName: plan.ArtifactName,
	}
}

// ShouldRun returns true if a report should be generated for a build with the
// given failure status.
func (p Policy) ShouldRun(buildFailed bool) bool {
	if !p.Enabled {
		return false
	}
	if p.FailedOnly && !buildFailed {
		return false
	}
	return true
}
