package buildref

import (
	"errors"
	"fmt"
	"strings"
)

// ReportPathPrefix is the URL path under which generated reports are served.
// History files of a build are found under
// {ReportPathPrefix}/{planKey}/{buildNumber}/history/{fileName}.
const ReportPathPrefix = "/plugins/servlet/allure/report"

// Errors returned when validating build references.
var (
	ErrEmptyPlanKey    = errors.New("plan key cannot be empty")
	ErrInvalidPlanKey  = errors.New("plan key contains illegal characters")
	ErrZeroBuildNumber = errors.New("build number must be positive")
)

// Ref identifies one build result: a plan key paired with a build number.
type Ref struct {
	PlanKey string `json:"planKey"`
	Number  uint   `json:"buildNumber"`
}

// String returns the build result key, e.g "PROJ-PLAN-42".
func (r Ref) String() string {
	return fmt.Sprintf("%s-%d", r.PlanKey, r.Number)
}

// Validate returns an error if the plan key or build number is unusable.
// Plan keys are used as directory names and URL segments, so path
// separators are not allowed.
func (r Ref) Validate() error {
	if r.PlanKey == "" {
		return ErrEmptyPlanKey
	}
	if r.PlanKey == "." || r.PlanKey == ".." ||
		strings.ContainsAny(r.PlanKey, `/\`) {
		return fmt.Errorf("%w: %q", ErrInvalidPlanKey, r.PlanKey)
	}
	if r.Number == 0 {
		return ErrZeroBuildNumber
	}
	return nil
}

// Build is a completed build execution, as handed to the report pipeline.
type Build struct {
	Ref
	// Name is the human readable name of the build plan.
	Name string `json:"buildName"`
	// Failed is true if the build did not succeed.
	Failed bool `json:"failed"`
}

// BuildURL returns the URL to the build result page, e.g
// "https://ci.example.com/browse/PROJ-PLAN-42".
func BuildURL(baseURL string, ref Ref) string {
	return fmt.Sprintf("%s/browse/%s-%d", trimBase(baseURL), ref.PlanKey, ref.Number)
}

// ReportURL returns the URL to the build's generated report, with a
// trailing slash.
func ReportURL(baseURL string, ref Ref) string {
	return fmt.Sprintf("%s%s/%s/%d/", trimBase(baseURL), ReportPathPrefix, ref.PlanKey, ref.Number)
}

// HistoryFileURL returns the URL of a history file inside the build's
// generated report.
func HistoryFileURL(baseURL string, ref Ref, fileName string) string {
	return ReportURL(baseURL, ref) + "history/" + fileName
}

func trimBase(baseURL string) string {
	return strings.TrimSuffix(baseURL, "/")
}
