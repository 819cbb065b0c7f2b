package executorinfo

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/iver-wharf/wharf-allure/internal/errutil"
	"github.com/iver-wharf/wharf-allure/pkg/buildref"
	"github.com/iver-wharf/wharf-core/v2/pkg/logger"
)

var log = logger.NewScoped("EXECUTOR-INFO")

// FileName is the name of the file that Allure reads executor info from.
const FileName = "executor.json"

// ExecutorType is written as the executor type in the generated report.
const ExecutorType = "wharf"

// Info describes which system and build produced a report.
type Info struct {
	RootURL     string
	BuildNumber string
	BuildName   string
	BuildURL    string
	ReportURL   string
}

// New derives the executor info of a build from the CI base URL.
func New(baseURL string, build buildref.Build) Info {
	return Info{
		RootURL:     baseURL,
		BuildNumber: strconv.FormatUint(uint64(build.Number), 10),
		BuildName:   build.Name,
		BuildURL:    buildref.BuildURL(baseURL, build.Ref),
		ReportURL:   buildref.ReportURL(baseURL, build.Ref),
	}
}

// file is the executor.json format understood by Allure.
type file struct {
	Name       string `json:"name"`
	Type       string `json:"type"`
	URL        string `json:"url"`
	BuildOrder string `json:"buildOrder"`
	BuildName  string `json:"buildName"`
	BuildURL   string `json:"buildUrl"`
	ReportURL  string `json:"reportUrl"`
	ReportName string `json:"reportName"`
}

func (i Info) file() file {
	return file{
		Name:       "Wharf",
		Type:       ExecutorType,
		URL:        i.RootURL,
		BuildOrder: i.BuildNumber,
		BuildName:  i.BuildName,
		BuildURL:   i.BuildURL,
		ReportURL:  i.ReportURL,
		ReportName: "Allure Report",
	}
}

// Stamp writes the executor info into each of the directories. A failure for
// one directory does not stop the others; all failures are returned, scoped
// by directory.
func Stamp(dirs []string, info Info) errutil.Slice {
	data, err := json.MarshalIndent(info.file(), "", "  ")
	if err != nil {
		return errutil.Slice{fmt.Errorf("marshal executor info: %w", err)}
	}
	var errs errutil.Slice
	for _, dir := range dirs {
		path := filepath.Join(dir, FileName)
		if err := os.WriteFile(path, data, 0644); err != nil {
			log.Warn().
				WithString("path", path).
				WithError(err).
				Message("Failed to write executor info.")
			errs.Add(errutil.Scope(err, dir))
			continue
		}
		log.Debug().WithString("path", path).Message("Wrote executor info.")
	}
	return errs
}
