package reportserver

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/iver-wharf/wharf-allure/internal/ziputil"
	"github.com/iver-wharf/wharf-allure/pkg/buildref"
	"github.com/iver-wharf/wharf-allure/pkg/outcome"
	"github.com/iver-wharf/wharf-allure/pkg/settings"
	"github.com/iver-wharf/wharf-core/v2/pkg/ginutil"
	"github.com/iver-wharf/wharf-core/v2/pkg/problem"
)

type buildModule struct {
	server *Server
}

func (m buildModule) register(g *gin.RouterGroup) {
	g.GET("/build/:planKey/:buildNumber/outcome", m.getOutcomeHandler)
	g.GET("/build/:planKey/:buildNumber/report", m.downloadReportHandler)
	g.POST("/build/:planKey/:buildNumber/report", m.runReportHandler)
}

// RunRequest is the body of a POST /api/build/{planKey}/{buildNumber}/report
// request, sent when a build has finished.
type RunRequest struct {
	BuildName string              `json:"buildName"`
	Failed    bool                `json:"failed"`
	Config    settings.PlanConfig `json:"config"`
}

// RunResponse is the result of a report run.
type RunResponse struct {
	Skipped     bool             `json:"skipped"`
	Outcome     *outcome.Outcome `json:"outcome,omitempty"`
	Warnings    []string         `json:"warnings,omitempty"`
	RecordError string           `json:"recordError,omitempty"`
}

func (m buildModule) getOutcomeHandler(c *gin.Context) {
	ref, ok := bindBuildRef(c)
	if !ok {
		return
	}
	data, err := m.server.store.ReadCustomData(c.Request.Context(), ref)
	if err != nil {
		ginutil.WriteDBNotFound(c, fmt.Sprintf("Unable to find build %s.", ref))
		return
	}
	o, ok := outcome.Read(data)
	if !ok {
		ginutil.WriteDBNotFound(c, fmt.Sprintf("No report outcome recorded for build %s.", ref))
		return
	}
	c.JSON(http.StatusOK, o)
}

func (m buildModule) runReportHandler(c *gin.Context) {
	ref, ok := bindBuildRef(c)
	if !ok {
		return
	}
	var req RunRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		ginutil.WriteInvalidBindError(c, err, "Failed to parse the build completion event from the request body.")
		return
	}
	if !m.server.inProgress.Add(ref) {
		writeConflict(c, fmt.Sprintf("A report run is already in progress for build %s.", ref))
		return
	}
	defer m.server.inProgress.Remove(ref)

	build := buildref.Build{Ref: ref, Name: req.BuildName, Failed: req.Failed}
	result := m.server.runner.Run(c.Request.Context(), build, req.Config)
	res := RunResponse{
		Skipped:  result.Skipped,
		Warnings: result.Warnings.Strings(),
	}
	if !result.Skipped {
		res.Outcome = &result.Outcome
	}
	if result.RecordErr != nil {
		res.RecordError = result.RecordErr.Error()
	}
	c.JSON(http.StatusOK, res)
}

func (m buildModule) downloadReportHandler(c *gin.Context) {
	ref, ok := bindBuildRef(c)
	if !ok {
		return
	}
	dir, err := m.server.store.ArtifactDir(ref, m.server.opts.ArtifactName)
	if err != nil {
		ginutil.WriteDBNotFound(c, fmt.Sprintf("Unable to find report of build %s.", ref))
		return
	}
	tmpDir, err := os.MkdirTemp(m.server.opts.TempDir, "wharf-allure-download-")
	if err != nil {
		c.Error(err)
		c.Status(http.StatusInternalServerError)
		return
	}
	defer os.RemoveAll(tmpDir)
	archive := filepath.Join(tmpDir, "report.zip")
	if err := ziputil.Pack(dir, archive); err != nil {
		c.Error(err)
		c.Status(http.StatusInternalServerError)
		return
	}
	c.FileAttachment(archive, fmt.Sprintf("%s-%s.zip", ref, m.server.opts.ArtifactName))
}

func writeConflict(c *gin.Context, detail string) {
	c.Header("Content-Type", problem.HTTPContentType)
	c.JSON(http.StatusConflict, problem.Response{
		Type:   "/prob/api/report/already-running",
		Title:  "Report already running.",
		Status: http.StatusConflict,
		Detail: detail,
	})
}
