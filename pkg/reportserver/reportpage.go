package reportserver

import (
	"fmt"
	"net/http"
	"path"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/iver-wharf/wharf-core/v2/pkg/ginutil"
)

const indexFileName = "index.html"

type reportPageModule struct {
	store        Store
	artifactName string
}

func (m reportPageModule) register(g *gin.RouterGroup) {
	g.GET("/:planKey/:buildNumber/*filepath", m.getReportFileHandler)
	g.HEAD("/:planKey/:buildNumber/*filepath", m.getReportFileHandler)
}

// getReportFileHandler serves one file of a generated report. Redirects are
// never used, as the history probe treats them as missing history.
func (m reportPageModule) getReportFileHandler(c *gin.Context) {
	ref, ok := bindBuildRef(c)
	if !ok {
		return
	}
	relPath := strings.TrimPrefix(path.Clean("/"+c.Param("filepath")), "/")
	if relPath == "" || strings.HasSuffix(c.Param("filepath"), "/") {
		relPath = path.Join(relPath, indexFileName)
	}
	file, err := m.store.OpenArtifactFile(ref, m.artifactName, relPath)
	if err != nil {
		ginutil.WriteDBNotFound(c, fmt.Sprintf("Unable to find %q in report of build %s.", relPath, ref))
		return
	}
	defer file.Close()
	stat, err := file.Stat()
	if err != nil {
		ginutil.WriteDBNotFound(c, fmt.Sprintf("Unable to find %q in report of build %s.", relPath, ref))
		return
	}
	http.ServeContent(c.Writer, c.Request, stat.Name(), stat.ModTime(), file)
}
