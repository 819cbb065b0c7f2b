// Package reportserver serves generated Allure reports over HTTP, and accepts
// build completion events that trigger new report runs.
//
// Reports are served below the same URL pattern that the HTTP history source
// probes, so a set of servers can read each other's history.
package reportserver

import (
	"context"
	"net/http"
	"os"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/iver-wharf/wharf-allure/pkg/buildref"
	"github.com/iver-wharf/wharf-allure/pkg/config"
	"github.com/iver-wharf/wharf-allure/pkg/report"
	"github.com/iver-wharf/wharf-allure/pkg/settings"
	"github.com/iver-wharf/wharf-core/v2/pkg/ginutil"
	"github.com/iver-wharf/wharf-core/v2/pkg/logger"
	"gopkg.in/typ.v4/sync2"
)

var log = logger.NewScoped("REPORT-SERVER")

// Runner runs the report pipeline for a finished build.
type Runner interface {
	Run(ctx context.Context, build buildref.Build, plan settings.PlanConfig) report.Result
}

// Store gives read access to stored build results.
type Store interface {
	ArtifactDir(ref buildref.Ref, name string) (string, error)
	OpenArtifactFile(ref buildref.Ref, name, relPath string) (*os.File, error)
	ReadCustomData(ctx context.Context, ref buildref.Ref) (map[string]string, error)
}

// Options for a Server.
type Options struct {
	HTTP config.HTTPConfig
	// ArtifactName is the artifact name that reports are uploaded as.
	ArtifactName string
	// TempDir is where report archives are staged before download.
	TempDir string
}

// Server is the report HTTP server.
type Server struct {
	runner     Runner
	store      Store
	opts       Options
	inProgress *sync2.Set[buildref.Ref]
}

// New creates a new server.
func New(runner Runner, store Store, opts Options) *Server {
	if opts.ArtifactName == "" {
		opts.ArtifactName = report.DefaultArtifactName
	}
	return &Server{
		runner:     runner,
		store:      store,
		opts:       opts,
		inProgress: &sync2.Set[buildref.Ref]{},
	}
}

// Handler returns the server's HTTP handler.
func (s *Server) Handler() http.Handler {
	gin.DefaultWriter = ginutil.DefaultLoggerWriter
	gin.DefaultErrorWriter = ginutil.DefaultLoggerWriter

	r := gin.New()
	r.Use(
		ginutil.DefaultLoggerHandler,
		ginutil.RecoverProblem,
	)
	applyCORS(r, s.opts.HTTP.CORS)

	r.GET("", pingHandler)
	reportPageModule{store: s.store, artifactName: s.opts.ArtifactName}.register(r.Group(buildref.ReportPathPrefix))
	buildModule{server: s}.register(r.Group("/api"))
	return r
}

// Serve starts the HTTP server and blocks until it fails.
func (s *Server) Serve() error {
	bindAddress := s.opts.HTTP.BindAddress
	log.Info().WithString("address", bindAddress).Message("Starting server.")
	if err := http.ListenAndServe(bindAddress, s.Handler()); err != nil {
		log.Error().
			WithError(err).
			WithString("address", bindAddress).
			Message("Failed to start web server.")
		return err
	}
	return nil
}

func applyCORS(r *gin.Engine, cfg config.CORSConfig) {
	if cfg.AllowAllOrigins {
		log.Info().Message("Allowing all origins in CORS.")
		corsConfig := cors.DefaultConfig()
		corsConfig.AllowAllOrigins = true
		r.Use(cors.New(corsConfig))
	} else if len(cfg.AllowOrigins) > 0 {
		log.Info().
			WithStringf("origin", "%v", cfg.AllowOrigins).
			Message("Allowing origins in CORS.")
		corsConfig := cors.DefaultConfig()
		corsConfig.AllowOrigins = cfg.AllowOrigins
		corsConfig.AddAllowHeaders("Authorization")
		corsConfig.AllowCredentials = true
		r.Use(cors.New(corsConfig))
	}
}

// Ping is the response from a GET / request.
type Ping struct {
	Message string `json:"message" example:"pong"`
}

func pingHandler(c *gin.Context) {
	c.JSON(http.StatusOK, Ping{Message: "pong"})
}

func bindBuildRef(c *gin.Context) (buildref.Ref, bool) {
	planKey, ok := ginutil.RequireParamString(c, "planKey")
	if !ok {
		return buildref.Ref{}, false
	}
	number, ok := ginutil.ParseParamUint(c, "buildNumber")
	if !ok {
		return buildref.Ref{}, false
	}
	ref := buildref.Ref{PlanKey: planKey, Number: number}
	if err := ref.Validate(); err != nil {
		ginutil.WriteInvalidParamError(c, err, "planKey", "Invalid build reference.")
		return buildref.Ref{}, false
	}
	return ref, true
}
