package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/iver-wharf/wharf-allure/pkg/settings"
	"github.com/iver-wharf/wharf-core/v2/pkg/config"
)

// Config holds all configurable settings for wharf-allure.
//
// The config is read in the following order:
//
// 1. File: ~/.config/iver-wharf/wharf-allure/wharf-allure-config.yml
//
// 2. File: ./wharf-allure-config.yml
//
// 3. File from environment variable: WHARF_ALLURE_CONFIG
//
// 4. Environment variables, prefixed with WHARF_ALLURE
//
// Each inner struct is represented as a deeper field in the different
// configurations. For YAML they represent deeper nested maps. For environment
// variables they are joined together by underscores.
//
// All environment variables must be uppercased, while YAML files are
// case-insensitive. Keeping camelCasing in YAML config files is recommended
// for consistency.
type Config struct {
	Server  ServerConfig
	Store   StoreConfig
	Allure  AllureConfig
	History HistoryConfig
	Report  ReportConfig
}

// ServerConfig holds settings for the report server.
type ServerConfig struct {
	HTTP HTTPConfig

	// BaseURL is the public root URL of the report server. It is used when
	// building the report and build URLs written into each report, and as
	// the base URL when probing for history over HTTP.
	BaseURL string
}

// HTTPConfig holds settings for the HTTP server.
type HTTPConfig struct {
	CORS CORSConfig

	// BindAddress is the IP-address and port, separated by a colon, to bind
	// the HTTP server to. An IP-address of 0.0.0.0 will bind to all
	// IP-addresses.
	BindAddress string
}

// CORSConfig holds settings for the HTTP server's CORS settings.
type CORSConfig struct {
	// AllowAllOrigins enables CORS and allows all hostnames and URLs in the
	// HTTP request origins when set to true. Practically speaking, this
	// results in the HTTP header "Access-Control-Allow-Origin" set to "*".
	AllowAllOrigins bool

	// AllowOrigins enables CORS and allows the list of origins in the
	// HTTP request origins when set. Practically speaking, this
	// results in the HTTP header "Access-Control-Allow-Origin".
	AllowOrigins []string
}

// StoreConfig holds settings for the build result store.
type StoreConfig struct {
	// Dir is the root directory of the build result store.
	Dir string
}

// AllureConfig holds the global report settings.
type AllureConfig struct {
	// EnabledByDefault enables report generation for plans that have not
	// explicitly enabled or disabled it.
	EnabledByDefault bool

	// DefaultExecutable is the name of the executable used for plans that
	// have not selected one. Must be a key in Executables.
	DefaultExecutable string

	// Executables maps executable names to Allure installation directories.
	// An empty directory means the allure binary is looked up from the PATH.
	Executables map[string]string
}

// GlobalSettings implements settings.Provider.
func (c AllureConfig) GlobalSettings() settings.Global {
	return settings.Global{
		EnabledByDefault:  c.EnabledByDefault,
		DefaultExecutable: c.DefaultExecutable,
	}
}

// HistoryIndex is a kind of build history index.
type HistoryIndex string

// Build history indexes.
const (
	// HistoryIndexStore finds prior builds in the build result store.
	HistoryIndexStore HistoryIndex = "store"
	// HistoryIndexWharfAPI finds prior builds through the Wharf API.
	HistoryIndexWharfAPI HistoryIndex = "wharfapi"
)

// HistorySource is a kind of history file source.
type HistorySource string

// History file sources.
const (
	// HistorySourceStore reads history straight from the build result store.
	HistorySourceStore HistorySource = "store"
	// HistorySourceHTTP probes and fetches history from the report server.
	HistorySourceHTTP HistorySource = "http"
)

// HistoryConfig holds settings for carrying over history between reports.
type HistoryConfig struct {
	// Index selects how prior builds are found. One of "store" or
	// "wharfapi".
	Index HistoryIndex

	// Source selects where history files are read from. One of "store" or
	// "http".
	Source HistorySource

	// WharfAPIURL is the URL used to connect to Wharf API, when using the
	// "wharfapi" index.
	WharfAPIURL string

	// ProbeTimeout is the timeout of each HTTP request when using the "http"
	// source.
	ProbeTimeout time.Duration

	// MaxDepth is the maximum number of prior builds to look at. Zero means
	// no limit.
	MaxDepth int
}

// ReportConfig holds settings for each report run.
type ReportConfig struct {
	// Timeout bounds each report run. Zero means no timeout.
	Timeout time.Duration

	// Concurrency is the maximum number of result directories that history
	// is copied into at the same time.
	Concurrency int

	// ArtifactName is the artifact name that generated reports are uploaded as.
	ArtifactName string

	// TempDir is where scratch directories are created. Empty means the
	// system default.
	TempDir string
}

// DefaultConfig is the hard-coded default values for wharf-allure's configs.
var DefaultConfig = Config{
	Server: ServerConfig{
		HTTP: HTTPConfig{
			CORS: CORSConfig{
				AllowAllOrigins: false,
				AllowOrigins:    []string{},
			},
			BindAddress: "0.0.0.0:5010",
		},
		BaseURL: "http://localhost:5010",
	},
	Store: StoreConfig{
		Dir: "wharf-allure-results",
	},
	Allure: AllureConfig{
		EnabledByDefault:  false,
		DefaultExecutable: "allure",
		Executables: map[string]string{
			"allure": "",
		},
	},
	History: HistoryConfig{
		Index:        HistoryIndexStore,
		Source:       HistorySourceStore,
		WharfAPIURL:  "http://wharf-api:8080",
		ProbeTimeout: 10 * time.Second,
		MaxDepth:     0,
	},
	Report: ReportConfig{
		Timeout:      10 * time.Minute,
		Concurrency:  4,
		ArtifactName: "allure-report",
	},
}

// LoadConfig looks for, parses and validates the config and returns it as a
// Config object.
func LoadConfig() (Config, error) {
	cfgBuilder := config.NewBuilder(DefaultConfig)

	cfgBuilder.AddConfigYAMLFile("~/.config/iver-wharf/wharf-allure/wharf-allure-config.yml")
	cfgBuilder.AddConfigYAMLFile("wharf-allure-config.yml")
	if cfgFile, ok := os.LookupEnv("WHARF_ALLURE_CONFIG"); ok {
		cfgBuilder.AddConfigYAMLFile(cfgFile)
	}
	cfgBuilder.AddEnvironmentVariables("WHARF_ALLURE")

	var cfg Config
	if err := cfgBuilder.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if ok := validateHistoryIndex(&c.History.Index); !ok {
		return fmt.Errorf("invalid history index: history.index=%s", c.History.Index)
	}
	if ok := validateHistorySource(&c.History.Source); !ok {
		return fmt.Errorf("invalid history source: history.source=%s", c.History.Source)
	}
	if c.Allure.DefaultExecutable != "" {
		if _, ok := c.Allure.Executables[c.Allure.DefaultExecutable]; !ok {
			return fmt.Errorf("default executable not in executables: allure.defaultExecutable=%s", c.Allure.DefaultExecutable)
		}
	}
	if c.Report.Concurrency < 0 {
		return fmt.Errorf("negative concurrency: report.concurrency=%d", c.Report.Concurrency)
	}
	if c.History.MaxDepth < 0 {
		return fmt.Errorf("negative max depth: history.maxDepth=%d", c.History.MaxDepth)
	}
	return nil
}

func validateHistoryIndex(i *HistoryIndex) bool {
	switch strings.ToLower(string(*i)) {
	case "store":
		*i = HistoryIndexStore
	case "wharfapi", "wharf-api":
		*i = HistoryIndexWharfAPI
	}
	switch *i {
	case HistoryIndexStore, HistoryIndexWharfAPI:
		return true
	}
	return false
}

func validateHistorySource(s *HistorySource) bool {
	switch strings.ToLower(string(*s)) {
	case "store":
		*s = HistorySourceStore
	case "http":
		*s = HistorySourceHTTP
	}
	switch *s {
	case HistorySourceStore, HistorySourceHTTP:
		return true
	}
	return false
}
