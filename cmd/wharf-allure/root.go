package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/iver-wharf/wharf-allure/internal/flagtypes"
	"github.com/iver-wharf/wharf-allure/pkg/config"
	"github.com/iver-wharf/wharf-core/v2/pkg/app"
	"github.com/iver-wharf/wharf-core/v2/pkg/logger"
	"github.com/iver-wharf/wharf-core/v2/pkg/logger/consolepretty"
	"github.com/spf13/cobra"
)

var log = logger.NewScoped("WHARF-ALLURE")

var isLoggingInitialized bool

var rootFlags = struct {
	loglevel flagtypes.LogLevel
	storeDir string
}{
	loglevel: flagtypes.LogLevel(logger.LevelInfo),
}

var rootConfig config.Config

var rootCmd = &cobra.Command{
	SilenceErrors: true,
	SilenceUsage:  true,
	Use:           "wharf-allure",
	Short:         "Generates Allure reports for finished builds",
	Long: `Generates Allure reports from the test results uploaded by finished
builds, carrying over the trend history from the nearest prior build, and
serves the generated reports over HTTP.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		initLoggingIfNeeded()
		cfg, err := config.LoadConfig()
		if err != nil {
			return err
		}
		if rootFlags.storeDir != "" {
			cfg.Store.Dir = rootFlags.storeDir
		}
		rootConfig = cfg
		return nil
	},
}

func execute(version app.Version) {
	rootCmd.Version = versionString(version)
	if err := rootCmd.Execute(); err != nil {
		initLoggingIfNeeded()
		log.Error().Message(err.Error())
		os.Exit(1)
	}
}

func versionString(v app.Version) string {
	var sb strings.Builder
	if v.Version != "" {
		sb.WriteString(v.Version)
	} else {
		sb.WriteString("v0.0.0")
	}
	if v.BuildRef != 0 {
		fmt.Fprintf(&sb, " #%d", v.BuildRef)
	}
	if v.BuildGitCommit != "" && v.BuildGitCommit != "HEAD" {
		fmt.Fprintf(&sb, " (%s)", v.BuildGitCommit)
	}
	if v.BuildDate != (time.Time{}) {
		sb.WriteString(" built ")
		sb.WriteString(v.BuildDate.Format(time.RFC1123))
	}
	return sb.String()
}

func init() {
	rootCmd.InitDefaultVersionFlag()
	rootCmd.PersistentFlags().VarP(&rootFlags.loglevel, "loglevel", "l", "Show debug information")
	rootCmd.RegisterFlagCompletionFunc("loglevel", flagtypes.CompleteLogLevel)
	rootCmd.PersistentFlags().StringVar(&rootFlags.storeDir, "store-dir", "", "Root directory of the build result store (overrides store.dir config)")
}

func initLoggingIfNeeded() {
	if !isLoggingInitialized {
		initLogging()
	}
}

func initLogging() {
	level := rootFlags.loglevel.Level()
	logConfig := consolepretty.DefaultConfig
	if level != logger.LevelDebug {
		logConfig.DisableCaller = true
		logConfig.DisableDate = true
		logConfig.ScopeMinLengthAuto = false
	}
	logger.AddOutput(level, consolepretty.New(logConfig))
	log.Debug().WithStringer("loglevel", &rootFlags.loglevel).Message("Setting log-level.")
	isLoggingInitialized = true
}
