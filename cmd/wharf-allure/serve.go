package main

import (
	"github.com/iver-wharf/wharf-allure/pkg/reportserver"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serves generated reports over HTTP",
	Long: `Starts an HTTP server that serves the reports in the build result
store below /plugins/servlet/allure/report/{plan-key}/{build-number}/.

The server also accepts build completion events, which trigger report runs:

  POST /api/build/{plan-key}/{build-number}/report

And exposes the recorded outcomes and zipped reports:

  GET /api/build/{plan-key}/{build-number}/outcome
  GET /api/build/{plan-key}/{build-number}/report`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore(rootConfig)
		if err != nil {
			return err
		}
		server := reportserver.New(newOrchestrator(rootConfig, store), store, reportserver.Options{
			HTTP:         rootConfig.Server.HTTP,
			ArtifactName: rootConfig.Report.ArtifactName,
			TempDir:      rootConfig.Report.TempDir,
		})
		return server.Serve()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
