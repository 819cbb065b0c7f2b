package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/iver-wharf/wharf-allure/internal/errutil"
	"github.com/iver-wharf/wharf-allure/pkg/buildref"
	"github.com/iver-wharf/wharf-allure/pkg/settings"
	"github.com/spf13/cobra"
)

var (
	colorSuccess = color.New(color.FgGreen)
	colorFailure = color.New(color.FgRed)
	colorSkipped = color.New(color.FgHiBlack)
	colorWarning = color.New(color.FgYellow)
)

var runFlags = struct {
	name         string
	failed       bool
	settingsFile string
	plan         planConfigFlags
}{}

var runCmd = &cobra.Command{
	Use:   "run <plan-key> <build-number>",
	Short: "Generates the Allure report of a finished build",
	Long: `Generates the Allure report of a finished build from the artifacts
stored for that build in the build result store, and uploads the report
back into the store as the "allure-report" artifact.

The trend history is taken from the nearest prior build of the same plan that
has a report with history.

The outcome is recorded in the build's custom data, and can be read back
using "wharf-allure outcome".

Report settings can be given as flags, or read from a YAML file using
--settings-file. Flags override the settings file.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ref, err := parseBuildRef(args)
		if err != nil {
			return err
		}
		plan, err := runPlanConfig(cmd)
		if err != nil {
			return err
		}
		store, err := openStore(rootConfig)
		if err != nil {
			return err
		}

		ctx, cancel := contextWithCancelSignals()
		defer cancel()

		build := buildref.Build{Ref: ref, Name: runFlags.name, Failed: runFlags.failed}
		result := newOrchestrator(rootConfig, store).Run(ctx, build, plan)
		if result.Skipped {
			colorSkipped.Fprintf(os.Stdout, "Skipped report of %s.\n", ref)
			return nil
		}
		for _, w := range result.Warnings {
			colorWarning.Fprintf(os.Stdout, "Warning: %s\n", errutil.Format(w))
		}
		if result.RecordErr != nil {
			return fmt.Errorf("record outcome: %w", result.RecordErr)
		}
		if !result.Outcome.Success {
			colorFailure.Fprintf(os.Stdout, "Report of %s failed: %s\n", ref, result.Outcome.Message)
			return errors.New("report generation failed")
		}
		colorSuccess.Fprintf(os.Stdout, "%s: %s\n", ref, result.Outcome.Message)
		return nil
	},
}

func runPlanConfig(cmd *cobra.Command) (settings.PlanConfig, error) {
	var plan settings.PlanConfig
	if runFlags.settingsFile != "" {
		data, err := os.ReadFile(runFlags.settingsFile)
		if err != nil {
			return settings.PlanConfig{}, err
		}
		imported, ok, err := settings.ImportYAML(data, rootConfig.Allure.GlobalSettings())
		if err != nil {
			return settings.PlanConfig{}, fmt.Errorf("import settings file: %w", err)
		}
		if ok {
			plan = imported
		}
	}
	flags := cmd.Flags()
	if flags.Changed("enabled") {
		plan.Enabled = runFlags.plan.enabled.Bool
	}
	if flags.Changed("failed-only") {
		plan.FailedOnly = runFlags.plan.failedOnly.Bool
	}
	if flags.Changed("executable") {
		plan.Executable = runFlags.plan.executable
	}
	if flags.Changed("artifact-name") {
		plan.ArtifactName = runFlags.plan.artifactName
	}
	return plan, nil
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runFlags.name, "name", "", "Human readable name of the build plan")
	runCmd.Flags().BoolVar(&runFlags.failed, "failed", false, "Marks the build as failed")
	runCmd.Flags().StringVarP(&runFlags.settingsFile, "settings-file", "f", "", "YAML file with report settings, as written by \"wharf-allure settings export\"")
	addPlanConfigFlags(runCmd.Flags(), &runFlags.plan)
}
