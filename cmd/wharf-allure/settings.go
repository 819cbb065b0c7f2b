package main

import (
	"fmt"
	"io"
	"os"

	"github.com/iver-wharf/wharf-allure/pkg/settings"
	"github.com/spf13/cobra"
	"gopkg.in/typ.v4/slices"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Exports and imports per-plan report settings",
	Long: `Exports and imports the per-plan report settings as YAML, the same
format that "wharf-allure run --settings-file" reads.`,
}

var settingsExportFlags planConfigFlags

var settingsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Writes the plan settings given as flags as YAML to STDOUT",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := settings.ExportYAML(settingsExportFlags.planConfig())
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(data)
		return err
	},
}

var settingsImportCmd = &cobra.Command{
	Use:   "import [file]",
	Short: "Reads plan settings from YAML and prints the resulting report policy",
	Long: `Reads plan settings from a YAML file, or from STDIN if the file is
omitted or "-", and prints the imported settings together with the policy
they resolve to when combined with the global settings.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := readFileOrStdin(args)
		if err != nil {
			return err
		}
		global := rootConfig.Allure.GlobalSettings()
		plan, ok, err := settings.ImportYAML(data, global)
		if err != nil {
			return err
		}
		if !ok {
			colorSkipped.Println("No plan settings found. Using global settings.")
		}
		policy := settings.Resolve(global, plan)
		fmt.Printf("enabled:      %s\n", nullBoolString(plan.Enabled.Valid, plan.Enabled.Bool))
		fmt.Printf("failedOnly:   %s\n", nullBoolString(plan.FailedOnly.Valid, plan.FailedOnly.Bool))
		fmt.Printf("executable:   %q\n", plan.Executable)
		fmt.Printf("artifactName: %q\n", plan.ArtifactName)
		fmt.Println()
		fmt.Println("Resolved policy:")
		fmt.Printf("  enabled:      %t\n", policy.Enabled)
		fmt.Printf("  failedOnly:   %t\n", policy.FailedOnly)
		fmt.Printf("  executable:   %q\n", policy.Executable)
		fmt.Printf("  artifactName: %q\n", policy.ArtifactName)
		return nil
	},
}

func readFileOrStdin(args []string) ([]byte, error) {
	path := slices.SafeGet(args, 0)
	if path == "" || path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

func nullBoolString(valid, value bool) string {
	if !valid {
		return "unset"
	}
	return fmt.Sprint(value)
}

func init() {
	rootCmd.AddCommand(settingsCmd)
	settingsCmd.AddCommand(settingsExportCmd)
	settingsCmd.AddCommand(settingsImportCmd)

	addPlanConfigFlags(settingsExportCmd.Flags(), &settingsExportFlags)
}
