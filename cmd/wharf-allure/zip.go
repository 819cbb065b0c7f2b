package main

import (
	"github.com/iver-wharf/wharf-allure/internal/ziputil"
	"github.com/spf13/cobra"
)

var zipCmd = &cobra.Command{
	Use:   "zip <dir> <archive>",
	Short: "Packs a directory into a zip archive",
	Long: `Packs a directory into a zip archive, in the same layout that zipped
report artifacts are stored and downloaded as.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return ziputil.Pack(args[0], args[1])
	},
}

var unzipCmd = &cobra.Command{
	Use:   "unzip <archive> <dir>",
	Short: "Unpacks a zip archive into a directory",
	Long: `Unpacks a zip archive into a directory, creating the directory if
needed. Entries that would end up outside the directory are skipped.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return ziputil.Unpack(args[0], args[1])
	},
}

func init() {
	rootCmd.AddCommand(zipCmd)
	rootCmd.AddCommand(unzipCmd)
}
