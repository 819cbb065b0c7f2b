package main

import (
	"context"
	"fmt"
	"os"

	"github.com/iver-wharf/wharf-allure/pkg/buildref"
	"github.com/spf13/cobra"
	"gopkg.in/typ.v4/slices"
)

var historyCmd = &cobra.Command{
	Use:   "history <plan-key> <build-number>",
	Short: "Shows which prior build a report would take its history from",
	Long: `Walks the prior builds of the plan, nearest first, and prints the first
one that has a report with trend history. This is the same lookup that
"wharf-allure run" does before generating a report.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ref, err := parseBuildRef(args)
		if err != nil {
			return err
		}
		store, err := openStore(rootConfig)
		if err != nil {
			return err
		}
		ctx, cancel := contextWithCancelSignals()
		defer cancel()

		src, ok := newHistoryResolver(rootConfig, store).FindSource(ctx, ref.PlanKey, ref.Number)
		if !ok {
			colorSkipped.Fprintf(os.Stdout, "No prior build of %s has history.\n", ref)
			return nil
		}
		fmt.Println(src)
		return nil
	},
}

var buildsCmd = &cobra.Command{
	Use:   "builds <plan-key>",
	Short: "Lists the builds of a plan in the build result store",
	Long: `Lists the build numbers of a plan in the build result store, newest
first, and marks which builds have a recorded outcome.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore(rootConfig)
		if err != nil {
			return err
		}
		numbers, err := store.ListBuilds(args[0])
		if err != nil {
			return err
		}
		slices.Reverse(numbers)
		for _, n := range numbers {
			fmt.Print(n)
			ref := buildref.Ref{PlanKey: args[0], Number: n}
			o, ok, err := readOutcome(context.Background(), store, ref)
			switch {
			case err != nil:
				colorWarning.Print("\terror: ", err)
			case !ok:
				colorSkipped.Print("\tno outcome")
			case o.Success:
				colorSuccess.Print("\tsuccess")
			default:
				colorFailure.Print("\tfailed")
			}
			fmt.Println()
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(buildsCmd)
}
