package main

import (
	"context"
	"os"

	"github.com/iver-wharf/wharf-allure/pkg/buildref"
	"github.com/iver-wharf/wharf-allure/pkg/outcome"
	"github.com/iver-wharf/wharf-allure/pkg/resultstore"
	"github.com/spf13/cobra"
)

var outcomeCmd = &cobra.Command{
	Use:   "outcome <plan-key> <build-number>",
	Short: "Prints the recorded report outcome of a build",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ref, err := parseBuildRef(args)
		if err != nil {
			return err
		}
		store, err := openStore(rootConfig)
		if err != nil {
			return err
		}
		o, ok, err := readOutcome(cmd.Context(), store, ref)
		if err != nil {
			return err
		}
		if !ok {
			colorSkipped.Fprintf(os.Stdout, "No report outcome recorded for %s.\n", ref)
			return nil
		}
		if o.Success {
			colorSuccess.Fprintf(os.Stdout, "%s: %s\n", ref, o.Message)
		} else {
			colorFailure.Fprintf(os.Stdout, "%s: %s\n", ref, o.Message)
		}
		return nil
	},
}

func readOutcome(ctx context.Context, store *resultstore.Store, ref buildref.Ref) (outcome.Outcome, bool, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	data, err := store.ReadCustomData(ctx, ref)
	if err != nil {
		return outcome.Outcome{}, false, err
	}
	o, ok := outcome.Read(data)
	return o, ok, nil
}

func init() {
	rootCmd.AddCommand(outcomeCmd)
}
