package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/iver-wharf/wharf-allure/internal/flagtypes"
	"github.com/iver-wharf/wharf-allure/pkg/buildref"
	"github.com/iver-wharf/wharf-allure/pkg/settings"
	"github.com/spf13/pflag"
)

func parseBuildRef(args []string) (buildref.Ref, error) {
	if len(args) != 2 {
		return buildref.Ref{}, fmt.Errorf("expected plan key and build number, got %d args", len(args))
	}
	number, err := strconv.ParseUint(args[1], 10, 0)
	if err != nil {
		return buildref.Ref{}, fmt.Errorf("parse build number: %w", err)
	}
	ref := buildref.Ref{PlanKey: args[0], Number: uint(number)}
	if err := ref.Validate(); err != nil {
		return buildref.Ref{}, err
	}
	return ref, nil
}

type planConfigFlags struct {
	enabled      flagtypes.NullBool
	failedOnly   flagtypes.NullBool
	executable   string
	artifactName string
}

func (f planConfigFlags) planConfig() settings.PlanConfig {
	return settings.PlanConfig{
		Enabled:      f.enabled.Bool,
		FailedOnly:   f.failedOnly.Bool,
		Executable:   f.executable,
		ArtifactName: f.artifactName,
	}
}

func addPlanConfigFlags(flags *pflag.FlagSet, f *planConfigFlags) {
	flags.Var(&f.enabled, "enabled", "Enable report generation (default from allure.enabledByDefault config)")
	flags.Lookup("enabled").NoOptDefVal = "true"
	flags.Var(&f.failedOnly, "failed-only", "Only generate reports for failed builds (default true)")
	flags.Lookup("failed-only").NoOptDefVal = "true"
	flags.StringVar(&f.executable, "executable", "", "Name of Allure executable to use (default from allure.defaultExecutable config)")
	flags.StringVar(&f.artifactName, "artifact-name", "", "Only use the artifact with this name as report input (default all artifacts)")
}

func contextWithCancelSignals() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
		select {
		case <-ch:
			log.Info().Message("Cancelling. Press ^C again to force quit.")
			cancel()
		case <-ctx.Done():
			signal.Stop(ch)
			return
		}
		<-ch
		log.Warn().Message("Received second interrupt. Force quitting now.")
		os.Exit(2)
	}()
	return ctx, cancel
}
