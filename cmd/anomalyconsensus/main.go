// Command anomalyconsensus runs every configured anomaly detection method over
// one dataset and reports where they agree.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	apperr "github.com/hed1ad/anomalyconsensus/internal/errors"
)

// Exit codes.
const (
	exitOK       = 0
	exitDataLoad = 1
	exitFailure  = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := newRootCmd().ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
	}
	stop()
	os.Exit(exitCode(err))
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "anomalyconsensus",
		Short:         "Compare anomaly detection methods and find where they agree",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.AddCommand(newRunCmd(), newDetectorsCmd())
	return rootCmd
}

// exitCode maps a command error to the process exit status. A report with
// failed detectors is still a success.
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case apperr.HasCode(err, apperr.CodeDataLoad):
		return exitDataLoad
	default:
		return exitFailure
	}
}
