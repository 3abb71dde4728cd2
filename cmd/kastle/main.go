// Command kastle reconciles badge-swipe exports offline and inspects the
// run archive kept by kastle-server.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jvanhook93/Kastle-script/internal/logging"
)

type rootOptions struct {
	logLevel string
	logger   *zap.Logger
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "kastle",
		Short:         "Reconcile Kastle badge-swipe exports into office-time reports",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			l, err := logging.New("dev", opts.logLevel)
			if err != nil {
				return err
			}
			opts.logger = l
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if opts.logger != nil {
				_ = opts.logger.Sync()
			}
		},
	}
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	root.AddCommand(newReconcileCmd(opts), newRunsCmd(opts))
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "kastle: %v\n", err)
		os.Exit(1)
	}
}
