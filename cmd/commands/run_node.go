package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"dualbft/node"
)

// NewRunNodeCmd returns the "start" command that runs a validator until
// interrupted, adapted from run_node.go's start-and-wait-for-signal loop.
func NewRunNodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Run the validator node",
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := node.DefaultNewNode(cfg, logger)
			if err != nil {
				return fmt.Errorf("creating node: %w", err)
			}
			if err := n.Start(); err != nil {
				return fmt.Errorf("starting node: %w", err)
			}

			sigc := make(chan os.Signal, 1)
			signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
			<-sigc

			logger.Info("shutting down")
			if err := n.Stop(); err != nil {
				return fmt.Errorf("stopping node: %w", err)
			}
			return nil
		},
	}
}
