// Package commands holds the node's cobra subcommands, adapted from
// cmd/commands: the scattered package-level seed/thres/idx/chainID flags
// that cluster-keygen needed are gone, replaced by a single --home-rooted
// config.Config loaded once in PersistentPreRunE the way tendermint's own
// root.go loads cfg.Config before every subcommand runs.
package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/tendermint/tendermint/libs/log"

	"dualbft/config"
)

var (
	cfg    *config.Config
	logger log.Logger
)

var RootCmd = &cobra.Command{
	Use:   "dualbftd",
	Short: "A dual-primary BFT validator node",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		home, err := cmd.Flags().GetString("home")
		if err != nil {
			return err
		}

		logger = log.NewTMLogger(log.NewSyncWriter(os.Stdout))

		loaded, err := config.Load(home, "config.toml")
		if err != nil {
			loaded = config.DefaultConfig()
			loaded.RootDir = home
		}
		cfg = loaded

		level, err := log.AllowLevel(cfg.LogLevel)
		if err != nil {
			return fmt.Errorf("parsing log_level: %w", err)
		}
		logger = log.NewFilter(logger, level)
		return nil
	},
}

func init() {
	defaultHome := os.ExpandEnv("$HOME/.dualbft")
	RootCmd.PersistentFlags().String("home", defaultHome, "root directory for config and data")
}
