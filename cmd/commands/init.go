package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	tmos "github.com/tendermint/tendermint/libs/os"
	tmrand "github.com/tendermint/tendermint/libs/rand"
	"github.com/tendermint/tendermint/p2p"

	"dualbft/privval"
	"dualbft/types"
)

// InitFilesCmd bootstraps a single-validator node: a signing key, a node
// key and a genesis file naming that one validator, the single-node
// analogue of init.go's FilePV/node-key/genesis sequence.
var InitFilesCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a validator's config directory",
	RunE:  initFiles,
}

func initFiles(cmd *cobra.Command, args []string) error {
	walletKeyFile := cfg.WalletKeyFilePath()
	var wallet *privval.FileWallet
	if tmos.FileExists(walletKeyFile) {
		wallet = privval.LoadFileWallet(walletKeyFile)
		logger.Info("found validator key", "path", walletKeyFile)
	} else {
		wallet = privval.GenFileWallet(walletKeyFile)
		wallet.Save()
		logger.Info("generated validator key", "path", walletKeyFile)
	}

	nodeKeyFile := cfg.NodeKeyFilePath()
	if tmos.FileExists(nodeKeyFile) {
		logger.Info("found node key", "path", nodeKeyFile)
	} else {
		if _, err := p2p.LoadOrGenNodeKey(nodeKeyFile); err != nil {
			return err
		}
		logger.Info("generated node key", "path", nodeKeyFile)
	}

	genFile := cfg.GenesisFilePath()
	if tmos.FileExists(genFile) {
		logger.Info("found genesis file", "path", genFile)
		return nil
	}

	genDoc := &types.GenesisDoc{
		ChainID:     fmt.Sprintf("dualbft-%v", tmrand.Str(6)),
		GenesisTime: time.Now(),
		Validators: []types.GenesisValidator{{
			Address: wallet.Address(),
			PubKey:  wallet.PubKey(),
			Name:    cfg.Moniker,
		}},
	}
	if err := genDoc.SaveAs(genFile); err != nil {
		return err
	}
	logger.Info("generated genesis file", "path", genFile)
	return nil
}
