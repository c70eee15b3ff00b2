package commands

import (
	"fmt"

	tmjson "github.com/tendermint/tendermint/libs/json"
	tmos "github.com/tendermint/tendermint/libs/os"

	"github.com/spf13/cobra"

	"dualbft/privval"
)

var GenValidatorCmd = &cobra.Command{
	Use:   "gen-validator",
	Short: "Generate a new validator signing keypair",
	RunE:  genValidator,
}

func genValidator(cmd *cobra.Command, args []string) error {
	walletKeyFile := cfg.WalletKeyFilePath()
	if tmos.FileExists(walletKeyFile) {
		logger.Info("found validator key", "path", walletKeyFile)
		return nil
	}

	wallet := privval.GenFileWallet(walletKeyFile)
	jsbz, err := tmjson.Marshal(wallet.Key)
	if err != nil {
		return err
	}
	wallet.Save()
	fmt.Println(string(jsbz))
	return nil
}
