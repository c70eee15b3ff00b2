package commands

import (
	"fmt"

	tmjson "github.com/tendermint/tendermint/libs/json"

	"github.com/spf13/cobra"

	"dualbft/privval"
)

var ShowValidatorCmd = &cobra.Command{
	Use:   "show-validator",
	Short: "Show this node's validator public key",
	RunE:  showValidator,
}

func showValidator(cmd *cobra.Command, args []string) error {
	wallet := privval.LoadFileWallet(cfg.WalletKeyFilePath())
	bz, err := tmjson.Marshal(wallet.PubKey())
	if err != nil {
		return err
	}
	fmt.Println(string(bz))
	return nil
}
