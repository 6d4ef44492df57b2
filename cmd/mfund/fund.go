package main

import (
	"github.com/milefund/mfund-app/tx"

	"github.com/spf13/cobra"
)

type fundArguments struct {
	Url    string
	Index  uint64
	Nonce  uint64
	Skey   string
	Amount uint64
	NoSend bool
}

var fundArgs fundArguments

var fundCmd = &cobra.Command{
	Use:   "fund",
	Short: "Contribute tokens to the project escrow",
	Long:  ``,
	Run:   fundRun,
}

func init() {
	urlFlag(fundCmd, &fundArgs.Url)
	fundCmd.Flags().Uint64VarP(&fundArgs.Index, "index", "i", 0, "backer account index")
	fundCmd.Flags().Uint64VarP(&fundArgs.Nonce, "nonce", "n", 0, "account nonce")
	fundCmd.Flags().StringVarP(&fundArgs.Skey, "skeyPath", "s", "./config/priv_validator_key.json", "private key path")
	fundCmd.Flags().Uint64VarP(&fundArgs.Amount, "amount", "a", 0, "contribution amount")
	fundCmd.Flags().BoolVarP(&fundArgs.NoSend, "nosend", "", false, "not send transaction but print signature")
}

func fundRun(cmd *cobra.Command, args []string) {
	stx := &tx.FundTx{
		Amount: fundArgs.Amount,
	}
	signAndSend(fundArgs.Url, fundArgs.Skey, fundArgs.Index, fundArgs.Nonce,
		tx.MFundTxTypeFund, stx, fundArgs.NoSend)
}
