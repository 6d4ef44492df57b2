package main

import (
	"github.com/milefund/mfund-app/tx"

	"github.com/spf13/cobra"
)

type refundArguments struct {
	Url    string
	Index  uint64
	Nonce  uint64
	Skey   string
	NoSend bool
}

var refundArgs refundArguments

var refundCmd = &cobra.Command{
	Use:   "refund",
	Short: "Reclaim a contribution after the deadline when the goal failed",
	Long:  ``,
	Run:   refundRun,
}

func init() {
	urlFlag(refundCmd, &refundArgs.Url)
	refundCmd.Flags().Uint64VarP(&refundArgs.Index, "index", "i", 0, "backer account index")
	refundCmd.Flags().Uint64VarP(&refundArgs.Nonce, "nonce", "n", 0, "account nonce")
	refundCmd.Flags().StringVarP(&refundArgs.Skey, "skeyPath", "s", "./config/priv_validator_key.json", "private key path")
	refundCmd.Flags().BoolVarP(&refundArgs.NoSend, "nosend", "", false, "not send transaction but print signature")
}

func refundRun(cmd *cobra.Command, args []string) {
	signAndSend(refundArgs.Url, refundArgs.Skey, refundArgs.Index, refundArgs.Nonce,
		tx.MFundTxTypeRefund, &tx.RefundTx{}, refundArgs.NoSend)
}
