package main

import (
	"github.com/milefund/mfund-app/tx"

	"github.com/spf13/cobra"
)

type releaseArguments struct {
	Url       string
	Index     uint64
	Nonce     uint64
	Skey      string
	Milestone uint64
	NoSend    bool
}

var releaseArgs releaseArguments

var releaseCmd = &cobra.Command{
	Use:   "release",
	Short: "Release an approved milestone tranche to the creator",
	Long:  ``,
	Run:   releaseRun,
}

func init() {
	urlFlag(releaseCmd, &releaseArgs.Url)
	releaseCmd.Flags().Uint64VarP(&releaseArgs.Index, "index", "i", 0, "caller account index")
	releaseCmd.Flags().Uint64VarP(&releaseArgs.Nonce, "nonce", "n", 0, "account nonce")
	releaseCmd.Flags().StringVarP(&releaseArgs.Skey, "skeyPath", "s", "./config/priv_validator_key.json", "private key path")
	releaseCmd.Flags().Uint64VarP(&releaseArgs.Milestone, "milestone", "m", 0, "milestone index")
	releaseCmd.Flags().BoolVarP(&releaseArgs.NoSend, "nosend", "", false, "not send transaction but print signature")
}

func releaseRun(cmd *cobra.Command, args []string) {
	stx := &tx.ReleaseTx{
		Milestone: releaseArgs.Milestone,
	}
	signAndSend(releaseArgs.Url, releaseArgs.Skey, releaseArgs.Index, releaseArgs.Nonce,
		tx.MFundTxTypeRelease, stx, releaseArgs.NoSend)
}
