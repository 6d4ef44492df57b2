package main

import (
	"github.com/milefund/mfund-app/tx"

	"github.com/spf13/cobra"
)

type voteArguments struct {
	Url       string
	Index     uint64
	Nonce     uint64
	Skey      string
	Milestone uint64
	NoSend    bool
}

var voteArgs voteArguments

var voteCmd = &cobra.Command{
	Use:   "vote",
	Short: "Approve a milestone as a backer",
	Long:  ``,
	Run:   voteRun,
}

func init() {
	urlFlag(voteCmd, &voteArgs.Url)
	voteCmd.Flags().Uint64VarP(&voteArgs.Index, "index", "i", 0, "backer account index")
	voteCmd.Flags().Uint64VarP(&voteArgs.Nonce, "nonce", "n", 0, "account nonce")
	voteCmd.Flags().StringVarP(&voteArgs.Skey, "skeyPath", "s", "./config/priv_validator_key.json", "private key path")
	voteCmd.Flags().Uint64VarP(&voteArgs.Milestone, "milestone", "m", 0, "milestone index")
	voteCmd.Flags().BoolVarP(&voteArgs.NoSend, "nosend", "", false, "not send transaction but print signature")
}

func voteRun(cmd *cobra.Command, args []string) {
	stx := &tx.VoteTx{
		Milestone: voteArgs.Milestone,
	}
	signAndSend(voteArgs.Url, voteArgs.Skey, voteArgs.Index, voteArgs.Nonce,
		tx.MFundTxTypeVote, stx, voteArgs.NoSend)
}
