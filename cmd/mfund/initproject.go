package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/milefund/mfund-app/tx"

	"github.com/spf13/cobra"
)

type initProjectArguments struct {
	Url        string
	Index      uint64
	Nonce      uint64
	Skey       string
	Token      string
	Goal       uint64
	Deadline   uint64
	Milestones string
	NoSend     bool
}

var initProjectArgs initProjectArguments

var initProjectCmd = &cobra.Command{
	Use:   "init-project",
	Short: "Initialize the escrow project",
	Long: `Initialize the single escrow project. Milestones are given as a
comma separated list of title:amount pairs whose amounts sum to the goal,
e.g. --milestones "mvp:5000,launch:5000".`,
	Run: initProjectRun,
}

func init() {
	urlFlag(initProjectCmd, &initProjectArgs.Url)
	initProjectCmd.Flags().Uint64VarP(&initProjectArgs.Index, "index", "i", 0, "creator account index")
	initProjectCmd.Flags().Uint64VarP(&initProjectArgs.Nonce, "nonce", "n", 0, "account nonce")
	initProjectCmd.Flags().StringVarP(&initProjectArgs.Skey, "skeyPath", "s", "./config/priv_validator_key.json", "private key path")
	initProjectCmd.Flags().StringVarP(&initProjectArgs.Token, "token", "t", "mfd", "token denom collected by the project")
	initProjectCmd.Flags().Uint64VarP(&initProjectArgs.Goal, "goal", "g", 0, "funding goal")
	initProjectCmd.Flags().Uint64VarP(&initProjectArgs.Deadline, "deadline", "", 0, "funding deadline, unix seconds")
	initProjectCmd.Flags().StringVarP(&initProjectArgs.Milestones, "milestones", "m", "", "milestones as title:amount,title:amount")
	initProjectCmd.Flags().BoolVarP(&initProjectArgs.NoSend, "nosend", "", false, "not send transaction but print signature")
}

func parseMilestones(s string) ([]tx.MilestoneDef, error) {
	if s == "" {
		return nil, fmt.Errorf("empty milestone list")
	}
	var defs []tx.MilestoneDef
	for _, part := range strings.Split(s, ",") {
		title, amountStr, ok := strings.Cut(part, ":")
		if !ok {
			return nil, fmt.Errorf("invalid milestone %q, want title:amount", part)
		}
		amount, err := strconv.ParseUint(amountStr, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid milestone amount %q: %v", amountStr, err)
		}
		defs = append(defs, tx.MilestoneDef{Title: title, Amount: amount})
	}
	return defs, nil
}

func initProjectRun(cmd *cobra.Command, args []string) {
	milestones, err := parseMilestones(initProjectArgs.Milestones)
	if err != nil {
		fmt.Printf("parse milestones err:%v\n", err)
		return
	}
	stx := &tx.InitializeTx{
		Creator:    initProjectArgs.Index,
		Token:      initProjectArgs.Token,
		Goal:       initProjectArgs.Goal,
		Deadline:   initProjectArgs.Deadline,
		Milestones: milestones,
	}
	signAndSend(initProjectArgs.Url, initProjectArgs.Skey, initProjectArgs.Index,
		initProjectArgs.Nonce, tx.MFundTxTypeInitialize, stx, initProjectArgs.NoSend)
}
