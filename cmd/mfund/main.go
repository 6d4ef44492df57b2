package main

import (
	"fmt"
	"os"
)

func main() {
	clCmd.AddCommand(initCmd)
	clCmd.AddCommand(accountCmd)
	clCmd.AddCommand(projectCmd)
	clCmd.AddCommand(backerCmd)
	clCmd.AddCommand(initProjectCmd)
	clCmd.AddCommand(fundCmd)
	clCmd.AddCommand(voteCmd)
	clCmd.AddCommand(releaseCmd)
	clCmd.AddCommand(refundCmd)
	clCmd.AddCommand(pubkeyCmd)
	clCmd.AddCommand(versionCmd)
	if err := clCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
