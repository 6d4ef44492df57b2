package main

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/milefund/mfund-app/types"

	"github.com/cometbft/cometbft/rpc/client/http"
	"github.com/spf13/cobra"
)

type projectArguments struct {
	Url string
}

var projectArgs projectArguments

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Query the escrow project record",
	Long:  ``,
	Run:   projectRun,
}

func init() {
	urlFlag(projectCmd, &projectArgs.Url)
}

func projectRun(cmd *cobra.Command, args []string) {
	cli, err := http.New(projectArgs.Url, "/websocket")
	if err != nil {
		fmt.Printf("new client err:%v\n", err)
		return
	}
	res, err := cli.ABCIQuery(context.Background(), "/project/", nil)
	if err != nil {
		fmt.Printf("request err:%v\n", err)
		return
	}
	if res.Response.Code != 0 {
		fmt.Println("project not initialized")
		return
	}
	var proj types.Project
	if err := json.Unmarshal(res.Response.Value, &proj); err != nil {
		fmt.Printf("decode project err:%v\n", err)
		return
	}
	out, _ := json.MarshalIndent(proj, "", "  ")
	fmt.Println(string(out))
}

type backerArguments struct {
	Url     string
	Address string
	Index   uint64
}

var backerArgs backerArguments

var backerCmd = &cobra.Command{
	Use:   "backer",
	Short: "Query a backer's contribution by index or address",
	Long:  ``,
	Run:   backerRun,
}

func init() {
	urlFlag(backerCmd, &backerArgs.Url)
	backerCmd.Flags().StringVarP(&backerArgs.Address, "address", "a", "", "backer address")
	backerCmd.Flags().Uint64VarP(&backerArgs.Index, "index", "i", 0, "backer account index")
}

func backerRun(cmd *cobra.Command, args []string) {
	cli, err := http.New(backerArgs.Url, "/websocket")
	if err != nil {
		fmt.Printf("new client err:%v\n", err)
		return
	}
	var dat []byte
	if len(backerArgs.Address) > 0 {
		dat, err = hex.DecodeString(backerArgs.Address)
		if err != nil {
			fmt.Printf("invalid address:%v\n", backerArgs.Address)
			return
		}
	} else {
		s := fmt.Sprintf("0%x", backerArgs.Index)
		if len(s)&1 == 1 {
			s = s[1:]
		}
		dat, _ = hex.DecodeString(s)
	}
	res, err := cli.ABCIQuery(context.Background(), "/backers/", dat)
	if err != nil {
		fmt.Printf("request err:%v\n", err)
		return
	}
	if res.Response.Code != 0 {
		fmt.Println("no contribution found")
		return
	}
	var c types.Contribution
	if err := json.Unmarshal(res.Response.Value, &c); err != nil {
		fmt.Printf("decode contribution err:%v\n", err)
		return
	}
	out, _ := json.MarshalIndent(c, "", "  ")
	fmt.Println(string(out))
}
