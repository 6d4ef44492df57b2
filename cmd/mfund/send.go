package main

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/milefund/mfund-app/crypto"
	"github.com/milefund/mfund-app/tx"

	"github.com/cometbft/cometbft/rpc/client/http"
)

// signAndSend wraps inner in a signed envelope and broadcasts it. When
// nonce is zero the current account nonce is queried from the node. With
// noSend the signature is printed instead of broadcast.
func signAndSend(url string, skey string, index uint64, nonce uint64, tp tx.MFundTxType, inner any, noSend bool) {
	cli, err := http.New(url, "/websocket")
	if err != nil {
		fmt.Printf("new client err:%v\n", err)
		return
	}
	ctx := context.Background()
	gres, err := cli.Genesis(ctx)
	if err != nil {
		fmt.Printf("get chain genesis err:%v\n", err)
		return
	}
	chainId := gres.Genesis.ChainID
	if nonce == 0 {
		act, err := queryAccount(url, index, "")
		if err != nil {
			return
		}
		nonce = act.Nonce
	}
	btx := tx.MFundTx{
		Version: tx.MFundTxVersion1,
		Type:    tp,
		Nonce:   nonce,
		Signer:  index,
		Tx:      inner,
	}
	dat, err := btx.SigData([]byte(chainId))
	if err != nil {
		fmt.Printf("tx sign data err:%v\n", err)
		return
	}
	println("data signed:", hex.EncodeToString(dat))
	pv := crypto.LoadFilePV(skey)
	sig, err := pv.Sign(dat)
	if err != nil {
		fmt.Printf("sign tx err:%v\n", err)
		return
	}
	println("pubkey:", hex.EncodeToString(pv.PublicKey()))
	println("address:", pv.Address())
	sigs := [][]byte{sig}
	if noSend {
		fmt.Println("transaction signatures:")
		for _, sig := range sigs {
			fmt.Println(hex.EncodeToString(sig))
		}
		return
	}
	btx.Sig = sigs
	dat, err = json.Marshal(btx)
	if err != nil {
		fmt.Printf("encode tx err:%v\n", err)
		return
	}
	fmt.Printf("tx:%x btx:%#v\n", dat, btx)
	res, err := cli.BroadcastTxSync(ctx, dat)
	if err != nil {
		fmt.Printf("broadcast tx err:%v\n", err)
		return
	}
	dat, _ = json.Marshal(res)
	fmt.Printf("%v\n", string(dat))
}
