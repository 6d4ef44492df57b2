package tx

import (
	"encoding/json"
)

// MFundTx is the signed envelope every escrow operation travels in.
// Signer is the account index of the caller; the signature covers the
// envelope with the chain id substituted for the signature slot.
type MFundTx struct {
	Version uint8       `json:"version"`
	Type    MFundTxType `json:"type"`
	Nonce   uint64      `json:"nonce"`
	Signer  uint64      `json:"signer"`
	Tx      any         `json:"tx"`
	Sig     [][]byte    `json:"sig"`
}

// MilestoneDef is a creator-supplied milestone definition: a label and the
// tranche released to the creator when that milestone wins its vote.
type MilestoneDef struct {
	Title  string `json:"title"`
	Amount uint64 `json:"amount"`
}

type InitializeTx struct {
	Creator    uint64         `json:"creator"`
	Token      string         `json:"token"`
	Goal       uint64         `json:"goal"`
	Deadline   uint64         `json:"deadline"`
	Milestones []MilestoneDef `json:"milestones"`
}

type FundTx struct {
	Amount uint64 `json:"amount"`
}

type VoteTx struct {
	Milestone uint64 `json:"milestone"`
}

type ReleaseTx struct {
	Milestone uint64 `json:"milestone"`
}

type RefundTx struct{}

type mfundTxTmpl[Tx any] struct {
	Version uint8       `json:"version"`
	Type    MFundTxType `json:"type"`
	Nonce   uint64      `json:"nonce"`
	Signer  uint64      `json:"signer"`
	Tx      Tx          `json:"tx"`
	Sig     [][]byte    `json:"sig"`
}

func (tx *MFundTx) SigData(ext []byte) (dat []byte, err error) {
	ntx := *tx
	ntx.Sig = [][]byte{ext}
	dat, err = json.Marshal(ntx)
	return
}

func parseMFundTxType(dat []byte) MFundTxType {
	var tx struct {
		Type MFundTxType `json:"type"`
	}
	err := json.Unmarshal(dat, &tx)
	if err != nil {
		return MFundTxTypeUnknown
	}
	return tx.Type
}

func unmarshalMFundTx[Tx any](dat []byte) (btx *MFundTx, err error) {
	var txt mfundTxTmpl[Tx]
	err = json.Unmarshal(dat, &txt)
	if err != nil {
		return
	}
	btx = new(MFundTx)
	btx.Version = txt.Version
	btx.Type = txt.Type
	btx.Nonce = txt.Nonce
	btx.Signer = txt.Signer
	btx.Tx = &txt.Tx
	btx.Sig = txt.Sig
	return
}

func UnmarshalMFundTx(dat []byte) (btx *MFundTx, err error) {
	tp := parseMFundTxType(dat)
	switch tp {
	case MFundTxTypeInitialize:
		return unmarshalMFundTx[InitializeTx](dat)
	case MFundTxTypeFund:
		return unmarshalMFundTx[FundTx](dat)
	case MFundTxTypeVote:
		return unmarshalMFundTx[VoteTx](dat)
	case MFundTxTypeRelease:
		return unmarshalMFundTx[ReleaseTx](dat)
	case MFundTxTypeRefund:
		return unmarshalMFundTx[RefundTx](dat)
	default:
		err = ErrUnsupportedTxType
	}
	return
}

func MarshalMFundTx(btx *MFundTx) (dat []byte, err error) {
	return json.Marshal(btx)
}
