package tx

import (
	"bytes"
	"errors"
	"testing"
)

func TestUnmarshalMFundTxDispatch(t *testing.T) {
	cases := []struct {
		name  string
		btx   *MFundTx
		check func(t *testing.T, inner any)
	}{
		{
			name: "initialize",
			btx: &MFundTx{
				Version: MFundTxVersion1,
				Type:    MFundTxTypeInitialize,
				Nonce:   1,
				Signer:  65536,
				Tx: &InitializeTx{
					Creator:  65536,
					Token:    "mfd",
					Goal:     10000,
					Deadline: 1000,
					Milestones: []MilestoneDef{
						{Title: "mvp", Amount: 5000},
						{Title: "launch", Amount: 5000},
					},
				},
			},
			check: func(t *testing.T, inner any) {
				itx, ok := inner.(*InitializeTx)
				if !ok {
					t.Fatalf("inner tx type %T", inner)
				}
				if itx.Goal != 10000 || len(itx.Milestones) != 2 || itx.Milestones[1].Title != "launch" {
					t.Fatalf("unexpected inner tx %+v", itx)
				}
			},
		},
		{
			name: "fund",
			btx: &MFundTx{
				Version: MFundTxVersion1,
				Type:    MFundTxTypeFund,
				Nonce:   2,
				Signer:  65537,
				Tx:      &FundTx{Amount: 3000},
			},
			check: func(t *testing.T, inner any) {
				ftx, ok := inner.(*FundTx)
				if !ok {
					t.Fatalf("inner tx type %T", inner)
				}
				if ftx.Amount != 3000 {
					t.Fatalf("unexpected inner tx %+v", ftx)
				}
			},
		},
		{
			name: "vote",
			btx: &MFundTx{
				Version: MFundTxVersion1,
				Type:    MFundTxTypeVote,
				Signer:  65537,
				Tx:      &VoteTx{Milestone: 1},
			},
			check: func(t *testing.T, inner any) {
				vtx, ok := inner.(*VoteTx)
				if !ok {
					t.Fatalf("inner tx type %T", inner)
				}
				if vtx.Milestone != 1 {
					t.Fatalf("unexpected inner tx %+v", vtx)
				}
			},
		},
		{
			name: "release",
			btx: &MFundTx{
				Version: MFundTxVersion1,
				Type:    MFundTxTypeRelease,
				Signer:  65538,
				Tx:      &ReleaseTx{Milestone: 0},
			},
			check: func(t *testing.T, inner any) {
				if _, ok := inner.(*ReleaseTx); !ok {
					t.Fatalf("inner tx type %T", inner)
				}
			},
		},
		{
			name: "refund",
			btx: &MFundTx{
				Version: MFundTxVersion1,
				Type:    MFundTxTypeRefund,
				Signer:  65537,
				Tx:      &RefundTx{},
			},
			check: func(t *testing.T, inner any) {
				if _, ok := inner.(*RefundTx); !ok {
					t.Fatalf("inner tx type %T", inner)
				}
			},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			dat, err := MarshalMFundTx(tc.btx)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			btx, err := UnmarshalMFundTx(dat)
			if err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if btx.Type != tc.btx.Type || btx.Nonce != tc.btx.Nonce || btx.Signer != tc.btx.Signer {
				t.Fatalf("envelope mismatch: got %+v want %+v", btx, tc.btx)
			}
			tc.check(t, btx.Tx)
		})
	}
}

func TestUnmarshalMFundTxUnknownType(t *testing.T) {
	_, err := UnmarshalMFundTx([]byte(`{"version":1,"type":99}`))
	if !errors.Is(err, ErrUnsupportedTxType) {
		t.Fatalf("err = %v, want %v", err, ErrUnsupportedTxType)
	}
	_, err = UnmarshalMFundTx([]byte(`not json`))
	if !errors.Is(err, ErrUnsupportedTxType) {
		t.Fatalf("err = %v, want %v", err, ErrUnsupportedTxType)
	}
}

func TestSigData(t *testing.T) {
	btx := &MFundTx{
		Version: MFundTxVersion1,
		Type:    MFundTxTypeFund,
		Nonce:   7,
		Signer:  65537,
		Tx:      &FundTx{Amount: 500},
	}
	unsigned, err := btx.SigData([]byte("chain-a"))
	if err != nil {
		t.Fatalf("sig data: %v", err)
	}

	// the payload covers the chain id, not the signatures
	btx.Sig = [][]byte{{0xde, 0xad}}
	signed, err := btx.SigData([]byte("chain-a"))
	if err != nil {
		t.Fatalf("sig data: %v", err)
	}
	if !bytes.Equal(unsigned, signed) {
		t.Fatalf("sig data depends on attached signatures")
	}

	other, err := btx.SigData([]byte("chain-b"))
	if err != nil {
		t.Fatalf("sig data: %v", err)
	}
	if bytes.Equal(unsigned, other) {
		t.Fatalf("sig data must bind the chain id")
	}

	// round trip keeps the signed payload stable
	dat, err := MarshalMFundTx(btx)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	rt, err := UnmarshalMFundTx(dat)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	rtDat, err := rt.SigData([]byte("chain-a"))
	if err != nil {
		t.Fatalf("sig data: %v", err)
	}
	if !bytes.Equal(unsigned, rtDat) {
		t.Fatalf("sig data changed across the wire")
	}
}
