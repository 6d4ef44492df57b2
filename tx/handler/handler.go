package handler

import (
	"context"

	"github.com/milefund/mfund-app/state"
	"github.com/milefund/mfund-app/tx"
	abcitypes "github.com/cometbft/cometbft/abci/types"
)

// TxHandler executes one escrow tx type against a state view. Check is the
// mempool dry-run, Prepare runs during block construction on a speculative
// state, Process during replay and finalization. NewContext resets any
// per-block bookkeeping.
type TxHandler interface {
	Check(ctx context.Context, st *state.State, btx *tx.MFundTx) (res *abcitypes.ResponseCheckTx, err error)
	NewContext(ctx context.Context)
	Prepare(ctx context.Context, st *state.State, btx *tx.MFundTx) (res *abcitypes.ExecTxResult, err error)
	Process(ctx context.Context, st *state.State, btx *tx.MFundTx) (res *abcitypes.ExecTxResult, err error)
}
