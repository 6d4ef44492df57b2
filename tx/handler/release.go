package handler

import (
	"context"

	"github.com/milefund/mfund-app/state"
	"github.com/milefund/mfund-app/tx"
	"github.com/milefund/mfund-app/types"
	abcitypes "github.com/cometbft/cometbft/abci/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
)

type ReleaseTxHandler struct {
	logger cmtlog.Logger

	milestoneSet map[uint64]bool
}

func NewReleaseTxHandler(logger cmtlog.Logger) (h *ReleaseTxHandler) {
	logger = logger.With("module", "releaseTx")
	h = &ReleaseTxHandler{
		logger:       logger,
		milestoneSet: make(map[uint64]bool),
	}
	return
}

func (h *ReleaseTxHandler) Check(ctx context.Context, st *state.State, btx *tx.MFundTx) (res *abcitypes.ResponseCheckTx, err error) {
	res = &abcitypes.ResponseCheckTx{Code: 0}
	rtx := btx.Tx.(*tx.ReleaseTx)
	_, err1 := st.Release(rtx, btx.Signer, true)
	if err1 != nil {
		h.logger.Info("CheckTx release fail", "err", err1)
		res.Code = 1
		res.Log = err1.Error()
	}
	return
}

func (h *ReleaseTxHandler) NewContext(ctx context.Context) {
	h.milestoneSet = make(map[uint64]bool)
}

// one settlement per milestone per block; the released flag rejects the
// rest forever
func (h *ReleaseTxHandler) handle(ctx context.Context, st *state.State, btx *tx.MFundTx) (res *abcitypes.ExecTxResult, err error) {
	rtx := btx.Tx.(*tx.ReleaseTx)
	if _, ok := h.milestoneSet[rtx.Milestone]; ok {
		return nil, state.ErrMilestoneAlreadyReleased
	}
	event, err := st.Release(rtx, btx.Signer, false)
	if err != nil {
		return nil, err
	}
	h.milestoneSet[rtx.Milestone] = true
	res = &abcitypes.ExecTxResult{}
	if event != nil {
		res.Events = []abcitypes.Event{types.EncodeEventRelease(event)}
	}
	return
}

func (h *ReleaseTxHandler) Prepare(ctx context.Context, st *state.State, btx *tx.MFundTx) (res *abcitypes.ExecTxResult, err error) {
	return h.handle(ctx, st, btx)
}

func (h *ReleaseTxHandler) Process(ctx context.Context, st *state.State, btx *tx.MFundTx) (res *abcitypes.ExecTxResult, err error) {
	return h.handle(ctx, st, btx)
}
