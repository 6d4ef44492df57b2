package handler

import (
	"context"

	"github.com/milefund/mfund-app/state"
	"github.com/milefund/mfund-app/tx"
	"github.com/milefund/mfund-app/types"
	abcitypes "github.com/cometbft/cometbft/abci/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
)

type RefundTxHandler struct {
	logger cmtlog.Logger

	backerSet map[uint64]bool
}

func NewRefundTxHandler(logger cmtlog.Logger) (h *RefundTxHandler) {
	logger = logger.With("module", "refundTx")
	h = &RefundTxHandler{
		logger:    logger,
		backerSet: make(map[uint64]bool),
	}
	return
}

func (h *RefundTxHandler) Check(ctx context.Context, st *state.State, btx *tx.MFundTx) (res *abcitypes.ResponseCheckTx, err error) {
	res = &abcitypes.ResponseCheckTx{Code: 0}
	_, err1 := st.Refund(btx.Signer, true)
	if err1 != nil {
		h.logger.Info("CheckTx refund fail", "err", err1)
		res.Code = 1
		res.Log = err1.Error()
	}
	return
}

func (h *RefundTxHandler) NewContext(ctx context.Context) {
	h.backerSet = make(map[uint64]bool)
}

func (h *RefundTxHandler) handle(ctx context.Context, st *state.State, btx *tx.MFundTx) (res *abcitypes.ExecTxResult, err error) {
	if _, ok := h.backerSet[btx.Signer]; ok {
		return nil, state.ErrOneActionInOneBlock
	}
	event, err := st.Refund(btx.Signer, false)
	if err != nil {
		return nil, err
	}
	h.backerSet[btx.Signer] = true
	res = &abcitypes.ExecTxResult{}
	if event != nil {
		res.Events = []abcitypes.Event{types.EncodeEventRefund(event)}
	}
	return
}

func (h *RefundTxHandler) Prepare(ctx context.Context, st *state.State, btx *tx.MFundTx) (res *abcitypes.ExecTxResult, err error) {
	return h.handle(ctx, st, btx)
}

func (h *RefundTxHandler) Process(ctx context.Context, st *state.State, btx *tx.MFundTx) (res *abcitypes.ExecTxResult, err error) {
	return h.handle(ctx, st, btx)
}
