package handler

import (
	"context"

	"github.com/milefund/mfund-app/state"
	"github.com/milefund/mfund-app/tx"
	"github.com/milefund/mfund-app/types"
	abcitypes "github.com/cometbft/cometbft/abci/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
)

type FundTxHandler struct {
	logger cmtlog.Logger
}

func NewFundTxHandler(logger cmtlog.Logger) (h *FundTxHandler) {
	logger = logger.With("module", "fundTx")
	h = &FundTxHandler{
		logger: logger,
	}
	return
}

func (h *FundTxHandler) Check(ctx context.Context, st *state.State, btx *tx.MFundTx) (res *abcitypes.ResponseCheckTx, err error) {
	res = &abcitypes.ResponseCheckTx{Code: 0}
	ftx := btx.Tx.(*tx.FundTx)
	_, err1 := st.Fund(ftx, btx.Signer, true)
	if err1 != nil {
		h.logger.Info("CheckTx fund fail", "err", err1)
		res.Code = 1
		res.Log = err1.Error()
	}
	return
}

func (h *FundTxHandler) NewContext(ctx context.Context) {}

func (h *FundTxHandler) handle(ctx context.Context, st *state.State, btx *tx.MFundTx) (res *abcitypes.ExecTxResult, err error) {
	ftx := btx.Tx.(*tx.FundTx)
	event, err := st.Fund(ftx, btx.Signer, false)
	if err != nil {
		return nil, err
	}
	res = &abcitypes.ExecTxResult{}
	if event != nil {
		res.Events = []abcitypes.Event{types.EncodeEventFund(event)}
	}
	return
}

func (h *FundTxHandler) Prepare(ctx context.Context, st *state.State, btx *tx.MFundTx) (res *abcitypes.ExecTxResult, err error) {
	return h.handle(ctx, st, btx)
}

func (h *FundTxHandler) Process(ctx context.Context, st *state.State, btx *tx.MFundTx) (res *abcitypes.ExecTxResult, err error) {
	return h.handle(ctx, st, btx)
}
