package handler

import (
	"context"

	"github.com/milefund/mfund-app/state"
	"github.com/milefund/mfund-app/tx"
	"github.com/milefund/mfund-app/types"
	abcitypes "github.com/cometbft/cometbft/abci/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
)

type InitializeTxHandler struct {
	logger cmtlog.Logger

	initialized bool
}

func NewInitializeTxHandler(logger cmtlog.Logger) (h *InitializeTxHandler) {
	logger = logger.With("module", "initializeTx")
	h = &InitializeTxHandler{
		logger: logger,
	}
	return
}

func (h *InitializeTxHandler) Check(ctx context.Context, st *state.State, btx *tx.MFundTx) (res *abcitypes.ResponseCheckTx, err error) {
	res = &abcitypes.ResponseCheckTx{Code: 0}
	itx := btx.Tx.(*tx.InitializeTx)
	_, err1 := st.InitializeProject(itx, btx.Signer, true)
	if err1 != nil {
		h.logger.Info("CheckTx initialize fail", "err", err1)
		res.Code = 1
		res.Log = err1.Error()
	}
	return
}

func (h *InitializeTxHandler) NewContext(ctx context.Context) {
	h.initialized = false
}

// at most one initialize per block; the state guard rejects the rest of
// the chain's lifetime
func (h *InitializeTxHandler) handle(ctx context.Context, st *state.State, btx *tx.MFundTx) (res *abcitypes.ExecTxResult, err error) {
	if h.initialized {
		return nil, state.ErrAlreadyInitialized
	}
	itx := btx.Tx.(*tx.InitializeTx)
	event, err := st.InitializeProject(itx, btx.Signer, false)
	if err != nil {
		return nil, err
	}
	h.initialized = true
	res = &abcitypes.ExecTxResult{}
	if event != nil {
		res.Events = []abcitypes.Event{types.EncodeEventProjectInit(event)}
	}
	return
}

func (h *InitializeTxHandler) Prepare(ctx context.Context, st *state.State, btx *tx.MFundTx) (res *abcitypes.ExecTxResult, err error) {
	return h.handle(ctx, st, btx)
}

func (h *InitializeTxHandler) Process(ctx context.Context, st *state.State, btx *tx.MFundTx) (res *abcitypes.ExecTxResult, err error) {
	return h.handle(ctx, st, btx)
}
