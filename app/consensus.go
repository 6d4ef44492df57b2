package app

import (
	"context"
	"errors"

	"github.com/milefund/mfund-app/state"
	"github.com/milefund/mfund-app/tx"
	abcitypes "github.com/cometbft/cometbft/abci/types"
)

var (
	ErrUnexpectedTxProcess = errors.New("unexpected tx process")
)

func (app *MFundApp) getState() (st *state.State) {
	st = app.db.NewState()
	app.st = st
	return
}

func (app *MFundApp) parseTx(txDat []byte, allowNonceGap bool) (btx *tx.MFundTx, err error) {
	btx, err = tx.UnmarshalMFundTx(txDat)
	if err != nil {
		return
	}
	if btx != nil {
		_, err = app.db.State().Verify(btx, allowNonceGap)
	}
	return
}

func (app *MFundApp) CheckTx(ctx context.Context, check *abcitypes.RequestCheckTx) (res *abcitypes.ResponseCheckTx, err error) {
	res = &abcitypes.ResponseCheckTx{Code: 0}
	btx, err := app.parseTx(check.Tx, true)
	if err != nil {
		app.logger.Error("parse tx fail", "err", err)
		res.Code = 1
		res.Log = err.Error()
		err = nil
		return
	}
	app.logger.Info("check tx", "type", btx.Type)
	h, ok := app.txHdlrs[btx.Type]
	if !ok {
		app.logger.Error("unsupported tx", "type", btx.Type)
		res.Code = 1
		res.Log = "unsupported tx"
		return
	}
	st := app.db.State()
	res, err = h.Check(ctx, st, btx)
	if err != nil {
		app.logger.Error("check tx fail", "err", err)
		res.Code = 1
		res.Log = err.Error()
		err = nil
	}

	return
}

func (app *MFundApp) PrepareProposal(ctx context.Context, proposal *abcitypes.RequestPrepareProposal) (res *abcitypes.ResponsePrepareProposal, err error) {
	app.logger.Info("PrepareProposal", "height", proposal.Height)
	st := app.getState()
	st.SetBlockTime(uint64(proposal.Time.Unix()))
	for _, h := range app.txHdlrs {
		h.NewContext(ctx)
	}
	txs := make([][]byte, 0)
	for _, stx := range proposal.Txs {
		stTmp := st.Clone()
		btx, err := app.parseTx(stx, false)
		if err != nil {
			app.logger.Error("unsupported tx, parse fail", "err", err)
			continue
		}
		h, ok := app.txHdlrs[btx.Type]
		if !ok {
			app.logger.Error("unsupported tx", "type", btx.Type)
			continue
		}
		result, err := h.Prepare(ctx, stTmp, btx)
		if err != nil {
			app.logger.Error("prepare tx fail", "type", btx.Type, "err", err)
			continue
		}
		if result == nil {
			app.logger.Error("prepare tx nil result", "type", btx.Type)
			continue
		}
		if result.Code != 0 {
			app.logger.Error("prepare tx fail", "type", btx.Type, "code", result.Code)
			continue
		}
		st = stTmp
		txs = append(txs, stx)
	}
	return &abcitypes.ResponsePrepareProposal{Txs: txs}, nil
}

func (app *MFundApp) process(ctx context.Context, st *state.State, txs [][]byte) (res []*abcitypes.ExecTxResult, err error) {
	for _, h := range app.txHdlrs {
		h.NewContext(ctx)
	}
	res = make([]*abcitypes.ExecTxResult, len(txs))
	for i, stx := range txs {
		btx, err := app.parseTx(stx, false)
		if err != nil {
			app.logger.Error("unexpected tx, parse fail", "err", err)
			return nil, err
		}
		h, ok := app.txHdlrs[btx.Type]
		if !ok {
			app.logger.Error("unexpected tx, no handler", "type", btx.Type)
			return nil, ErrUnexpectedTxProcess
		}
		result, err := h.Process(ctx, st, btx)
		if err != nil {
			app.logger.Error("unexpected process tx fail", "type", btx.Type, "err", err)
			return nil, ErrUnexpectedTxProcess
		}
		if result == nil {
			app.logger.Error("unexpected process tx nil result", "type", btx.Type)
			return nil, ErrUnexpectedTxProcess
		}
		if result.Code != 0 {
			app.logger.Error("unexpected process tx fail", "type", btx.Type, "code", result.Code)
			return nil, ErrUnexpectedTxProcess
		}
		res[i] = result
	}
	return res, nil
}

func (app *MFundApp) ProcessProposal(ctx context.Context, proposal *abcitypes.RequestProcessProposal) (res *abcitypes.ResponseProcessProposal, err error) {
	app.logger.Info("ProcessProposal", "height", proposal.Height)
	res = &abcitypes.ResponseProcessProposal{Status: abcitypes.ResponseProcessProposal_REJECT}
	if len(proposal.Txs) == 0 {
		res.Status = abcitypes.ResponseProcessProposal_ACCEPT
		return res, nil
	}
	st := app.getState()
	st.SetBlockTime(uint64(proposal.Time.Unix()))

	_, err = app.process(ctx, st, proposal.Txs)
	if err != nil {
		app.logger.Error("process fail", "err", err)
		return res, nil
	}
	res.Status = abcitypes.ResponseProcessProposal_ACCEPT
	app.logger.Info("proposal accepted", "height", proposal.Height)
	return res, nil
}

func (app *MFundApp) FinalizeBlock(ctx context.Context, req *abcitypes.RequestFinalizeBlock) (*abcitypes.ResponseFinalizeBlock, error) {
	app.logger.Info("FinalizeBlock", "height", req.Height)
	app.lastBlk.Set(req)
	st := app.getState()
	st.SetBlockTime(uint64(req.Time.Unix()))
	res, err := app.process(ctx, st, req.Txs)
	if err != nil {
		return nil, err
	}
	h, err := st.Update()
	if err != nil {
		app.logger.Error("state update hash fail", "err", err)
		return nil, err
	}
	return &abcitypes.ResponseFinalizeBlock{
		TxResults: res,
		AppHash:   h.Bytes(),
	}, nil
}

func (app *MFundApp) Commit(ctx context.Context, commit *abcitypes.RequestCommit) (*abcitypes.ResponseCommit, error) {
	_, err := app.db.SetState(app.st)
	if err != nil {
		return nil, err
	}
	app.st = nil
	app.logger.Info("Commit")
	return &abcitypes.ResponseCommit{}, nil
}
