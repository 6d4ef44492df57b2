package app

import (
	"context"
	"encoding/json"

	"github.com/milefund/mfund-app/config"
	"github.com/milefund/mfund-app/state"
	"github.com/milefund/mfund-app/tx"
	"github.com/milefund/mfund-app/tx/handler"
	mfund_types "github.com/milefund/mfund-app/types"
	abcitypes "github.com/cometbft/cometbft/abci/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/cometbft/cometbft/store"
	"github.com/ethereum/go-ethereum/common"
)

type finalizeBlock struct {
	Height uint64
	Hash   common.Hash
}

func (b *finalizeBlock) Set(blk *abcitypes.RequestFinalizeBlock) {
	b.Height = uint64(blk.Height)
	b.Hash = common.BytesToHash(blk.Hash)
}

var _ abcitypes.Application = &MFundApp{}

// MFundApp is the milestone-escrow chain application. CometBFT delivers
// signed txs and block time; the app applies them to the escrow state
// machine one serialized block at a time.
type MFundApp struct {
	cfg    *config.MFundAppConfig
	logger cmtlog.Logger

	db       *state.StateDB
	lastBlk  finalizeBlock
	txHdlrs  map[tx.MFundTxType]handler.TxHandler
	queriers map[string]Querier

	st *state.State
}

func NewMFundApp(cfg *config.MFundAppConfig, logger cmtlog.Logger) (app *MFundApp, err error) {
	logger = logger.With("module", "app")

	dir := cfg.Home + "/data"
	db, err := state.NewStateDB(dir, logger)
	if err != nil {
		return nil, err
	}

	app = &MFundApp{
		cfg:      cfg,
		logger:   logger,
		db:       db,
		txHdlrs:  make(map[tx.MFundTxType]handler.TxHandler),
		queriers: make(map[string]Querier),
	}
	app.registerTxHandler()
	app.registerQuerier()
	return
}

func (app *MFundApp) Start(bs *store.BlockStore) {
	height := app.db.Header().Height
	if height > 0 {
		blk := bs.LoadBlock(int64(height))
		if blk == nil {
			panic("unexpected BlockStore")
		}
		app.lastBlk.Height = height
		app.lastBlk.Hash = common.BytesToHash(blk.Hash())
	}
}

func (app *MFundApp) Stop() {
	err := app.db.Close()
	if err != nil {
		app.logger.Error("close db fail", "err", err)
	}
	app.logger.Info("mfund app stopped")
}

func (app *MFundApp) DB() *state.StateDB {
	return app.db
}

func (app *MFundApp) registerTxHandler() {
	app.txHdlrs = map[tx.MFundTxType]handler.TxHandler{
		tx.MFundTxTypeInitialize: handler.NewInitializeTxHandler(app.logger),
		tx.MFundTxTypeFund:       handler.NewFundTxHandler(app.logger),
		tx.MFundTxTypeVote:       handler.NewVoteTxHandler(app.logger),
		tx.MFundTxTypeRelease:    handler.NewReleaseTxHandler(app.logger),
		tx.MFundTxTypeRefund:     handler.NewRefundTxHandler(app.logger),
	}
}

func (app *MFundApp) registerQuerier() {
	aq := NewAccountQuerier(app.db, app.logger)
	pq := NewProjectQuerier(app.db, app.logger)
	bq := NewBackerQuerier(app.db, app.logger)
	app.queriers["/accounts/"] = aq
	app.queriers["/project/"] = pq
	app.queriers["/backers/"] = bq
}

func (app *MFundApp) InitChain(_ context.Context, chain *abcitypes.RequestInitChain) (res *abcitypes.ResponseInitChain, err error) {
	st := app.db.NewState()
	st.SetChainId(chain.ChainId)
	st.SetBlockTime(uint64(chain.Time.Unix()))
	if len(chain.AppStateBytes) > 0 {
		var appState mfund_types.AppState
		if err = json.Unmarshal(chain.AppStateBytes, &appState); err != nil {
			app.logger.Error("InitChain parse app state fail", "err", err)
			return nil, err
		}
		for _, ga := range appState.Accounts {
			var acnt state.Account
			acnt.SetPubKey(ga.PubKey)
			acnt.Name = ga.Name
			acnt.Balances = make(map[string]uint64, len(ga.Balances))
			for denom, amount := range ga.Balances {
				acnt.Balances[denom] = amount
			}
			err = st.AddAccount(&acnt)
			if err != nil {
				app.logger.Error("InitChain add account fail", "err", err)
				return nil, err
			}
		}
	}
	var h common.Hash
	_, err = st.Update()
	if err != nil {
		app.logger.Error("InitChain update state fail", "err", err)
		return nil, err
	}
	h, err = app.db.SetState(st)
	if err != nil {
		app.logger.Error("InitChain apply state fail", "err", err)
		return nil, err
	}
	return &abcitypes.ResponseInitChain{
		AppHash: h.Bytes(),
	}, nil
}

func (app *MFundApp) Info(ctx context.Context, info *abcitypes.RequestInfo) (*abcitypes.ResponseInfo, error) {
	header := app.db.Header()
	return &abcitypes.ResponseInfo{
		LastBlockHeight:  int64(header.Height),
		LastBlockAppHash: header.Hash,
	}, nil
}

func (app *MFundApp) ExtendVote(_ context.Context, extend *abcitypes.RequestExtendVote) (*abcitypes.ResponseExtendVote, error) {
	return &abcitypes.ResponseExtendVote{}, nil
}

func (app *MFundApp) VerifyVoteExtension(_ context.Context, verify *abcitypes.RequestVerifyVoteExtension) (*abcitypes.ResponseVerifyVoteExtension, error) {
	return &abcitypes.ResponseVerifyVoteExtension{}, nil
}

func (app *MFundApp) ApplySnapshotChunk(context.Context, *abcitypes.RequestApplySnapshotChunk) (*abcitypes.ResponseApplySnapshotChunk, error) {
	return nil, nil
}

func (app *MFundApp) ListSnapshots(context.Context, *abcitypes.RequestListSnapshots) (*abcitypes.ResponseListSnapshots, error) {
	return nil, nil
}

func (app *MFundApp) LoadSnapshotChunk(context.Context, *abcitypes.RequestLoadSnapshotChunk) (*abcitypes.ResponseLoadSnapshotChunk, error) {
	return nil, nil
}

func (app *MFundApp) OfferSnapshot(context.Context, *abcitypes.RequestOfferSnapshot) (*abcitypes.ResponseOfferSnapshot, error) {
	return nil, nil
}
