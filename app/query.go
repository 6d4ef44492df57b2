package app

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/milefund/mfund-app/state"
	abcitypes "github.com/cometbft/cometbft/abci/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
)

func (app *MFundApp) Query(ctx context.Context, req *abcitypes.RequestQuery) (res *abcitypes.ResponseQuery, err error) {
	path := req.Path
	if !strings.HasSuffix(path, "/") {
		path += "/"
	}
	q, ok := app.queriers[path]
	if !ok {
		res = &abcitypes.ResponseQuery{}
		res.Code = 404
		return
	}
	res, err = q.Query(ctx, req)
	return
}

type Querier interface {
	Query(ctx context.Context, req *abcitypes.RequestQuery) (res *abcitypes.ResponseQuery, err error)
}

func decodeIndex(dat []byte) uint64 {
	var idx uint64
	for _, v := range dat {
		idx <<= 8
		idx |= uint64(v)
	}
	return idx
}

type AccountQuerier struct {
	db     *state.StateDB
	logger cmtlog.Logger
}

func NewAccountQuerier(db *state.StateDB, logger cmtlog.Logger) (q *AccountQuerier) {
	q = &AccountQuerier{
		db:     db,
		logger: logger,
	}
	return
}

func (q *AccountQuerier) Query(ctx context.Context, req *abcitypes.RequestQuery) (res *abcitypes.ResponseQuery, err error) {
	res = &abcitypes.ResponseQuery{}
	var a *state.Account
	var height uint64
	if len(req.Data) == 20 {
		a, height, _ = q.db.GetAccountByAddress(req.Data)
	} else if len(req.Data) <= 8 {
		a, height, _ = q.db.GetAccountByIndex(decodeIndex(req.Data))
	}
	if a != nil {
		res.Value, _ = json.Marshal(a)
		res.Height = int64(height)
	} else {
		res.Code = 1
	}
	return
}

// ProjectQuerier serves the full escrow record for client display. It is
// read-only and needs no authorization.
type ProjectQuerier struct {
	db     *state.StateDB
	logger cmtlog.Logger
}

func NewProjectQuerier(db *state.StateDB, logger cmtlog.Logger) (q *ProjectQuerier) {
	q = &ProjectQuerier{
		db:     db,
		logger: logger,
	}
	return
}

func (q *ProjectQuerier) Query(ctx context.Context, req *abcitypes.RequestQuery) (res *abcitypes.ResponseQuery, err error) {
	res = &abcitypes.ResponseQuery{}
	proj, height, err := q.db.GetProject()
	if err != nil || proj == nil {
		res.Code = 1
		err = nil
		return
	}
	res.Height = int64(height)
	res.Value, _ = json.Marshal(proj)
	return
}

// BackerQuerier resolves a backer (by 20-byte address or by account
// index) to their contribution record.
type BackerQuerier struct {
	db     *state.StateDB
	logger cmtlog.Logger
}

func NewBackerQuerier(db *state.StateDB, logger cmtlog.Logger) (q *BackerQuerier) {
	q = &BackerQuerier{
		db:     db,
		logger: logger,
	}
	return
}

func (q *BackerQuerier) Query(ctx context.Context, req *abcitypes.RequestQuery) (res *abcitypes.ResponseQuery, err error) {
	res = &abcitypes.ResponseQuery{}
	var idx uint64
	if len(req.Data) == 20 {
		a, _, _ := q.db.GetAccountByAddress(req.Data)
		if a == nil {
			res.Code = 1
			return
		}
		idx = a.Index
	} else if len(req.Data) <= 8 {
		idx = decodeIndex(req.Data)
	} else {
		res.Code = 1
		return
	}
	c, height, err := q.db.GetContribution(idx)
	if err != nil || c == nil {
		res.Code = 1
		err = nil
		return
	}
	res.Height = int64(height)
	res.Value, _ = json.Marshal(c)
	return
}
