package state

// StateHeader carries the per-height bookkeeping persisted alongside the
// escrow records. BlockTime is the unix timestamp of the last finalized
// block and is the only clock the transitions consult.
type StateHeader struct {
	ChainId    string `json:"chainId"`
	Height     uint64 `json:"height"`
	Hash       []byte `json:"hash"`
	RootHash   []byte `json:"rootHash"`
	AccountIdx uint64 `json:"accountIdx"`
	BlockTime  uint64 `json:"blockTime"`
}

func (h *StateHeader) Clone() *StateHeader {
	n := &StateHeader{
		ChainId:    h.ChainId,
		Height:     h.Height,
		AccountIdx: h.AccountIdx,
		BlockTime:  h.BlockTime,
	}
	if h.Hash != nil {
		n.Hash = make([]byte, len(h.Hash))
		copy(n.Hash, h.Hash)
	}
	if h.RootHash != nil {
		n.RootHash = make([]byte, len(h.RootHash))
		copy(n.RootHash, h.RootHash)
	}
	return n
}
