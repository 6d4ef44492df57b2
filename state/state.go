package state

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/milefund/mfund-app/tx"
	mfund_types "github.com/milefund/mfund-app/types"
	cmtcrypto "github.com/cometbft/cometbft/crypto"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/cosmos/iavl"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/syndtr/goleveldb/leveldb"
)

const (
	StartAccountIdx = 65536

	ModifiedFlagNew = 1 << 0
	ModifiedFlagMod = 1 << 1
)

var (
	ErrNotFound = errors.New("not found")
)

var (
	KeyState        = "s"
	KeyAccountIndex = "i%s"
	KeyAccountBody  = "a%x"
	KeyProject      = "p"
	KeyContribution = "c%v"
	KeyVote         = "v%v:%v"
)

var (
	ErrTxSignerNoexists     = errors.New("signer noexists")
	ErrTxNonceInvalid       = errors.New("nonce invalid")
	ErrTxSigInvalid         = errors.New("signature invalid")
	ErrAccountAlreadyExists = errors.New("account already exists")
	ErrAccountNoexists      = errors.New("account noexists")
	ErrOneActionInOneBlock  = errors.New("one action in one block")

	ErrAlreadyInitialized         = errors.New("project already initialized")
	ErrNotInitialized             = errors.New("project not initialized")
	ErrInvalidGoal                = errors.New("goal must be positive")
	ErrInvalidDeadline            = errors.New("deadline must be in the future")
	ErrInvalidMilestoneSet        = errors.New("milestone set empty or malformed")
	ErrInvalidMilestoneAllocation = errors.New("milestone amounts mismatch goal")
	ErrFundingClosed              = errors.New("funding closed")
	ErrInvalidAmount              = errors.New("amount must be positive")
	ErrInvalidMilestoneIndex      = errors.New("milestone index invalid")
	ErrMilestoneAlreadyReleased   = errors.New("milestone already released")
	ErrUnauthorized               = errors.New("unauthorized")
	ErrAlreadyVoted               = errors.New("already voted")
	ErrThresholdNotMet            = errors.New("approval threshold not met")
	ErrDeadlineNotPassed          = errors.New("deadline not passed")
	ErrGoalWasMet                 = errors.New("goal was met")
	ErrNoContribution             = errors.New("no contribution")
	ErrAlreadyRefunded            = errors.New("already refunded")
	ErrTransferFailed             = errors.New("transfer failed")
)

// State is one exclusive view of the escrow ledger: the project record,
// the account/token ledger, per-backer contributions and per-milestone
// vote markers. Every mutation is buffered in memory and hits the IAVL
// tree only in Update, so a failed transition leaves nothing behind.
type State struct {
	logger cmtlog.Logger
	db     *iavl.MutableTree
	dbVer  int64

	header *StateHeader
	idxs   map[string]uint64
	acnts  map[uint64]*Account

	modifiedAcnts map[uint64]uint32
	project       *mfund_types.Project
	projectDirty  bool
	contribs      map[uint64]*mfund_types.Contribution
	modContribs   map[uint64]bool
	newVotes      map[string]uint64
}

func newState(db *iavl.MutableTree, logger cmtlog.Logger) *State {
	s := &State{
		logger:        logger,
		db:            db,
		dbVer:         0,
		header:        new(StateHeader),
		idxs:          make(map[string]uint64),
		acnts:         make(map[uint64]*Account),
		modifiedAcnts: make(map[uint64]uint32),
		contribs:      make(map[uint64]*mfund_types.Contribution),
		modContribs:   make(map[uint64]bool),
		newVotes:      make(map[string]uint64),
	}
	s.header.AccountIdx = StartAccountIdx
	return s
}

func (s *State) nextState() *State {
	n := &State{
		logger:        s.logger,
		db:            s.db,
		dbVer:         s.dbVer,
		idxs:          make(map[string]uint64),
		acnts:         make(map[uint64]*Account),
		modifiedAcnts: make(map[uint64]uint32),
		contribs:      make(map[uint64]*mfund_types.Contribution),
		modContribs:   make(map[uint64]bool),
		newVotes:      make(map[string]uint64),
	}
	n.header = s.header.Clone()
	if s.header.Hash != nil {
		n.header.Height = s.header.Height + 1
	}
	return n
}

func cloneProject(p *mfund_types.Project) *mfund_types.Project {
	if p == nil {
		return nil
	}
	n := *p
	n.Milestones = make([]mfund_types.Milestone, len(p.Milestones))
	copy(n.Milestones, p.Milestones)
	return &n
}

func cloneContribution(c *mfund_types.Contribution) *mfund_types.Contribution {
	if c == nil {
		return nil
	}
	n := *c
	return &n
}

func (s *State) Clone() *State {
	n := &State{
		logger:        s.logger,
		db:            s.db,
		dbVer:         s.dbVer,
		idxs:          make(map[string]uint64),
		acnts:         make(map[uint64]*Account),
		modifiedAcnts: make(map[uint64]uint32),
		project:       cloneProject(s.project),
		projectDirty:  s.projectDirty,
		contribs:      make(map[uint64]*mfund_types.Contribution),
		modContribs:   make(map[uint64]bool),
		newVotes:      make(map[string]uint64),
	}
	n.header = s.header.Clone()
	for k, v := range s.idxs {
		n.idxs[k] = v
	}
	for k, v := range s.acnts {
		n.acnts[k] = v.Clone()
	}
	for k, v := range s.modifiedAcnts {
		n.modifiedAcnts[k] = v
	}
	for k, v := range s.contribs {
		n.contribs[k] = cloneContribution(v)
	}
	for k, v := range s.modContribs {
		n.modContribs[k] = v
	}
	for k, v := range s.newVotes {
		n.newVotes[k] = v
	}
	return n
}

func (s *State) load() (err error) {
	val, err := s.db.Get([]byte(KeyState))
	if err != nil {
		if err == leveldb.ErrNotFound {
			return nil
		}
		return err
	}
	if val != nil {
		err = json.Unmarshal(val, s.header)
		if err != nil {
			return
		}
		h := s.db.Hash()
		if h != nil {
			s.calcHash(h, true)
		}
	}
	return
}

func (s *State) calcHash(rootHash []byte, update bool) (h common.Hash) {
	h = crypto.Keccak256Hash(rootHash)
	if update {
		if s.header.RootHash == nil {
			s.header.RootHash = make([]byte, len(rootHash))
		}
		copy(s.header.RootHash, rootHash)
		if s.header.Hash == nil {
			s.header.Hash = make([]byte, len(h))
		}
		copy(s.header.Hash, h[:])
	}
	return
}

// Update flushes all buffered mutations into the working IAVL tree and
// returns the resulting app hash. On any write error the tree is rolled
// back, keeping the whole block all-or-nothing.
func (s *State) Update() (h common.Hash, err error) {
	var hash []byte
	defer func() {
		if hash == nil {
			s.db.Rollback()
		}
	}()
	var val []byte
	val, err = json.Marshal(s.header)
	if err != nil {
		return
	}
	_, err = s.db.Set([]byte(KeyState), val)
	if err != nil {
		return
	}

	if s.projectDirty && s.project != nil {
		val, err = json.Marshal(s.project)
		if err != nil {
			return
		}
		_, err = s.db.Set([]byte(KeyProject), val)
		if err != nil {
			return
		}
	}

	for idx := range s.modContribs {
		c := s.contribs[idx]
		key := fmt.Sprintf(KeyContribution, idx)
		val, err = json.Marshal(c)
		if err != nil {
			return
		}
		_, err = s.db.Set([]byte(key), val)
		if err != nil {
			return
		}
	}

	for key, weight := range s.newVotes {
		val, err = rlp.EncodeToBytes(weight)
		if err != nil {
			return
		}
		_, err = s.db.Set([]byte(key), val)
		if err != nil {
			return
		}
	}

	for idx, flag := range s.modifiedAcnts {
		acnt := s.acnts[idx]
		key := fmt.Sprintf(KeyAccountBody, acnt.Index)
		val, err = json.Marshal(acnt)
		if err != nil {
			return
		}
		_, err = s.db.Set([]byte(key), val)
		if err != nil {
			return
		}
		if flag&ModifiedFlagNew == ModifiedFlagNew {
			key = fmt.Sprintf(KeyAccountIndex, acnt.Address())
			val, err = rlp.EncodeToBytes(acnt.Index)
			if err != nil {
				return
			}
			_, err = s.db.Set([]byte(key), val)
			if err != nil {
				return
			}
		}
	}
	hash = s.db.WorkingHash()
	h = s.calcHash(hash, false)
	s.modifiedAcnts = make(map[uint64]uint32)
	s.modContribs = make(map[uint64]bool)
	s.newVotes = make(map[string]uint64)
	s.projectDirty = false
	return
}

func (s *State) save() (h common.Hash, err error) {
	hash, ver, err := s.db.SaveVersion()
	if err != nil {
		return h, err
	}

	s.dbVer = ver
	h = s.calcHash(hash, true)

	return
}

func (s *State) Header() *StateHeader {
	return s.header
}

func (s *State) Hash() (h common.Hash) {
	if s.header.Hash != nil {
		copy(h[:], s.header.Hash)
	}
	return
}

func (s *State) SetChainId(chainId string) {
	s.header.ChainId = chainId
}

// SetBlockTime records the timestamp of the block being executed; it is
// the current time every deadline comparison uses.
func (s *State) SetBlockTime(t uint64) {
	s.header.BlockTime = t
}

func (s *State) BlockTime() uint64 {
	return s.header.BlockTime
}

func (s *State) GetAccount(idx uint64) (acnt *Account, err error) {
	if idx >= s.header.AccountIdx {
		err = ErrAccountNoexists
		return
	}
	acnt = s.acnts[idx]
	if acnt != nil {
		return
	}
	key := fmt.Sprintf(KeyAccountBody, idx)
	val, err := s.db.Get([]byte(key))
	if err != nil {
		return nil, err
	}
	if val == nil {
		err = ErrNotFound
		return
	}
	acnt = new(Account)
	err = json.Unmarshal(val, acnt)
	if err != nil {
		acnt = nil
		return
	}
	s.acnts[idx] = acnt
	return
}

func (s *State) FindAccount(addr []byte) (acnt *Account, err error) {
	saddr := cmtcrypto.Address(addr).String()
	idx, ok := s.idxs[saddr]
	if !ok {
		key := fmt.Sprintf(KeyAccountIndex, saddr)
		val, err := s.db.Get([]byte(key))
		if err != nil {
			if err == leveldb.ErrNotFound {
				return nil, nil
			}
			return nil, err
		}
		if val == nil {
			return nil, nil
		}
		err = rlp.DecodeBytes(val, &idx)
		if err != nil {
			return nil, err
		}
		s.idxs[saddr] = idx
	}
	acnt, err = s.GetAccount(idx)

	return
}

func (s *State) AddAccount(acnt *Account) (err error) {
	a, err := s.FindAccount(acnt.AddrBytes())
	if err != nil {
		return err
	}
	if a != nil {
		err = ErrAccountAlreadyExists
		return
	}
	acnt.Index = s.header.AccountIdx
	s.header.AccountIdx += 1
	s.acnts[acnt.Index] = acnt.Clone()
	s.modifiedAcnts[acnt.Index] = ModifiedFlagNew
	return
}

func (s *State) Verify(btx *tx.MFundTx, allowNonceGap bool) (succ bool, err error) {
	a, err := s.GetAccount(btx.Signer)
	if err != nil {
		if err == ErrNotFound || err == ErrAccountNoexists {
			err = ErrTxSignerNoexists
		}
		return succ, err
	}
	if a == nil {
		err = ErrTxSignerNoexists
		return
	}
	if !(a.Nonce == btx.Nonce || (allowNonceGap && a.Nonce < btx.Nonce)) {
		err = ErrTxNonceInvalid
		return
	}
	dat, err := btx.SigData([]byte(s.header.ChainId))
	if err != nil {
		return succ, err
	}
	succ = a.Verify(dat, btx.Sig)
	if !succ {
		err = ErrTxSigInvalid
	}
	return
}

// GetProject returns the escrow record, nil if initialize has not run.
func (s *State) GetProject() (*mfund_types.Project, error) {
	if s.project != nil {
		return s.project, nil
	}
	val, err := s.db.Get([]byte(KeyProject))
	if err != nil {
		if err == leveldb.ErrNotFound {
			return nil, nil
		}
		return nil, err
	}
	if val == nil {
		return nil, nil
	}
	p := new(mfund_types.Project)
	if err = json.Unmarshal(val, p); err != nil {
		return nil, err
	}
	s.project = p
	return p, nil
}

// GetContribution returns the backer's ledger entry, nil if the backer
// never funded.
func (s *State) GetContribution(backer uint64) (*mfund_types.Contribution, error) {
	if c, ok := s.contribs[backer]; ok {
		return c, nil
	}
	key := fmt.Sprintf(KeyContribution, backer)
	val, err := s.db.Get([]byte(key))
	if err != nil {
		if err == leveldb.ErrNotFound {
			return nil, nil
		}
		return nil, err
	}
	if val == nil {
		return nil, nil
	}
	c := new(mfund_types.Contribution)
	if err = json.Unmarshal(val, c); err != nil {
		return nil, err
	}
	s.contribs[backer] = c
	return c, nil
}

// HasVoted reports whether the (backer, milestone) vote marker exists,
// pending or persisted.
func (s *State) HasVoted(milestone, backer uint64) (bool, error) {
	key := fmt.Sprintf(KeyVote, milestone, backer)
	if _, ok := s.newVotes[key]; ok {
		return true, nil
	}
	val, err := s.db.Get([]byte(key))
	if err != nil {
		if err == leveldb.ErrNotFound {
			return false, nil
		}
		return false, err
	}
	return val != nil, nil
}

// VoteWeight returns the cast-time weight recorded for a vote, zero if
// the vote does not exist.
func (s *State) VoteWeight(milestone, backer uint64) (uint64, error) {
	key := fmt.Sprintf(KeyVote, milestone, backer)
	if w, ok := s.newVotes[key]; ok {
		return w, nil
	}
	val, err := s.db.Get([]byte(key))
	if err != nil {
		if err == leveldb.ErrNotFound {
			return 0, nil
		}
		return 0, err
	}
	if val == nil {
		return 0, nil
	}
	var w uint64
	if err = rlp.DecodeBytes(val, &w); err != nil {
		return 0, err
	}
	return w, nil
}

func (s *State) touchAccount(a *Account) {
	a.Nonce += 1
	v := s.modifiedAcnts[a.Index]
	v |= ModifiedFlagMod
	s.modifiedAcnts[a.Index] = v
	s.acnts[a.Index] = a.Clone()
}

// InitializeProject creates the singleton escrow record. Runs once; every
// later attempt fails regardless of arguments.
func (s *State) InitializeProject(itx *tx.InitializeTx, signer uint64, checkOnly bool) (event *mfund_types.EventProjectInit, err error) {
	s.logger.Debug("apply initialize", "signer", signer, "height", s.header.Height)
	proj, err := s.GetProject()
	if err != nil {
		return nil, err
	}
	if proj != nil {
		err = ErrAlreadyInitialized
		return
	}
	a, err := s.GetAccount(signer)
	if err != nil {
		return nil, err
	}
	creator, err := s.GetAccount(itx.Creator)
	if err != nil {
		return nil, err
	}
	if itx.Goal == 0 {
		err = ErrInvalidGoal
		return
	}
	if itx.Deadline <= s.header.BlockTime {
		err = ErrInvalidDeadline
		return
	}
	if itx.Token == "" {
		err = errors.New("token denom is empty")
		return
	}
	if len(itx.Milestones) == 0 {
		err = ErrInvalidMilestoneSet
		return
	}
	var total uint64
	for _, m := range itx.Milestones {
		if m.Amount == 0 {
			err = ErrInvalidMilestoneSet
			return
		}
		total += m.Amount
	}
	if total != itx.Goal {
		err = ErrInvalidMilestoneAllocation
		return
	}
	if !checkOnly {
		milestones := make([]mfund_types.Milestone, len(itx.Milestones))
		for i, m := range itx.Milestones {
			milestones[i] = mfund_types.Milestone{
				Title:  m.Title,
				Amount: m.Amount,
			}
		}
		s.project = &mfund_types.Project{
			Creator:        creator.Index,
			CreatorAddress: creator.Address(),
			Token:          itx.Token,
			Goal:           itx.Goal,
			Deadline:       itx.Deadline,
			Milestones:     milestones,
			Height:         s.header.Height,
		}
		s.projectDirty = true

		s.touchAccount(a)

		event = &mfund_types.EventProjectInit{
			Creator:        creator.Index,
			CreatorAddress: creator.Address(),
			Token:          itx.Token,
			Goal:           itx.Goal,
			Deadline:       itx.Deadline,
			Milestones:     uint64(len(milestones)),
		}
	}
	return
}

// Fund moves tokens from the signer's balance into escrow custody and
// accumulates the contribution. Over-funding past the goal is allowed.
func (s *State) Fund(ftx *tx.FundTx, signer uint64, checkOnly bool) (event *mfund_types.EventFund, err error) {
	s.logger.Debug("apply fund", "signer", signer, "amount", ftx.Amount, "height", s.header.Height)
	proj, err := s.GetProject()
	if err != nil {
		return nil, err
	}
	if proj == nil {
		err = ErrNotInitialized
		return
	}
	a, err := s.GetAccount(signer)
	if err != nil {
		return nil, err
	}
	if s.header.BlockTime > proj.Deadline {
		err = ErrFundingClosed
		return
	}
	if ftx.Amount == 0 {
		err = ErrInvalidAmount
		return
	}
	if a.Balance(proj.Token) < ftx.Amount {
		err = fmt.Errorf("%w: insufficient %s balance", ErrTransferFailed, proj.Token)
		return
	}
	if !checkOnly {
		a.Balances[proj.Token] -= ftx.Amount
		proj.Escrow += ftx.Amount
		proj.TotalRaised += ftx.Amount
		s.projectDirty = true

		c, err1 := s.GetContribution(signer)
		if err1 != nil {
			return nil, err1
		}
		if c == nil {
			c = &mfund_types.Contribution{
				Backer:  signer,
				Address: a.Address(),
			}
			s.contribs[signer] = c
		}
		c.Amount += ftx.Amount
		s.modContribs[signer] = true

		s.touchAccount(a)

		event = &mfund_types.EventFund{
			Backer:      signer,
			Address:     a.Address(),
			Amount:      ftx.Amount,
			Total:       c.Amount,
			TotalRaised: proj.TotalRaised,
		}
	}
	return
}

// Vote records a weighted YES for a milestone. The weight is the signer's
// contribution at cast time; later funding never revisits it. Approval is
// not evaluated here.
func (s *State) Vote(vtx *tx.VoteTx, signer uint64, checkOnly bool) (event *mfund_types.EventVote, err error) {
	s.logger.Debug("apply vote", "signer", signer, "milestone", vtx.Milestone, "height", s.header.Height)
	proj, err := s.GetProject()
	if err != nil {
		return nil, err
	}
	if proj == nil {
		err = ErrNotInitialized
		return
	}
	a, err := s.GetAccount(signer)
	if err != nil {
		return nil, err
	}
	if vtx.Milestone >= uint64(len(proj.Milestones)) {
		err = ErrInvalidMilestoneIndex
		return
	}
	if proj.Milestones[vtx.Milestone].Released {
		err = ErrMilestoneAlreadyReleased
		return
	}
	c, err := s.GetContribution(signer)
	if err != nil {
		return nil, err
	}
	if c == nil || c.Amount == 0 {
		err = ErrUnauthorized
		return
	}
	voted, err := s.HasVoted(vtx.Milestone, signer)
	if err != nil {
		return nil, err
	}
	if voted {
		err = ErrAlreadyVoted
		return
	}
	if !checkOnly {
		weight := c.Amount
		key := fmt.Sprintf(KeyVote, vtx.Milestone, signer)
		s.newVotes[key] = weight
		proj.Milestones[vtx.Milestone].Approved += weight
		s.projectDirty = true

		s.touchAccount(a)

		event = &mfund_types.EventVote{
			Backer:    signer,
			Address:   a.Address(),
			Milestone: vtx.Milestone,
			Weight:    weight,
			Approved:  proj.Milestones[vtx.Milestone].Approved,
		}
	}
	return
}

// Release settles an approved milestone: strictly more than half of all
// raised funds must have voted YES. Any account may trigger it; the payout
// always goes to the creator. Terminal per milestone.
func (s *State) Release(rtx *tx.ReleaseTx, signer uint64, checkOnly bool) (event *mfund_types.EventRelease, err error) {
	s.logger.Debug("apply release", "signer", signer, "milestone", rtx.Milestone, "height", s.header.Height)
	proj, err := s.GetProject()
	if err != nil {
		return nil, err
	}
	if proj == nil {
		err = ErrNotInitialized
		return
	}
	a, err := s.GetAccount(signer)
	if err != nil {
		return nil, err
	}
	if rtx.Milestone >= uint64(len(proj.Milestones)) {
		err = ErrInvalidMilestoneIndex
		return
	}
	m := &proj.Milestones[rtx.Milestone]
	if m.Released {
		err = ErrMilestoneAlreadyReleased
		return
	}
	if m.Approved*2 <= proj.TotalRaised {
		err = ErrThresholdNotMet
		return
	}
	if proj.Escrow < m.Amount {
		err = fmt.Errorf("%w: escrow holds %v, milestone needs %v", ErrTransferFailed, proj.Escrow, m.Amount)
		return
	}
	creator, err := s.GetAccount(proj.Creator)
	if err != nil {
		return nil, err
	}
	if !checkOnly {
		proj.Escrow -= m.Amount
		if creator.Balances == nil {
			creator.Balances = make(map[string]uint64)
		}
		creator.Balances[proj.Token] += m.Amount
		m.Released = true
		s.projectDirty = true

		v := s.modifiedAcnts[creator.Index]
		v |= ModifiedFlagMod
		s.modifiedAcnts[creator.Index] = v
		s.acnts[creator.Index] = creator.Clone()

		s.touchAccount(a)

		event = &mfund_types.EventRelease{
			Milestone:      rtx.Milestone,
			Amount:         m.Amount,
			Creator:        creator.Index,
			CreatorAddress: creator.Address(),
			Caller:         signer,
		}
	}
	return
}

// Refund returns a backer's full contribution after the deadline when the
// goal was not met. The refunded flag is the idempotence guard; the amount
// is zeroed as well to keep the conservation arithmetic trivial.
func (s *State) Refund(signer uint64, checkOnly bool) (event *mfund_types.EventRefund, err error) {
	s.logger.Debug("apply refund", "signer", signer, "height", s.header.Height)
	proj, err := s.GetProject()
	if err != nil {
		return nil, err
	}
	if proj == nil {
		err = ErrNotInitialized
		return
	}
	a, err := s.GetAccount(signer)
	if err != nil {
		return nil, err
	}
	if s.header.BlockTime <= proj.Deadline {
		err = ErrDeadlineNotPassed
		return
	}
	if proj.GoalMet() {
		err = ErrGoalWasMet
		return
	}
	c, err := s.GetContribution(signer)
	if err != nil {
		return nil, err
	}
	if c == nil {
		err = ErrNoContribution
		return
	}
	if c.Refunded {
		err = ErrAlreadyRefunded
		return
	}
	if c.Amount == 0 {
		err = ErrNoContribution
		return
	}
	if proj.Escrow < c.Amount {
		err = fmt.Errorf("%w: escrow holds %v, refund needs %v", ErrTransferFailed, proj.Escrow, c.Amount)
		return
	}
	if !checkOnly {
		amount := c.Amount
		proj.Escrow -= amount
		s.projectDirty = true
		if a.Balances == nil {
			a.Balances = make(map[string]uint64)
		}
		a.Balances[proj.Token] += amount
		c.Amount = 0
		c.Refunded = true
		s.modContribs[signer] = true

		s.touchAccount(a)

		event = &mfund_types.EventRefund{
			Backer:  signer,
			Address: a.Address(),
			Amount:  amount,
		}
	}
	return
}
