package state

import (
	"errors"
	"testing"

	"github.com/milefund/mfund-app/tx"

	"github.com/cometbft/cometbft/crypto/ed25519"
	cmtlog "github.com/cometbft/cometbft/libs/log"
)

const testToken = "mfd"

func newTestDB(t *testing.T) *StateDB {
	t.Helper()
	db, err := NewStateDB(t.TempDir(), cmtlog.NewNopLogger())
	if err != nil {
		t.Fatalf("new state db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func newTestState(t *testing.T) (*StateDB, *State) {
	t.Helper()
	db := newTestDB(t)
	st := db.NewState()
	st.SetChainId("test-chain")
	st.SetBlockTime(100)
	return db, st
}

func addTestAccount(t *testing.T, st *State, balance uint64) *Account {
	t.Helper()
	priv := ed25519.GenPrivKey()
	a := &Account{
		Balances: map[string]uint64{testToken: balance},
	}
	a.SetPubKey(priv.PubKey().Bytes())
	if err := st.AddAccount(a); err != nil {
		t.Fatalf("add account: %v", err)
	}
	return a
}

func commit(t *testing.T, db *StateDB, st *State) *State {
	t.Helper()
	if _, err := st.Update(); err != nil {
		t.Fatalf("update state: %v", err)
	}
	if _, err := db.SetState(st); err != nil {
		t.Fatalf("set state: %v", err)
	}
	return db.NewState()
}

func defaultInitTx(creator uint64) *tx.InitializeTx {
	return &tx.InitializeTx{
		Creator:  creator,
		Token:    testToken,
		Goal:     10000,
		Deadline: 1000,
		Milestones: []tx.MilestoneDef{
			{Title: "mvp", Amount: 5000},
			{Title: "launch", Amount: 5000},
		},
	}
}

func TestInitializeProject(t *testing.T) {
	_, st := newTestState(t)
	creator := addTestAccount(t, st, 0)

	ev, err := st.InitializeProject(defaultInitTx(creator.Index), creator.Index, false)
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if ev == nil || ev.Goal != 10000 || ev.Milestones != 2 {
		t.Fatalf("unexpected event %+v", ev)
	}
	proj, err := st.GetProject()
	if err != nil {
		t.Fatalf("get project: %v", err)
	}
	if proj.Creator != creator.Index || proj.Goal != 10000 || len(proj.Milestones) != 2 {
		t.Fatalf("unexpected project %+v", proj)
	}

	_, err = st.InitializeProject(defaultInitTx(creator.Index), creator.Index, false)
	if !errors.Is(err, ErrAlreadyInitialized) {
		t.Fatalf("second initialize err = %v, want %v", err, ErrAlreadyInitialized)
	}
}

func TestInitializeProjectRejectsInvalidArgs(t *testing.T) {
	cases := []struct {
		name string
		mod  func(*tx.InitializeTx)
		want error
	}{
		{
			name: "zero goal",
			mod: func(itx *tx.InitializeTx) {
				itx.Goal = 0
			},
			want: ErrInvalidGoal,
		},
		{
			name: "deadline not in future",
			mod: func(itx *tx.InitializeTx) {
				itx.Deadline = 100
			},
			want: ErrInvalidDeadline,
		},
		{
			name: "no milestones",
			mod: func(itx *tx.InitializeTx) {
				itx.Milestones = nil
			},
			want: ErrInvalidMilestoneSet,
		},
		{
			name: "zero amount milestone",
			mod: func(itx *tx.InitializeTx) {
				itx.Milestones = []tx.MilestoneDef{{Title: "a", Amount: 10000}, {Title: "b", Amount: 0}}
			},
			want: ErrInvalidMilestoneSet,
		},
		{
			name: "milestones exceed goal",
			mod: func(itx *tx.InitializeTx) {
				itx.Milestones = []tx.MilestoneDef{{Title: "a", Amount: 5000}, {Title: "b", Amount: 6000}}
			},
			want: ErrInvalidMilestoneAllocation,
		},
		{
			name: "milestones short of goal",
			mod: func(itx *tx.InitializeTx) {
				itx.Milestones = []tx.MilestoneDef{{Title: "a", Amount: 5000}, {Title: "b", Amount: 4000}}
			},
			want: ErrInvalidMilestoneAllocation,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, st := newTestState(t)
			creator := addTestAccount(t, st, 0)
			itx := defaultInitTx(creator.Index)
			tc.mod(itx)
			_, err := st.InitializeProject(itx, creator.Index, false)
			if !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
			proj, _ := st.GetProject()
			if proj != nil {
				t.Fatalf("failed initialize left a project behind")
			}
		})
	}
}

func TestFund(t *testing.T) {
	_, st := newTestState(t)
	creator := addTestAccount(t, st, 0)
	backer := addTestAccount(t, st, 8000)

	_, err := st.Fund(&tx.FundTx{Amount: 100}, backer.Index, false)
	if !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("fund before init err = %v, want %v", err, ErrNotInitialized)
	}

	if _, err := st.InitializeProject(defaultInitTx(creator.Index), creator.Index, false); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	_, err = st.Fund(&tx.FundTx{Amount: 0}, backer.Index, false)
	if !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("zero amount err = %v, want %v", err, ErrInvalidAmount)
	}
	_, err = st.Fund(&tx.FundTx{Amount: 9000}, backer.Index, false)
	if !errors.Is(err, ErrTransferFailed) {
		t.Fatalf("insufficient balance err = %v, want %v", err, ErrTransferFailed)
	}

	ev, err := st.Fund(&tx.FundTx{Amount: 3000}, backer.Index, false)
	if err != nil {
		t.Fatalf("fund: %v", err)
	}
	if ev.Amount != 3000 || ev.Total != 3000 || ev.TotalRaised != 3000 {
		t.Fatalf("unexpected event %+v", ev)
	}
	a, _ := st.GetAccount(backer.Index)
	if a.Balance(testToken) != 5000 {
		t.Fatalf("backer balance = %v, want 5000", a.Balance(testToken))
	}
	proj, _ := st.GetProject()
	if proj.Escrow != 3000 || proj.TotalRaised != 3000 {
		t.Fatalf("escrow = %v raised = %v, want 3000/3000", proj.Escrow, proj.TotalRaised)
	}

	// contributions accumulate
	ev, err = st.Fund(&tx.FundTx{Amount: 2000}, backer.Index, false)
	if err != nil {
		t.Fatalf("second fund: %v", err)
	}
	if ev.Total != 5000 || ev.TotalRaised != 5000 {
		t.Fatalf("unexpected event %+v", ev)
	}

	st.SetBlockTime(1001)
	_, err = st.Fund(&tx.FundTx{Amount: 100}, backer.Index, false)
	if !errors.Is(err, ErrFundingClosed) {
		t.Fatalf("fund after deadline err = %v, want %v", err, ErrFundingClosed)
	}
}

func TestFundPastGoalAllowed(t *testing.T) {
	_, st := newTestState(t)
	creator := addTestAccount(t, st, 0)
	backer := addTestAccount(t, st, 20000)
	if _, err := st.InitializeProject(defaultInitTx(creator.Index), creator.Index, false); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if _, err := st.Fund(&tx.FundTx{Amount: 15000}, backer.Index, false); err != nil {
		t.Fatalf("fund past goal: %v", err)
	}
	proj, _ := st.GetProject()
	if proj.TotalRaised != 15000 || !proj.GoalMet() {
		t.Fatalf("raised = %v goalMet = %v", proj.TotalRaised, proj.GoalMet())
	}
}

func TestVote(t *testing.T) {
	db, st := newTestState(t)
	creator := addTestAccount(t, st, 0)
	backer := addTestAccount(t, st, 10000)
	outsider := addTestAccount(t, st, 10000)
	if _, err := st.InitializeProject(defaultInitTx(creator.Index), creator.Index, false); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if _, err := st.Fund(&tx.FundTx{Amount: 3000}, backer.Index, false); err != nil {
		t.Fatalf("fund: %v", err)
	}
	st = commit(t, db, st)

	_, err := st.Vote(&tx.VoteTx{Milestone: 5}, backer.Index, false)
	if !errors.Is(err, ErrInvalidMilestoneIndex) {
		t.Fatalf("invalid milestone err = %v, want %v", err, ErrInvalidMilestoneIndex)
	}
	_, err = st.Vote(&tx.VoteTx{Milestone: 0}, outsider.Index, false)
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("non-backer vote err = %v, want %v", err, ErrUnauthorized)
	}

	ev, err := st.Vote(&tx.VoteTx{Milestone: 0}, backer.Index, false)
	if err != nil {
		t.Fatalf("vote: %v", err)
	}
	if ev.Weight != 3000 || ev.Approved != 3000 {
		t.Fatalf("unexpected event %+v", ev)
	}

	_, err = st.Vote(&tx.VoteTx{Milestone: 0}, backer.Index, false)
	if !errors.Is(err, ErrAlreadyVoted) {
		t.Fatalf("double vote err = %v, want %v", err, ErrAlreadyVoted)
	}

	// a vote on another milestone is independent
	if _, err := st.Vote(&tx.VoteTx{Milestone: 1}, backer.Index, false); err != nil {
		t.Fatalf("vote second milestone: %v", err)
	}

	// the double vote guard survives a commit
	st = commit(t, db, st)
	_, err = st.Vote(&tx.VoteTx{Milestone: 0}, backer.Index, false)
	if !errors.Is(err, ErrAlreadyVoted) {
		t.Fatalf("double vote after commit err = %v, want %v", err, ErrAlreadyVoted)
	}
}

func TestVoteWeightFixedAtCastTime(t *testing.T) {
	db, st := newTestState(t)
	creator := addTestAccount(t, st, 0)
	backer := addTestAccount(t, st, 10000)
	if _, err := st.InitializeProject(defaultInitTx(creator.Index), creator.Index, false); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if _, err := st.Fund(&tx.FundTx{Amount: 3000}, backer.Index, false); err != nil {
		t.Fatalf("fund: %v", err)
	}
	if _, err := st.Vote(&tx.VoteTx{Milestone: 0}, backer.Index, false); err != nil {
		t.Fatalf("vote: %v", err)
	}
	st = commit(t, db, st)

	// funding after the vote does not revisit the recorded weight
	if _, err := st.Fund(&tx.FundTx{Amount: 4000}, backer.Index, false); err != nil {
		t.Fatalf("second fund: %v", err)
	}
	w, err := st.VoteWeight(0, backer.Index)
	if err != nil {
		t.Fatalf("vote weight: %v", err)
	}
	if w != 3000 {
		t.Fatalf("vote weight = %v, want 3000", w)
	}
	proj, _ := st.GetProject()
	if proj.Milestones[0].Approved != 3000 {
		t.Fatalf("approved = %v, want 3000", proj.Milestones[0].Approved)
	}
	if proj.TotalRaised != 7000 {
		t.Fatalf("raised = %v, want 7000", proj.TotalRaised)
	}
}

func TestRelease(t *testing.T) {
	db, st := newTestState(t)
	creator := addTestAccount(t, st, 0)
	big := addTestAccount(t, st, 6000)
	small := addTestAccount(t, st, 4000)
	if _, err := st.InitializeProject(defaultInitTx(creator.Index), creator.Index, false); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if _, err := st.Fund(&tx.FundTx{Amount: 6000}, big.Index, false); err != nil {
		t.Fatalf("fund big: %v", err)
	}
	if _, err := st.Fund(&tx.FundTx{Amount: 4000}, small.Index, false); err != nil {
		t.Fatalf("fund small: %v", err)
	}
	st = commit(t, db, st)

	_, err := st.Release(&tx.ReleaseTx{Milestone: 0}, small.Index, false)
	if !errors.Is(err, ErrThresholdNotMet) {
		t.Fatalf("release without votes err = %v, want %v", err, ErrThresholdNotMet)
	}

	if _, err := st.Vote(&tx.VoteTx{Milestone: 0}, big.Index, false); err != nil {
		t.Fatalf("vote: %v", err)
	}
	st = commit(t, db, st)

	// 6000 of 10000 is a strict majority; any account may trigger release
	ev, err := st.Release(&tx.ReleaseTx{Milestone: 0}, small.Index, false)
	if err != nil {
		t.Fatalf("release: %v", err)
	}
	if ev.Amount != 5000 || ev.Creator != creator.Index || ev.Caller != small.Index {
		t.Fatalf("unexpected event %+v", ev)
	}
	c, _ := st.GetAccount(creator.Index)
	if c.Balance(testToken) != 5000 {
		t.Fatalf("creator balance = %v, want 5000", c.Balance(testToken))
	}
	proj, _ := st.GetProject()
	if proj.Escrow != 5000 || !proj.Milestones[0].Released {
		t.Fatalf("escrow = %v released = %v", proj.Escrow, proj.Milestones[0].Released)
	}

	_, err = st.Release(&tx.ReleaseTx{Milestone: 0}, big.Index, false)
	if !errors.Is(err, ErrMilestoneAlreadyReleased) {
		t.Fatalf("double release err = %v, want %v", err, ErrMilestoneAlreadyReleased)
	}
	_, err = st.Vote(&tx.VoteTx{Milestone: 0}, small.Index, false)
	if !errors.Is(err, ErrMilestoneAlreadyReleased) {
		t.Fatalf("vote on released milestone err = %v, want %v", err, ErrMilestoneAlreadyReleased)
	}
}

func TestReleaseExactHalfFails(t *testing.T) {
	db, st := newTestState(t)
	creator := addTestAccount(t, st, 0)
	a := addTestAccount(t, st, 5000)
	b := addTestAccount(t, st, 5000)
	if _, err := st.InitializeProject(defaultInitTx(creator.Index), creator.Index, false); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if _, err := st.Fund(&tx.FundTx{Amount: 5000}, a.Index, false); err != nil {
		t.Fatalf("fund a: %v", err)
	}
	if _, err := st.Fund(&tx.FundTx{Amount: 5000}, b.Index, false); err != nil {
		t.Fatalf("fund b: %v", err)
	}
	if _, err := st.Vote(&tx.VoteTx{Milestone: 0}, a.Index, false); err != nil {
		t.Fatalf("vote: %v", err)
	}
	st = commit(t, db, st)

	// exactly half of the raised funds is not a strict majority
	_, err := st.Release(&tx.ReleaseTx{Milestone: 0}, a.Index, false)
	if !errors.Is(err, ErrThresholdNotMet) {
		t.Fatalf("release at 50%% err = %v, want %v", err, ErrThresholdNotMet)
	}

	if _, err := st.Vote(&tx.VoteTx{Milestone: 0}, b.Index, false); err != nil {
		t.Fatalf("vote b: %v", err)
	}
	if _, err := st.Release(&tx.ReleaseTx{Milestone: 0}, a.Index, false); err != nil {
		t.Fatalf("release with full approval: %v", err)
	}
}

func TestRefund(t *testing.T) {
	db, st := newTestState(t)
	creator := addTestAccount(t, st, 0)
	backer := addTestAccount(t, st, 8000)
	outsider := addTestAccount(t, st, 100)
	if _, err := st.InitializeProject(defaultInitTx(creator.Index), creator.Index, false); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if _, err := st.Fund(&tx.FundTx{Amount: 3000}, backer.Index, false); err != nil {
		t.Fatalf("fund: %v", err)
	}
	st = commit(t, db, st)

	_, err := st.Refund(backer.Index, false)
	if !errors.Is(err, ErrDeadlineNotPassed) {
		t.Fatalf("refund before deadline err = %v, want %v", err, ErrDeadlineNotPassed)
	}

	st.SetBlockTime(1001)
	_, err = st.Refund(outsider.Index, false)
	if !errors.Is(err, ErrNoContribution) {
		t.Fatalf("refund without contribution err = %v, want %v", err, ErrNoContribution)
	}

	ev, err := st.Refund(backer.Index, false)
	if err != nil {
		t.Fatalf("refund: %v", err)
	}
	if ev.Amount != 3000 {
		t.Fatalf("unexpected event %+v", ev)
	}
	a, _ := st.GetAccount(backer.Index)
	if a.Balance(testToken) != 8000 {
		t.Fatalf("backer balance = %v, want 8000", a.Balance(testToken))
	}
	c, _ := st.GetContribution(backer.Index)
	if c.Amount != 0 || !c.Refunded {
		t.Fatalf("contribution after refund %+v", c)
	}
	proj, _ := st.GetProject()
	if proj.Escrow != 0 {
		t.Fatalf("escrow = %v, want 0", proj.Escrow)
	}

	_, err = st.Refund(backer.Index, false)
	if !errors.Is(err, ErrAlreadyRefunded) {
		t.Fatalf("double refund err = %v, want %v", err, ErrAlreadyRefunded)
	}

	// the guard survives a commit
	st = commit(t, db, st)
	st.SetBlockTime(1002)
	_, err = st.Refund(backer.Index, false)
	if !errors.Is(err, ErrAlreadyRefunded) {
		t.Fatalf("refund after commit err = %v, want %v", err, ErrAlreadyRefunded)
	}
}

func TestRefundForbiddenWhenGoalMet(t *testing.T) {
	db, st := newTestState(t)
	creator := addTestAccount(t, st, 0)
	backer := addTestAccount(t, st, 12000)
	if _, err := st.InitializeProject(defaultInitTx(creator.Index), creator.Index, false); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if _, err := st.Fund(&tx.FundTx{Amount: 10000}, backer.Index, false); err != nil {
		t.Fatalf("fund: %v", err)
	}
	st = commit(t, db, st)
	st.SetBlockTime(1001)

	_, err := st.Refund(backer.Index, false)
	if !errors.Is(err, ErrGoalWasMet) {
		t.Fatalf("refund with goal met err = %v, want %v", err, ErrGoalWasMet)
	}
}

func TestCheckOnlyLeavesStateUntouched(t *testing.T) {
	db, st := newTestState(t)
	creator := addTestAccount(t, st, 0)
	backer := addTestAccount(t, st, 8000)
	if _, err := st.InitializeProject(defaultInitTx(creator.Index), creator.Index, false); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if _, err := st.Fund(&tx.FundTx{Amount: 3000}, backer.Index, false); err != nil {
		t.Fatalf("fund: %v", err)
	}
	st = commit(t, db, st)

	nonce := func() uint64 {
		a, err := st.GetAccount(backer.Index)
		if err != nil {
			t.Fatalf("get account: %v", err)
		}
		return a.Nonce
	}
	before := nonce()

	ev, err := st.Fund(&tx.FundTx{Amount: 1000}, backer.Index, true)
	if err != nil {
		t.Fatalf("check fund: %v", err)
	}
	if ev != nil {
		t.Fatalf("check run emitted an event")
	}
	if _, err := st.Vote(&tx.VoteTx{Milestone: 0}, backer.Index, true); err != nil {
		t.Fatalf("check vote: %v", err)
	}

	proj, _ := st.GetProject()
	if proj.TotalRaised != 3000 || proj.Milestones[0].Approved != 0 {
		t.Fatalf("check run mutated project %+v", proj)
	}
	if voted, _ := st.HasVoted(0, backer.Index); voted {
		t.Fatalf("check run recorded a vote")
	}
	if nonce() != before {
		t.Fatalf("check run bumped the nonce")
	}
}

// Conservation: escrow plus all spendable balances never changes across
// fund, release and refund.
func TestTokenConservation(t *testing.T) {
	db, st := newTestState(t)
	creator := addTestAccount(t, st, 0)
	a := addTestAccount(t, st, 7000)
	b := addTestAccount(t, st, 5000)

	total := func() uint64 {
		var sum uint64
		for _, idx := range []uint64{creator.Index, a.Index, b.Index} {
			act, err := st.GetAccount(idx)
			if err != nil {
				t.Fatalf("get account: %v", err)
			}
			sum += act.Balance(testToken)
		}
		proj, err := st.GetProject()
		if err != nil {
			t.Fatalf("get project: %v", err)
		}
		if proj != nil {
			sum += proj.Escrow
		}
		return sum
	}
	want := total()

	if _, err := st.InitializeProject(defaultInitTx(creator.Index), creator.Index, false); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if _, err := st.Fund(&tx.FundTx{Amount: 7000}, a.Index, false); err != nil {
		t.Fatalf("fund a: %v", err)
	}
	if _, err := st.Fund(&tx.FundTx{Amount: 4000}, b.Index, false); err != nil {
		t.Fatalf("fund b: %v", err)
	}
	if got := total(); got != want {
		t.Fatalf("total after funding = %v, want %v", got, want)
	}

	if _, err := st.Vote(&tx.VoteTx{Milestone: 0}, a.Index, false); err != nil {
		t.Fatalf("vote: %v", err)
	}
	st = commit(t, db, st)
	if _, err := st.Release(&tx.ReleaseTx{Milestone: 0}, a.Index, false); err != nil {
		t.Fatalf("release: %v", err)
	}
	if got := total(); got != want {
		t.Fatalf("total after release = %v, want %v", got, want)
	}
}

func TestVerify(t *testing.T) {
	db, st := newTestState(t)
	priv := ed25519.GenPrivKey()
	a := &Account{Balances: map[string]uint64{testToken: 100}}
	a.SetPubKey(priv.PubKey().Bytes())
	if err := st.AddAccount(a); err != nil {
		t.Fatalf("add account: %v", err)
	}
	st = commit(t, db, st)
	st.SetChainId("test-chain")

	btx := &tx.MFundTx{
		Version: tx.MFundTxVersion1,
		Type:    tx.MFundTxTypeFund,
		Nonce:   0,
		Signer:  a.Index,
		Tx:      &tx.FundTx{Amount: 10},
	}
	dat, err := btx.SigData([]byte("test-chain"))
	if err != nil {
		t.Fatalf("sig data: %v", err)
	}
	sig, err := priv.Sign(dat)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	btx.Sig = [][]byte{sig}

	succ, err := st.Verify(btx, false)
	if err != nil || !succ {
		t.Fatalf("verify = %v, %v", succ, err)
	}

	btx.Nonce = 5
	_, err = st.Verify(btx, false)
	if !errors.Is(err, ErrTxNonceInvalid) {
		t.Fatalf("bad nonce err = %v, want %v", err, ErrTxNonceInvalid)
	}
	// a nonce gap is tolerated in mempool checks
	succ, err = st.Verify(btx, true)
	if err != nil || !succ {
		t.Fatalf("verify with gap = %v, %v", succ, err)
	}

	btx.Nonce = 0
	btx.Sig = [][]byte{make([]byte, len(sig))}
	_, err = st.Verify(btx, false)
	if !errors.Is(err, ErrTxSigInvalid) {
		t.Fatalf("bad sig err = %v, want %v", err, ErrTxSigInvalid)
	}

	btx.Signer = a.Index + 100
	_, err = st.Verify(btx, false)
	if !errors.Is(err, ErrTxSignerNoexists) {
		t.Fatalf("unknown signer err = %v, want %v", err, ErrTxSignerNoexists)
	}
}
