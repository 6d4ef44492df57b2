package types

// Milestone is a creator-defined tranche of the funding goal. Released is
// terminal: once funds for a milestone have been paid out it never resets.
type Milestone struct {
	Title    string `json:"title"`
	Amount   uint64 `json:"amount"`
	Approved uint64 `json:"approvedVotes"`
	Released bool   `json:"released"`
}

// Project is the single escrow record held by a chain instance. It is
// created once by an initialize tx and mutated only by fund, vote,
// release and refund transitions.
type Project struct {
	Creator        uint64      `json:"creatorIndex"`
	CreatorAddress string      `json:"creatorAddress"`
	Token          string      `json:"token"`
	Goal           uint64      `json:"goal"`
	Deadline       uint64      `json:"deadline"`
	Milestones     []Milestone `json:"milestones"`
	TotalRaised    uint64      `json:"totalRaised"`
	Escrow         uint64      `json:"escrow"`
	Height         uint64      `json:"height"`
}

// GoalMet reports whether the fundraise itself succeeded. Refund
// eligibility hinges on this alone, not on per-milestone progress.
func (p *Project) GoalMet() bool {
	return p.TotalRaised >= p.Goal
}

// Contribution tracks a single backer's cumulative stake in the project.
// Amount only grows, except that a refund zeroes it exactly once.
type Contribution struct {
	Backer   uint64 `json:"backerIndex"`
	Address  string `json:"address"`
	Amount   uint64 `json:"amount"`
	Refunded bool   `json:"refunded"`
}
