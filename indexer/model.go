package indexer

// sqlite models

type Height struct {
	Id     uint64 `gorm:"primaryKey" json:"id"`
	Height uint64 `json:"height"`
}

type ProjectRow struct {
	Id             uint64 `gorm:"primaryKey" json:"id"`
	Creator        uint64 `json:"creator"`
	CreatorAddress string `json:"creator_address"`
	Token          string `json:"token"`
	Goal           uint64 `json:"goal"`
	Deadline       uint64 `json:"deadline"`
	Milestones     uint64 `json:"milestones"`
	TotalRaised    uint64 `json:"total_raised"`
	InitHeight     uint64 `json:"init_height"`
}

type Contribution struct {
	Id       uint64 `gorm:"primaryKey" json:"id"`
	Address  string `json:"address"`
	Amount   uint64 `json:"amount"`
	Refunded bool   `json:"refunded"`
	Height   uint64 `json:"height"`
}

type Vote struct {
	Id           uint64 `gorm:"primaryKey;autoIncrement" json:"id"`
	Milestone    uint64 `json:"milestone"`
	VoterIndex   uint64 `json:"voter_index"`
	VoterAddress string `json:"voter_address"`
	Weight       uint64 `json:"weight"`
	Approved     uint64 `json:"approved"`
	Height       uint64 `json:"height"`
}

type Release struct {
	Id             uint64 `gorm:"primaryKey" json:"id"`
	Milestone      uint64 `json:"milestone"`
	Amount         uint64 `json:"amount"`
	Creator        uint64 `json:"creator"`
	CreatorAddress string `json:"creator_address"`
	Caller         uint64 `json:"caller"`
	Height         uint64 `json:"height"`
}

type Refund struct {
	Id          uint64 `gorm:"primaryKey;autoIncrement" json:"id"`
	BackerIndex uint64 `json:"backer_index"`
	BackerAddr  string `json:"backer_addr"`
	Amount      uint64 `json:"amount"`
	Height      uint64 `json:"height"`
}
