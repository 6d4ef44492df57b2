package types

import (
	"fmt"
	"strconv"

	abci "github.com/cometbft/cometbft/abci/types"
)

const (
	EventProjectInitType = "project_init"
	EventFundType        = "fund"
	EventVoteType        = "vote"
	EventReleaseType     = "release"
	EventRefundType      = "refund"
)

const MFundModuleName = "mfund"
const DefaultPower = 1000

const (
	FlagHome      = "home"
	FlagChainID   = "chain-id"
	FlagOverwrite = "overwrite"
	FlagToken     = "token"
	FlagBalance   = "balance"
)

type EventProjectInit struct {
	Creator        uint64 `json:"creatorIndex"`
	CreatorAddress string `json:"creatorAddress"`
	Token          string `json:"token"`
	Goal           uint64 `json:"goal"`
	Deadline       uint64 `json:"deadline"`
	Milestones     uint64 `json:"milestones"`
}

type EventFund struct {
	Backer      uint64 `json:"backerIndex"`
	Address     string `json:"address"`
	Amount      uint64 `json:"amount"`
	Total       uint64 `json:"total"`
	TotalRaised uint64 `json:"totalRaised"`
}

type EventVote struct {
	Backer    uint64 `json:"backerIndex"`
	Address   string `json:"address"`
	Milestone uint64 `json:"milestone"`
	Weight    uint64 `json:"weight"`
	Approved  uint64 `json:"approvedVotes"`
}

type EventRelease struct {
	Milestone      uint64 `json:"milestone"`
	Amount         uint64 `json:"amount"`
	Creator        uint64 `json:"creatorIndex"`
	CreatorAddress string `json:"creatorAddress"`
	Caller         uint64 `json:"callerIndex"`
}

type EventRefund struct {
	Backer  uint64 `json:"backerIndex"`
	Address string `json:"address"`
	Amount  uint64 `json:"amount"`
}

func EncodeEventProjectInit(event *EventProjectInit) abci.Event {
	return abci.Event{
		Type: EventProjectInitType,
		Attributes: []abci.EventAttribute{
			{Key: "creator", Value: fmt.Sprintf("%v", event.Creator), Index: true},
			{Key: "creatorAddress", Value: event.CreatorAddress, Index: false},
			{Key: "token", Value: event.Token, Index: false},
			{Key: "goal", Value: fmt.Sprintf("%v", event.Goal), Index: false},
			{Key: "deadline", Value: fmt.Sprintf("%v", event.Deadline), Index: false},
			{Key: "milestones", Value: fmt.Sprintf("%v", event.Milestones), Index: false},
		},
	}
}

func DecodeEventProjectInit(originEvent abci.Event) *EventProjectInit {
	event := &EventProjectInit{}
	for _, v := range originEvent.Attributes {
		switch v.Key {
		case "creator":
			creator, err := strconv.ParseUint(v.Value, 10, 64)
			if err != nil {
				return nil
			}
			event.Creator = creator
		case "creatorAddress":
			event.CreatorAddress = v.Value
		case "token":
			event.Token = v.Value
		case "goal":
			goal, err := strconv.ParseUint(v.Value, 10, 64)
			if err != nil {
				return nil
			}
			event.Goal = goal
		case "deadline":
			deadline, err := strconv.ParseUint(v.Value, 10, 64)
			if err != nil {
				return nil
			}
			event.Deadline = deadline
		case "milestones":
			milestones, err := strconv.ParseUint(v.Value, 10, 64)
			if err != nil {
				return nil
			}
			event.Milestones = milestones
		}
	}
	return event
}

func EncodeEventFund(event *EventFund) abci.Event {
	return abci.Event{
		Type: EventFundType,
		Attributes: []abci.EventAttribute{
			{Key: "backer", Value: fmt.Sprintf("%v", event.Backer), Index: true},
			{Key: "address", Value: event.Address, Index: false},
			{Key: "amount", Value: fmt.Sprintf("%v", event.Amount), Index: false},
			{Key: "total", Value: fmt.Sprintf("%v", event.Total), Index: false},
			{Key: "totalRaised", Value: fmt.Sprintf("%v", event.TotalRaised), Index: false},
		},
	}
}

func DecodeEventFund(originEvent abci.Event) *EventFund {
	event := &EventFund{}
	for _, v := range originEvent.Attributes {
		switch v.Key {
		case "backer":
			backer, err := strconv.ParseUint(v.Value, 10, 64)
			if err != nil {
				return nil
			}
			event.Backer = backer
		case "address":
			event.Address = v.Value
		case "amount":
			amount, err := strconv.ParseUint(v.Value, 10, 64)
			if err != nil {
				return nil
			}
			event.Amount = amount
		case "total":
			total, err := strconv.ParseUint(v.Value, 10, 64)
			if err != nil {
				return nil
			}
			event.Total = total
		case "totalRaised":
			totalRaised, err := strconv.ParseUint(v.Value, 10, 64)
			if err != nil {
				return nil
			}
			event.TotalRaised = totalRaised
		}
	}
	return event
}

func EncodeEventVote(event *EventVote) abci.Event {
	return abci.Event{
		Type: EventVoteType,
		Attributes: []abci.EventAttribute{
			{Key: "backer", Value: fmt.Sprintf("%v", event.Backer), Index: true},
			{Key: "address", Value: event.Address, Index: false},
			{Key: "milestone", Value: fmt.Sprintf("%v", event.Milestone), Index: true},
			{Key: "weight", Value: fmt.Sprintf("%v", event.Weight), Index: false},
			{Key: "approvedVotes", Value: fmt.Sprintf("%v", event.Approved), Index: false},
		},
	}
}

func DecodeEventVote(originEvent abci.Event) *EventVote {
	event := &EventVote{}
	for _, v := range originEvent.Attributes {
		switch v.Key {
		case "backer":
			backer, err := strconv.ParseUint(v.Value, 10, 64)
			if err != nil {
				return nil
			}
			event.Backer = backer
		case "address":
			event.Address = v.Value
		case "milestone":
			milestone, err := strconv.ParseUint(v.Value, 10, 64)
			if err != nil {
				return nil
			}
			event.Milestone = milestone
		case "weight":
			weight, err := strconv.ParseUint(v.Value, 10, 64)
			if err != nil {
				return nil
			}
			event.Weight = weight
		case "approvedVotes":
			approved, err := strconv.ParseUint(v.Value, 10, 64)
			if err != nil {
				return nil
			}
			event.Approved = approved
		}
	}
	return event
}

func EncodeEventRelease(event *EventRelease) abci.Event {
	return abci.Event{
		Type: EventReleaseType,
		Attributes: []abci.EventAttribute{
			{Key: "milestone", Value: fmt.Sprintf("%v", event.Milestone), Index: true},
			{Key: "amount", Value: fmt.Sprintf("%v", event.Amount), Index: false},
			{Key: "creator", Value: fmt.Sprintf("%v", event.Creator), Index: false},
			{Key: "creatorAddress", Value: event.CreatorAddress, Index: false},
			{Key: "caller", Value: fmt.Sprintf("%v", event.Caller), Index: false},
		},
	}
}

func DecodeEventRelease(originEvent abci.Event) *EventRelease {
	event := &EventRelease{}
	for _, v := range originEvent.Attributes {
		switch v.Key {
		case "milestone":
			milestone, err := strconv.ParseUint(v.Value, 10, 64)
			if err != nil {
				return nil
			}
			event.Milestone = milestone
		case "amount":
			amount, err := strconv.ParseUint(v.Value, 10, 64)
			if err != nil {
				return nil
			}
			event.Amount = amount
		case "creator":
			creator, err := strconv.ParseUint(v.Value, 10, 64)
			if err != nil {
				return nil
			}
			event.Creator = creator
		case "creatorAddress":
			event.CreatorAddress = v.Value
		case "caller":
			caller, err := strconv.ParseUint(v.Value, 10, 64)
			if err != nil {
				return nil
			}
			event.Caller = caller
		}
	}
	return event
}

func EncodeEventRefund(event *EventRefund) abci.Event {
	return abci.Event{
		Type: EventRefundType,
		Attributes: []abci.EventAttribute{
			{Key: "backer", Value: fmt.Sprintf("%v", event.Backer), Index: true},
			{Key: "address", Value: event.Address, Index: false},
			{Key: "amount", Value: fmt.Sprintf("%v", event.Amount), Index: false},
		},
	}
}

func DecodeEventRefund(originEvent abci.Event) *EventRefund {
	event := &EventRefund{}
	for _, v := range originEvent.Attributes {
		switch v.Key {
		case "backer":
			backer, err := strconv.ParseUint(v.Value, 10, 64)
			if err != nil {
				return nil
			}
			event.Backer = backer
		case "address":
			event.Address = v.Value
		case "amount":
			amount, err := strconv.ParseUint(v.Value, 10, 64)
			if err != nil {
				return nil
			}
			event.Amount = amount
		}
	}
	return event
}
