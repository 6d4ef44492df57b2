package tx

import (
	"errors"
)

type MFundTxType uint8

const (
	MFundTxTypeUnknown    MFundTxType = 0
	MFundTxTypeInitialize MFundTxType = 1
	MFundTxTypeFund       MFundTxType = 2
	MFundTxTypeVote       MFundTxType = 3
	MFundTxTypeRelease    MFundTxType = 4
	MFundTxTypeRefund     MFundTxType = 5
)

const (
	MFundTxVersion0 uint8 = 0
	MFundTxVersion1 uint8 = 1
)

var (
	ErrInvalidTx         = errors.New("invalid tx")
	ErrUnsupportedTxType = errors.New("unsupported tx type")
	ErrUnmatchedTxType   = errors.New("unmatched tx type")

	ErrUnsupportedTxVersion = errors.New("unsupported tx version")
)

type MFundTxHeader struct {
	Version uint8
	Type    MFundTxType
}
