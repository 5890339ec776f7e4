package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransferLeg is one directional token movement within an aggregated
// transaction.
type TransferLeg struct {
	Asset  string // contract address, empty for the native asset
	Symbol string
	Amount decimal.Decimal
}

// AggregatedTransaction is one logical transaction: every raw transfer
// sharing a hash, folded into inbound/outbound legs plus derived flags.
// It is an intermediate built fresh per sync and never persisted.
type AggregatedTransaction struct {
	Timestamp              time.Time
	Hash                   string
	Transfers              []RawTransfer // original observation order
	Inbound                []TransferLeg
	Outbound               []TransferLeg
	BlockNumber            int64
	HasNFT                 bool
	IsMint                 bool
	IsInternal             bool
	HasContractInteraction bool
}

// LegCount returns the number of value-bearing legs in the group.
func (a *AggregatedTransaction) LegCount() int {
	return len(a.Inbound) + len(a.Outbound)
}

// PrimaryInbound returns the first inbound leg, if any.
func (a *AggregatedTransaction) PrimaryInbound() *TransferLeg {
	if len(a.Inbound) == 0 {
		return nil
	}
	return &a.Inbound[0]
}

// PrimaryOutbound returns the first outbound leg, if any.
func (a *AggregatedTransaction) PrimaryOutbound() *TransferLeg {
	if len(a.Outbound) == 0 {
		return nil
	}
	return &a.Outbound[0]
}
