package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Classification labels a transaction's inferred economic intent.
type Classification string

// The fixed classification label set. The heuristic classifier emits a
// subset; the rest are reachable through user rules and manual review.
const (
	ClassTransfer            Classification = "transfer"
	ClassSelfTransfer        Classification = "self_transfer"
	ClassSwap                Classification = "swap"
	ClassAirdrop             Classification = "airdrop"
	ClassReward              Classification = "reward"
	ClassNFTMint             Classification = "nft_mint"
	ClassNFTSale             Classification = "nft_sale"
	ClassContractInteraction Classification = "contract_interaction"
	ClassIncome              Classification = "income"
	ClassInterest            Classification = "interest"
	ClassStake               Classification = "stake"
	ClassUnstake             Classification = "unstake"
	ClassSpam                Classification = "spam"
	ClassUnknown             Classification = "unknown"
)

// AllClassifications lists every valid label.
var AllClassifications = []Classification{
	ClassTransfer, ClassSelfTransfer, ClassSwap, ClassAirdrop,
	ClassReward, ClassNFTMint, ClassNFTSale, ClassContractInteraction,
	ClassIncome, ClassInterest, ClassStake, ClassUnstake,
	ClassSpam, ClassUnknown,
}

// Valid reports whether c is a member of the fixed label set.
func (c Classification) Valid() bool {
	for _, known := range AllClassifications {
		if c == known {
			return true
		}
	}
	return false
}

// IsIncomeType reports whether the label counts toward the yearly income
// summary.
func (c Classification) IsIncomeType() bool {
	switch c {
	case ClassReward, ClassAirdrop, ClassInterest, ClassIncome:
		return true
	}
	return false
}

// ClassificationSource records how a transaction got its current label.
type ClassificationSource string

// Classification source constants.
const (
	SourceHeuristic ClassificationSource = "heuristic"
	SourceRule      ClassificationSource = "rule"
	SourceManual    ClassificationSource = "manual"
)

// Transaction is one persisted on-chain transaction for one wallet.
// Unique per (wallet, hash).
type Transaction struct {
	Timestamp       time.Time
	Hash            string
	Chain           string
	ContractAddress string
	MethodName      string
	InboundToken    string
	InboundSymbol   string
	OutboundToken   string
	OutboundSymbol  string
	Source          ClassificationSource
	Classification  Classification
	InboundAmount   decimal.Decimal
	OutboundAmount  decimal.Decimal
	GasFeeNative    decimal.Decimal
	GasFeeUsd       decimal.Decimal
	ValueUsd        decimal.Decimal
	Confidence      float64
	ID              int64
	WalletID        int64
	BlockNumber     int64
	NeedsReview     bool
	UserClassified  bool
	IsSpam          bool
	IsDust          bool
}

// HasInbound reports whether the transaction received value.
func (t *Transaction) HasInbound() bool {
	return t.InboundAmount.IsPositive()
}

// HasOutbound reports whether the transaction sent value.
func (t *Transaction) HasOutbound() bool {
	return t.OutboundAmount.IsPositive()
}
