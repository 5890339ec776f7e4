package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// CostBasisMethod selects which lots a disposal consumes first.
type CostBasisMethod string

// Cost basis method constants.
const (
	MethodFIFO       CostBasisMethod = "fifo"
	MethodLIFO       CostBasisMethod = "lifo"
	MethodHIFO       CostBasisMethod = "hifo"
	MethodSpecificID CostBasisMethod = "specific_id"
)

// ValidMethod reports whether m is a known cost basis method.
func ValidMethod(m CostBasisMethod) bool {
	switch m {
	case MethodFIFO, MethodLIFO, MethodHIFO, MethodSpecificID:
		return true
	}
	return false
}

// TaxLot is one acquisition event of a token. RemainingAmount is
// decremented as disposals consume the lot; a fully consumed lot is
// kept as a permanent audit record, never deleted.
type TaxLot struct {
	AcquiredAt      time.Time
	Token           string
	Symbol          string
	Amount          decimal.Decimal
	RemainingAmount decimal.Decimal
	CostBasisUsd    decimal.Decimal
	ID              int64
	WalletID        int64
	TransactionID   int64
}

// UnitCost returns the cost basis per unit of the original acquisition.
func (l *TaxLot) UnitCost() decimal.Decimal {
	if l.Amount.IsZero() {
		return decimal.Zero
	}
	return l.CostBasisUsd.Div(l.Amount)
}

// Disposal is one realized gain/loss event consuming part or all of one
// lot. Immutable once created.
type Disposal struct {
	DisposedAt   time.Time
	AcquiredAt   time.Time
	Token        string
	Symbol       string
	Amount       decimal.Decimal
	ProceedsUsd  decimal.Decimal
	CostBasisUsd decimal.Decimal
	GainLossUsd  decimal.Decimal
	ID           int64
	WalletID     int64
	TaxLotID     int64
	IsShortTerm  bool
}

// LongTermHolding is the holding period at or above which a disposal
// counts as long-term.
const LongTermHolding = 365 * 24 * time.Hour

// RoundUsd rounds a USD value to two decimal places, the resolution all
// money fields are stored at.
func RoundUsd(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}
