package model

import "github.com/shopspring/decimal"

// Settings holds the per-user preferences that shape classification
// visibility and tax computation. One row exists per database.
type Settings struct {
	CostBasisMethod  CostBasisMethod
	DustThresholdUsd decimal.Decimal
	TaxYear          int
	HideDust         bool
	HideSpam         bool
}

// DefaultSettings returns the settings applied before the user changes
// anything.
func DefaultSettings() Settings {
	return Settings{
		CostBasisMethod:  MethodFIFO,
		DustThresholdUsd: decimal.NewFromFloat(1.00),
		TaxYear:          0,
		HideDust:         false,
		HideSpam:         true,
	}
}
