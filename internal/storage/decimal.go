package storage

import (
	"database/sql"

	"github.com/shopspring/decimal"
)

// Decimals are stored as TEXT to avoid REAL rounding drift.

func decimalString(d decimal.Decimal) string {
	return d.String()
}

func scanDecimal(s sql.NullString) decimal.Decimal {
	if !s.Valid || s.String == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s.String)
	if err != nil {
		return decimal.Zero
	}
	return d
}
