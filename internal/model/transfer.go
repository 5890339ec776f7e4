// Package model defines the core domain models used throughout the application.
package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// NullAddress is the canonical zero address used for mints and burns.
const NullAddress = "0x0000000000000000000000000000000000000000"

// TransferCategory tags the kind of value movement the provider observed.
type TransferCategory string

// Transfer category constants, matching the upstream provider's tags.
const (
	CategoryExternal   TransferCategory = "external"
	CategoryInternal   TransferCategory = "internal"
	CategoryERC20      TransferCategory = "erc20"
	CategoryERC721     TransferCategory = "erc721"
	CategoryERC1155    TransferCategory = "erc1155"
	CategorySpecialNFT TransferCategory = "specialnft"
)

// IsNFT reports whether the category is an NFT token standard.
func (c TransferCategory) IsNFT() bool {
	switch c {
	case CategoryERC721, CategoryERC1155, CategorySpecialNFT:
		return true
	}
	return false
}

// RawTransfer is one atomic value movement observed on-chain. Immutable
// once fetched; owned transiently by the aggregator.
type RawTransfer struct {
	BlockTimestamp  time.Time
	UniqueID        string
	Hash            string
	From            string
	To              string // empty for burns
	ContractAddress string // empty for the native asset
	Symbol          string
	Category        TransferCategory
	Amount          *decimal.Decimal // nil when the category carries no value
	BlockNumber     int64
}

// HasAmount reports whether the transfer carries a positive value.
func (t *RawTransfer) HasAmount() bool {
	return t.Amount != nil && t.Amount.IsPositive()
}

// SameAddress compares two addresses case-insensitively.
func SameAddress(a, b string) bool {
	return a != "" && strings.EqualFold(a, b)
}
