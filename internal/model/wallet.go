package model

import "time"

// Wallet is one tracked on-chain address. Unique per (address, chain);
// deleting a wallet cascades to its transactions, lots and disposals.
type Wallet struct {
	CreatedAt time.Time
	Address   string
	Chain     string
	Label     string
	ID        int64
}

// SupportedChains lists the chains the sync pipeline accepts.
var SupportedChains = []string{
	"eth-mainnet",
	"polygon-mainnet",
	"arbitrum-mainnet",
	"optimism-mainnet",
	"base-mainnet",
}

// ChainSupported reports whether the chain can be synced.
func ChainSupported(chain string) bool {
	for _, c := range SupportedChains {
		if c == chain {
			return true
		}
	}
	return false
}
