// Package aggregate groups raw asset transfers into logical transactions.
package aggregate

import (
	"github.com/chaintally/chaintally/internal/model"
)

// GroupByHash folds every raw transfer for a wallet into one
// AggregatedTransaction per transaction hash. Grouping is total: every
// input transfer lands in exactly one group, and legs within a group
// preserve the order transfers were observed in. Groups are returned in
// order of first observation.
func GroupByHash(transfers []model.RawTransfer, walletAddress string) []model.AggregatedTransaction {
	index := make(map[string]int, len(transfers))
	groups := make([]model.AggregatedTransaction, 0, len(transfers))

	for _, transfer := range transfers {
		i, ok := index[transfer.Hash]
		if !ok {
			i = len(groups)
			index[transfer.Hash] = i
			groups = append(groups, model.AggregatedTransaction{
				Hash:        transfer.Hash,
				BlockNumber: transfer.BlockNumber,
				Timestamp:   transfer.BlockTimestamp,
			})
		}
		addTransfer(&groups[i], transfer, walletAddress)
	}

	return groups
}

func addTransfer(group *model.AggregatedTransaction, transfer model.RawTransfer, walletAddress string) {
	group.Transfers = append(group.Transfers, transfer)

	if transfer.Category.IsNFT() {
		group.HasNFT = true
	}
	if model.SameAddress(transfer.From, model.NullAddress) {
		group.IsMint = true
	}
	if transfer.Category == model.CategoryInternal {
		group.IsInternal = true
	}
	if transfer.ContractAddress != "" {
		group.HasContractInteraction = true
	}

	// Zero or missing amounts carry no economic value and produce no leg.
	if !transfer.HasAmount() {
		return
	}

	leg := model.TransferLeg{
		Asset:  transfer.ContractAddress,
		Symbol: transfer.Symbol,
		Amount: *transfer.Amount,
	}
	if model.SameAddress(transfer.To, walletAddress) {
		group.Inbound = append(group.Inbound, leg)
	}
	if model.SameAddress(transfer.From, walletAddress) {
		group.Outbound = append(group.Outbound, leg)
	}
}
