// Package classify infers the economic intent of an aggregated
// transaction through an ordered heuristic decision tree.
package classify

import (
	"strings"

	"github.com/chaintally/chaintally/internal/model"
)

// Result pairs a classification label with a confidence score in [0,1].
type Result struct {
	Classification model.Classification
	Confidence     float64
}

// Classify assigns a label and confidence to an aggregated transaction.
// It is deterministic and total: every input yields exactly one label
// from the fixed set, with unknown/0.0 as the universal fallback. Rules
// are ordered by specificity; the first match wins.
func Classify(txn *model.AggregatedTransaction, walletAddress string) Result {
	hasIn := len(txn.Inbound) > 0
	hasOut := len(txn.Outbound) > 0

	// Single value movement: self-transfer beats everything else.
	if single := singleTransfer(txn); single != nil {
		if model.SameAddress(single.From, single.To) {
			return Result{model.ClassSelfTransfer, 0.95}
		}
		sent := model.SameAddress(single.From, walletAddress)
		received := model.SameAddress(single.To, walletAddress)
		if sent != received {
			return Result{model.ClassTransfer, 0.90}
		}
	}

	if txn.HasNFT {
		if txn.IsMint {
			return Result{model.ClassNFTMint, 0.90}
		}
		return Result{model.ClassNFTSale, 0.70}
	}

	if hasIn && hasOut {
		if symbolsDiffer(txn.Inbound, txn.Outbound) || touchesRouter(txn) {
			return Result{model.ClassSwap, 0.80}
		}
		// Same token both ways with no router: internal rebalancing,
		// not a taxable exchange.
		return Result{model.ClassTransfer, 0.90}
	}

	if hasIn {
		if fromNullAddress(txn) {
			return Result{model.ClassAirdrop, 0.70}
		}
		if txn.IsInternal {
			return Result{model.ClassReward, 0.60}
		}
		return Result{model.ClassTransfer, 0.90}
	}

	if hasOut {
		return Result{model.ClassTransfer, 0.90}
	}

	if txn.HasContractInteraction {
		return Result{model.ClassContractInteraction, 0.0}
	}

	return Result{model.ClassUnknown, 0.0}
}

// singleTransfer returns the group's transfer when the group consists
// of exactly one transfer and that transfer carries value. Groups with
// extra records, even valueless ones like an NFT movement, are not
// single: they hold context the later rules need.
func singleTransfer(txn *model.AggregatedTransaction) *model.RawTransfer {
	if len(txn.Transfers) != 1 {
		return nil
	}
	single := &txn.Transfers[0]
	if !single.HasAmount() {
		return nil
	}
	return single
}

// symbolsDiffer reports whether at least one inbound symbol is absent
// from the outbound symbol set. Asymmetric symbol sets are swaps
// regardless of router presence.
func symbolsDiffer(inbound, outbound []model.TransferLeg) bool {
	out := make(map[string]struct{}, len(outbound))
	for _, leg := range outbound {
		out[strings.ToUpper(leg.Symbol)] = struct{}{}
	}
	for _, leg := range inbound {
		if _, ok := out[strings.ToUpper(leg.Symbol)]; !ok {
			return true
		}
	}
	return false
}

func touchesRouter(txn *model.AggregatedTransaction) bool {
	for i := range txn.Transfers {
		if IsKnownRouter(txn.Transfers[i].From) || IsKnownRouter(txn.Transfers[i].To) {
			return true
		}
	}
	return false
}

func fromNullAddress(txn *model.AggregatedTransaction) bool {
	for i := range txn.Transfers {
		if model.SameAddress(txn.Transfers[i].From, model.NullAddress) {
			return true
		}
	}
	return false
}
