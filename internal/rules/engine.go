// Package rules evaluates user-defined classification override rules.
package rules

import (
	"sort"
	"strings"

	"github.com/chaintally/chaintally/internal/model"
)

// Engine evaluates a user's rules against transactions. Each rule
// compiles to a set of optional predicates combined with AND; an unset
// field is always true for its predicate. Rules are evaluated in
// descending priority order and the first full match wins.
type Engine struct {
	rules []model.ClassificationRule
}

// NewEngine creates an engine over the given rules.
func NewEngine(ruleSet []model.ClassificationRule) *Engine {
	rules := make([]model.ClassificationRule, len(ruleSet))
	copy(rules, ruleSet)
	sort.SliceStable(rules, func(i, j int) bool {
		return rules[i].Priority > rules[j].Priority
	})
	return &Engine{rules: rules}
}

// Match returns the highest-priority active rule matching the
// transaction, or nil when no rule matches.
func (e *Engine) Match(txn *model.Transaction) *model.ClassificationRule {
	for i := range e.rules {
		rule := &e.rules[i]
		if !rule.IsActive {
			continue
		}
		// A rule with no conditions matches nothing.
		if !rule.HasConditions() {
			continue
		}
		if matchesRule(txn, rule) {
			return rule
		}
	}
	return nil
}

// Apply evaluates the transaction against the rule set and, on a match,
// rewrites its classification in place: the rule's label, confidence
// 1.0, review cleared. The transaction is marked rule-classified, not
// user-classified, so a human decision is still distinguishable from a
// rule hit. Returns true when a rule applied.
func (e *Engine) Apply(txn *model.Transaction) bool {
	// Human classifications are never silently overwritten by rules.
	if txn.UserClassified {
		return false
	}

	rule := e.Match(txn)
	if rule == nil {
		return false
	}

	txn.Classification = rule.Classification
	txn.Confidence = 1.0
	txn.NeedsReview = false
	txn.Source = model.SourceRule
	return true
}

func matchesRule(txn *model.Transaction, rule *model.ClassificationRule) bool {
	if rule.ContractAddress != "" && !strings.EqualFold(rule.ContractAddress, txn.ContractAddress) {
		return false
	}
	if rule.MethodName != "" && !strings.EqualFold(rule.MethodName, txn.MethodName) {
		return false
	}
	if rule.TokenSymbol != "" && !matchesSymbol(txn, rule.TokenSymbol) {
		return false
	}
	if rule.Chain != "" && !strings.EqualFold(rule.Chain, txn.Chain) {
		return false
	}
	return true
}

// matchesSymbol checks the pattern as a case-insensitive substring of
// either side's token symbol.
func matchesSymbol(txn *model.Transaction, pattern string) bool {
	p := strings.ToUpper(pattern)
	return strings.Contains(strings.ToUpper(txn.InboundSymbol), p) ||
		strings.Contains(strings.ToUpper(txn.OutboundSymbol), p)
}
