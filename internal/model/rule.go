package model

import "time"

// ClassificationRule is a user-owned, priority-ordered matcher that
// overrides the heuristic classification. Every non-empty field must
// match for the rule to apply; a rule with no fields set matches
// nothing and is rejected at validation time.
type ClassificationRule struct {
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	ContractAddress string         `json:"contract_address,omitempty"`
	MethodName      string         `json:"method_name,omitempty"`
	TokenSymbol     string         `json:"token_symbol,omitempty"`
	Chain           string         `json:"chain,omitempty"`
	Classification  Classification `json:"classification"`
	ID              int64          `json:"id"`
	Priority        int            `json:"priority"`
	IsActive        bool           `json:"is_active"`
}

// HasConditions reports whether at least one matcher field is set.
func (r *ClassificationRule) HasConditions() bool {
	return r.ContractAddress != "" || r.MethodName != "" ||
		r.TokenSymbol != "" || r.Chain != ""
}
