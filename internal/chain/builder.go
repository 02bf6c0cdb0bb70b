// Package chain derives the ordered approver roles of a PO from its direct
// and indirect amounts.
package chain

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ppockey/po-approvals/internal/domain"
)

// Role codes used by the threshold rules.
const (
	RoleLPM = "LPM"
	RoleGM  = "GM"
	RoleSFC = "SFC"
	RoleVP  = "VP"
)

var (
	indirectLow  = decimal.NewFromInt(2000)
	directMid    = decimal.NewFromInt(50000)
	directHigh   = decimal.NewFromInt(100000)
	unboundedNil = decimal.NullDecimal{}
)

// rule contributes roles when amount falls in (from, to]. A null from means
// no lower bound; a null to means no upper bound.
type rule struct {
	category domain.Category
	from     decimal.NullDecimal
	to       decimal.NullDecimal
	roles    []string
}

func (r rule) matches(amount decimal.Decimal) bool {
	if r.from.Valid && !amount.GreaterThan(r.from.Decimal) {
		return false
	}
	if r.to.Valid && amount.GreaterThan(r.to.Decimal) {
		return false
	}
	return true
}

// Indirect rules come first; their order is the evaluation order.
var (
	indirectRules = []rule{
		{domain.CategoryIndirect, unboundedNil, decimal.NewNullDecimal(indirectLow), []string{RoleLPM, RoleGM, RoleSFC}},
		{domain.CategoryIndirect, decimal.NewNullDecimal(indirectLow), unboundedNil, []string{RoleLPM, RoleGM, RoleSFC, RoleVP}},
	}
	directRules = []rule{
		{domain.CategoryDirect, decimal.NewNullDecimal(directHigh), unboundedNil, []string{RoleLPM, RoleSFC, RoleGM}},
		{domain.CategoryDirect, decimal.NewNullDecimal(directMid), decimal.NewNullDecimal(directHigh), []string{RoleLPM}},
	}
)

// Build returns the deduplicated, 1-based ordered roles for a PO. An absent
// amount contributes nothing; no match gives an empty slice. Each role keeps
// the category and bracket of the rule that contributed it first.
func Build(_ string, direct, indirect decimal.NullDecimal) []domain.StageRole {
	out := make([]domain.StageRole, 0, 4)
	seen := make(map[string]struct{}, 4)

	apply := func(amount decimal.NullDecimal, rules []rule) {
		if !amount.Valid {
			return
		}
		for _, r := range rules {
			if !r.matches(amount.Decimal) {
				continue
			}
			for _, code := range r.roles {
				key := strings.ToUpper(strings.TrimSpace(code))
				if _, dup := seen[key]; dup {
					continue
				}
				seen[key] = struct{}{}
				out = append(out, domain.StageRole{
					Sequence:      len(out) + 1,
					RoleCode:      code,
					Category:      r.category,
					ThresholdFrom: r.from,
					ThresholdTo:   r.to,
				})
			}
		}
	}

	apply(indirect, indirectRules)
	apply(direct, directRules)
	return out
}

// RoleCodes flattens roles to their codes in sequence order.
func RoleCodes(roles []domain.StageRole) []string {
	codes := make([]string, len(roles))
	for i, r := range roles {
		codes[i] = r.RoleCode
	}
	return codes
}
