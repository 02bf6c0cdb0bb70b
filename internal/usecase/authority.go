package usecase

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/ppockey/po-approvals/internal/domain"
	"github.com/ppockey/po-approvals/internal/legacy"
)

// BracketReader reads the delegation-of-authority tables.
type BracketReader interface {
	IndirectBracket(ctx context.Context, level string) (decimal.NullDecimal, error)
	DirectBracket(ctx context.Context, level string) (decimal.NullDecimal, error)
}

// LegacyAuditInputs is what the PRMS audit row needs beyond the decision.
type LegacyAuditInputs struct {
	AmountType domain.Category
	Bracket    decimal.Decimal
	Approver   string
}

type bracketStrategy func(ctx context.Context, r BracketReader, level string) (domain.Category, decimal.Decimal, error)

// AuthorityResolver picks the amount type and bracket reported to PRMS for a
// deciding stage. The table consulted depends on the stage category.
type AuthorityResolver struct {
	strategies map[domain.Category]bracketStrategy
	fallback   bracketStrategy
}

func NewAuthorityResolver() *AuthorityResolver {
	return &AuthorityResolver{
		strategies: map[domain.Category]bracketStrategy{
			domain.CategoryIndirect: indirectOnly,
			domain.CategoryDirect:   directOnly,
		},
		fallback: preferDirect,
	}
}

// Resolve returns the PRMS audit inputs for stage decided by actor. The DOA
// level is the stage role code.
func (a *AuthorityResolver) Resolve(ctx context.Context, r BracketReader, stage domain.ApprovalStage, actor string) (LegacyAuditInputs, error) {
	strategy, ok := a.strategies[stage.Category]
	if !ok {
		strategy = a.fallback
	}

	amountType, bracket, err := strategy(ctx, r, stage.RoleCode)
	if err != nil {
		return LegacyAuditInputs{}, fmt.Errorf("resolve authority for po %s stage %d: %w", stage.PoNumber, stage.Sequence, err)
	}
	return LegacyAuditInputs{
		AmountType: amountType,
		Bracket:    bracket,
		Approver:   legacy.ApproverID(actor),
	}, nil
}

func indirectOnly(ctx context.Context, r BracketReader, level string) (domain.Category, decimal.Decimal, error) {
	b, err := r.IndirectBracket(ctx, level)
	if err != nil {
		return "", decimal.Zero, err
	}
	return domain.CategoryIndirect, orZero(b), nil
}

func directOnly(ctx context.Context, r BracketReader, level string) (domain.Category, decimal.Decimal, error) {
	b, err := r.DirectBracket(ctx, level)
	if err != nil {
		return "", decimal.Zero, err
	}
	return domain.CategoryDirect, orZero(b), nil
}

// preferDirect reads both tables. Direct wins when present and not below
// indirect.
func preferDirect(ctx context.Context, r BracketReader, level string) (domain.Category, decimal.Decimal, error) {
	ind, err := r.IndirectBracket(ctx, level)
	if err != nil {
		return "", decimal.Zero, err
	}
	dir, err := r.DirectBracket(ctx, level)
	if err != nil {
		return "", decimal.Zero, err
	}

	switch {
	case dir.Valid && (!ind.Valid || dir.Decimal.GreaterThanOrEqual(ind.Decimal)):
		return domain.CategoryDirect, dir.Decimal, nil
	case ind.Valid:
		return domain.CategoryIndirect, ind.Decimal, nil
	default:
		return domain.CategoryDirect, decimal.Zero, nil
	}
}

func orZero(d decimal.NullDecimal) decimal.Decimal {
	if !d.Valid {
		return decimal.Zero
	}
	return d.Decimal
}
