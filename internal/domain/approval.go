// Package domain holds the PO approval model: chains, stages, outbox events,
// audit records, and the status code translations between the local store,
// the UI, and PRMS.
//
// Import Path: github.com/ppockey/po-approvals/internal/domain
package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ChainStatus is the persisted status of an approval chain.
type ChainStatus string

const (
	ChainPending  ChainStatus = "P"
	ChainApproved ChainStatus = "A"
	ChainDenied   ChainStatus = "D"
)

// IsTerminal reports whether no further transition is allowed.
func (s ChainStatus) IsTerminal() bool {
	return s == ChainApproved || s == ChainDenied
}

// StageStatus is the persisted status of one approval stage.
type StageStatus string

const (
	StagePending  StageStatus = "P"
	StageApproved StageStatus = "A"
	StageDenied   StageStatus = "D"
	StageSkipped  StageStatus = "S"
)

// Category says which delegation-of-authority table governs a stage.
type Category string

const (
	CategoryUnspecified Category = ""
	CategoryIndirect    Category = "I"
	CategoryDirect      Category = "D"
)

// ParseCategory maps a stored category column to a Category. Unknown values
// are treated as unspecified.
func ParseCategory(s string) Category {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "I":
		return CategoryIndirect
	case "D":
		return CategoryDirect
	default:
		return CategoryUnspecified
	}
}

// ApprovalChain is the single approval workflow instance for one PO.
type ApprovalChain struct {
	PoNumber    string
	Status      ChainStatus
	CreatedAt   time.Time
	FinalizedAt *time.Time
}

// ApprovalStage is one approver checkpoint inside a chain.
type ApprovalStage struct {
	PoNumber         string
	Sequence         int
	RoleCode         string
	ApproverIdentity string
	Category         Category
	ThresholdFrom    decimal.NullDecimal
	ThresholdTo      decimal.NullDecimal
	Status           StageStatus
	DecidedAt        *time.Time
}

// StageRole is one derived stage before it is persisted.
type StageRole struct {
	Sequence      int                 `json:"sequence" yaml:"sequence"`
	RoleCode      string              `json:"role_code" yaml:"role_code"`
	Category      Category            `json:"category,omitempty" yaml:"category,omitempty"`
	ThresholdFrom decimal.NullDecimal `json:"threshold_from" yaml:"-"`
	ThresholdTo   decimal.NullDecimal `json:"threshold_to" yaml:"-"`
}

// NewPendingStage turns a derived role into a pending stage row for po.
func (r StageRole) NewPendingStage(po string) ApprovalStage {
	return ApprovalStage{
		PoNumber:      po,
		Sequence:      r.Sequence,
		RoleCode:      r.RoleCode,
		Category:      r.Category,
		ThresholdFrom: r.ThresholdFrom,
		ThresholdTo:   r.ThresholdTo,
		Status:        StagePending,
	}
}

// ChainView is the read model returned to API callers.
type ChainView struct {
	Chain  ApprovalChain
	Stages []ApprovalStage
	Audit  []AuditRecord
}

// EffectiveStatus reports a pending chain with no stages as approved.
// Such a chain has nothing left to decide.
func (v ChainView) EffectiveStatus() ChainStatus {
	if v.Chain.Status == ChainPending && len(v.Stages) == 0 {
		return ChainApproved
	}
	return v.Chain.Status
}

// FirstPending returns the lowest-sequence pending stage, or nil.
func (v ChainView) FirstPending() *ApprovalStage {
	var first *ApprovalStage
	for i := range v.Stages {
		s := &v.Stages[i]
		if s.Status != StagePending {
			continue
		}
		if first == nil || s.Sequence < first.Sequence {
			first = s
		}
	}
	return first
}

// AuditRecord is one append-only transition row.
type AuditRecord struct {
	ID        int64
	PoNumber  string
	OldStatus string
	NewStatus string
	ChangedBy string
	ChangedAt time.Time
	Note      string
	Sequence  *int
	RoleCode  string
	Category  Category
}
