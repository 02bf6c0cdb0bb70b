package domain

import (
	"fmt"
	"strings"
)

// Decision is the two-valued outcome of a human approver.
type Decision int

const (
	DecisionApprove Decision = iota + 1
	DecisionDeny
)

func (d Decision) String() string {
	switch d {
	case DecisionApprove:
		return "approve"
	case DecisionDeny:
		return "deny"
	default:
		return fmt.Sprintf("decision(%d)", int(d))
	}
}

// Valid reports whether d is one of the two defined decisions.
func (d Decision) Valid() bool {
	return d == DecisionApprove || d == DecisionDeny
}

// UI decision codes sent by the front end.
const (
	UICodeApprove = "A"
	UICodeDeny    = "D"
)

// LegacyStatusWaiting is the PRMS P3STAT value of a PO awaiting approval.
// The mapper never writes it; the claim filters on it.
const LegacyStatusWaiting = "W"

// ParseDecisionCode maps a UI decision code to a Decision.
func ParseDecisionCode(code string) (Decision, error) {
	switch strings.TrimSpace(code) {
	case UICodeApprove:
		return DecisionApprove, nil
	case UICodeDeny:
		return DecisionDeny, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidDecisionCode, code)
	}
}

// PrimaryStatus is the PRMS INPUP500.P3STAT code: Y approved, N denied.
func (d Decision) PrimaryStatus() (string, error) {
	switch d {
	case DecisionApprove:
		return "Y", nil
	case DecisionDeny:
		return "N", nil
	default:
		return "", fmt.Errorf("%w: %s", ErrInvalidDecisionCode, d)
	}
}

// AuditWorkfileStatus is the PRMS INPVP500.P5STAT code: A approved, R rejected.
func (d Decision) AuditWorkfileStatus() (string, error) {
	switch d {
	case DecisionApprove:
		return "A", nil
	case DecisionDeny:
		return "R", nil
	default:
		return "", fmt.Errorf("%w: %s", ErrInvalidDecisionCode, d)
	}
}

// StageStatus is the stage status a decision moves a pending stage to.
func (d Decision) StageStatus() (StageStatus, error) {
	switch d {
	case DecisionApprove:
		return StageApproved, nil
	case DecisionDeny:
		return StageDenied, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrInvalidDecisionCode, d)
	}
}

// ChainStatus is the terminal chain status a finalizing decision produces.
func (d Decision) ChainStatus() (ChainStatus, error) {
	switch d {
	case DecisionApprove:
		return ChainApproved, nil
	case DecisionDeny:
		return ChainDenied, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrInvalidDecisionCode, d)
	}
}

// POState is the externally visible PO status in the local header table.
type POState string

const (
	POWaiting  POState = "W"
	POApproved POState = "A"
	PODenied   POState = "D"
)

// POState is the header status a finalizing decision produces.
func (d Decision) POState() (POState, error) {
	switch d {
	case DecisionApprove:
		return POApproved, nil
	case DecisionDeny:
		return PODenied, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrInvalidDecisionCode, d)
	}
}
