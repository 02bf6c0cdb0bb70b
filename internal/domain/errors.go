package domain

import (
	"errors"
	"fmt"
)

var (
	ErrChainNotFound       = errors.New("approval chain not found")
	ErrStageNotFound       = errors.New("approval stage not found")
	ErrHeaderNotFound      = errors.New("po header not found")
	ErrInvalidDecisionCode = errors.New("invalid decision code")
	ErrInvalidArgument     = errors.New("invalid argument")

	// ErrStageOutOfOrder is returned when a decision targets a pending stage
	// that has an earlier stage still pending.
	ErrStageOutOfOrder = errors.New("approval stage is not the current stage")

	// ErrLegacyWriteFailed marks a PRMS write that did not affect exactly one
	// row or could not reach PRMS. It is never retried automatically.
	ErrLegacyWriteFailed = errors.New("legacy write failed")

	// ErrTransientTx marks a local serialization or deadlock failure that the
	// transaction runner may retry.
	ErrTransientTx = errors.New("transient transaction failure")
)

// ChainNotPendingError is returned when a decision targets a finalized chain.
type ChainNotPendingError struct {
	PoNumber string
	Current  ChainStatus
}

func (e *ChainNotPendingError) Error() string {
	return fmt.Sprintf("approval chain for po %s is not pending (current status %q)", e.PoNumber, string(e.Current))
}

// StageNotPendingError is returned when the targeted stage was already decided.
type StageNotPendingError struct {
	PoNumber string
	Sequence int
	Current  StageStatus
}

func (e *StageNotPendingError) Error() string {
	return fmt.Sprintf("stage %d of po %s is not pending (current status %q)", e.Sequence, e.PoNumber, string(e.Current))
}

// AsChainNotPending unwraps a ChainNotPendingError from err.
func AsChainNotPending(err error) (*ChainNotPendingError, bool) {
	var target *ChainNotPendingError
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}

// AsStageNotPending unwraps a StageNotPendingError from err.
func AsStageNotPending(err error) (*StageNotPendingError, bool) {
	var target *StageNotPendingError
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}
