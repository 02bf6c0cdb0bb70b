package handlers

import (
	"errors"
	"net/http"

	"github.com/ppockey/po-approvals/internal/domain"
	apperrors "github.com/ppockey/po-approvals/internal/pkg/errors"
)

// toAppError translates usecase and domain errors into API errors.
func toAppError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := apperrors.IsAppError(err); ok {
		return err
	}
	if e, ok := domain.AsChainNotPending(err); ok {
		appErr := apperrors.ErrChainNotPending(e.PoNumber, string(e.Current))
		appErr.Err = err
		return appErr
	}
	if e, ok := domain.AsStageNotPending(err); ok {
		return apperrors.Wrap(err, apperrors.CodeStageNotPending, "approval stage is not pending", http.StatusConflict).
			WithParam("sequence", e.Sequence).
			WithParam("current", string(e.Current))
	}

	switch {
	case errors.Is(err, domain.ErrChainNotFound):
		return apperrors.Wrap(err, apperrors.CodeChainNotFound, "approval chain not found", http.StatusNotFound)
	case errors.Is(err, domain.ErrStageNotFound):
		return apperrors.Wrap(err, apperrors.CodeStageNotFound, "approval stage not found", http.StatusNotFound)
	case errors.Is(err, domain.ErrHeaderNotFound):
		return apperrors.Wrap(err, apperrors.CodeHeaderNotFound, "po header not found", http.StatusNotFound)
	case errors.Is(err, domain.ErrStageOutOfOrder):
		return apperrors.Wrap(err, apperrors.CodeStageNotCurrent, "an earlier stage is still pending", http.StatusConflict)
	case errors.Is(err, domain.ErrInvalidDecisionCode):
		return apperrors.Wrap(err, apperrors.CodeInvalidDecision, "decision code must be A or D", http.StatusBadRequest)
	case errors.Is(err, domain.ErrInvalidArgument):
		return apperrors.Wrap(err, apperrors.CodeValidationFailed, err.Error(), http.StatusBadRequest)
	case errors.Is(err, domain.ErrLegacyWriteFailed):
		return apperrors.Wrap(err, apperrors.CodeLegacyWriteFailed, "decision recorded but PRMS was not updated", http.StatusBadGateway)
	case errors.Is(err, domain.ErrTransientTx):
		return apperrors.Wrap(err, apperrors.CodeTransientFailed, "decision could not be serialized, try again", http.StatusServiceUnavailable)
	default:
		return apperrors.Wrap(err, apperrors.CodeInternal, "An internal error occurred", http.StatusInternalServerError)
	}
}
