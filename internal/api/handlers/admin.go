package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ppockey/po-approvals/internal/api/middleware"
	"github.com/ppockey/po-approvals/internal/jobs"
	apperrors "github.com/ppockey/po-approvals/internal/pkg/errors"
	"github.com/ppockey/po-approvals/internal/pkg/logger"
	"github.com/ppockey/po-approvals/internal/pkg/worker"
)

type acceptedResponse struct {
	Status string `json:"status"`
	JobID  int64  `json:"jobId,omitempty"`
	// Duplicate is true when an equivalent job was already queued.
	Duplicate bool `json:"duplicate,omitempty"`
}

// ProcessOutbox handles POST /api/po-approvals/admin/process-outbox. One
// batch runs on the general pool; the result is only logged.
func (s *Server) ProcessOutbox(c *gin.Context) {
	if s.outbox == nil || s.pools == nil {
		_ = c.Error(apperrors.New(apperrors.CodeServiceUnavail, "outbox processor is not configured", http.StatusServiceUnavailable))
		return
	}

	rid := middleware.GetRequestID(c.Request.Context())
	err := s.pools.SubmitDetached(worker.PoolGeneral, func(ctx context.Context) {
		res, err := s.outbox.RunBatch(ctx)
		if err != nil {
			logger.Error("manual outbox batch failed", zap.String("request_id", rid), zap.Error(err))
			return
		}
		logger.Info("manual outbox batch finished",
			zap.String("request_id", rid),
			zap.String("run_id", res.RunID),
			zap.Int("processed", res.Processed),
			zap.Int("failed", res.Failed),
			zap.Int("chains_created", res.ChainsCreated),
		)
	})
	if err != nil {
		_ = c.Error(apperrors.Wrap(err, apperrors.CodeServiceUnavail, "worker pool rejected the batch", http.StatusServiceUnavailable))
		return
	}
	c.JSON(http.StatusAccepted, acceptedResponse{Status: "accepted"})
}

// ExtractLegacy handles POST /api/po-approvals/admin/extract-legacy by
// enqueueing a legacy extract job.
func (s *Server) ExtractLegacy(c *gin.Context) {
	if !s.legacyOn || s.jobs == nil {
		_ = c.Error(apperrors.Conflict(apperrors.CodeLegacyDisabled, "PRMS integration is disabled"))
		return
	}

	res, err := s.jobs.Insert(c.Request.Context(), jobs.LegacyExtractArgs{}, nil)
	if err != nil {
		_ = c.Error(apperrors.Wrap(err, apperrors.CodeServiceUnavail, "could not enqueue legacy extract", http.StatusServiceUnavailable))
		return
	}

	resp := acceptedResponse{Status: "accepted", Duplicate: res.UniqueSkippedAsDuplicate}
	if res.Job != nil {
		resp.JobID = res.Job.ID
	}
	c.JSON(http.StatusAccepted, resp)
}
