package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ppockey/po-approvals/internal/domain"
	apperrors "github.com/ppockey/po-approvals/internal/pkg/errors"
)

// decisionRequest is the body of every decision endpoint.
type decisionRequest struct {
	UserID string `json:"userId"`
	Note   string `json:"note"`
}

// ApproveStage handles POST /api/po/:po/stages/:seq/approve.
func (s *Server) ApproveStage(c *gin.Context) {
	s.decideStage(c, domain.DecisionApprove)
}

// DenyStage handles POST /api/po/:po/stages/:seq/deny.
func (s *Server) DenyStage(c *gin.Context) {
	s.decideStage(c, domain.DecisionDeny)
}

func (s *Server) decideStage(c *gin.Context, d domain.Decision) {
	seq, err := strconv.Atoi(c.Param("seq"))
	if err != nil || seq <= 0 {
		_ = c.Error(apperrors.ErrValidation("seq", "sequence must be a positive integer"))
		return
	}
	req, ok := bindDecision(c)
	if !ok {
		return
	}

	if _, err := s.decisions.Decide(c.Request.Context(), c.Param("po"), seq, d, req.UserID, req.Note); err != nil {
		_ = c.Error(toAppError(err))
		return
	}
	c.Status(http.StatusNoContent)
}

// DecideCurrent handles POST /api/po/:po/decisions/:code. The code is the
// UI decision code and applies to the first pending stage.
func (s *Server) DecideCurrent(c *gin.Context) {
	req, ok := bindDecision(c)
	if !ok {
		return
	}

	if _, err := s.decisions.DecideCurrent(c.Request.Context(), c.Param("po"), c.Param("code"), req.UserID, req.Note); err != nil {
		_ = c.Error(toAppError(err))
		return
	}
	c.Status(http.StatusNoContent)
}

func bindDecision(c *gin.Context) (decisionRequest, bool) {
	var req decisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.ErrValidation("body", "request body must be JSON"))
		return req, false
	}
	if strings.TrimSpace(req.UserID) == "" {
		_ = c.Error(apperrors.ErrValidation("userId", "userId is required"))
		return req, false
	}
	return req, true
}
