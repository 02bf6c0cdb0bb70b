package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/ppockey/po-approvals/internal/domain"
)

type chainResponse struct {
	PoNumber     string          `json:"poNumber"`
	Status       string          `json:"status"`
	StoredStatus string          `json:"storedStatus"`
	CreatedAt    time.Time       `json:"createdAt"`
	FinalizedAt  *time.Time      `json:"finalizedAt,omitempty"`
	CurrentStage *int            `json:"currentStage,omitempty"`
	Stages       []stageResponse `json:"stages"`
	Audit        []auditResponse `json:"audit"`
}

type stageResponse struct {
	Sequence         int                 `json:"sequence"`
	RoleCode         string              `json:"roleCode"`
	Category         string              `json:"category,omitempty"`
	ApproverIdentity string              `json:"approverIdentity,omitempty"`
	ThresholdFrom    decimal.NullDecimal `json:"thresholdFrom"`
	ThresholdTo      decimal.NullDecimal `json:"thresholdTo"`
	Status           string              `json:"status"`
	DecidedAt        *time.Time          `json:"decidedAt,omitempty"`
}

type auditResponse struct {
	OldStatus string    `json:"oldStatus,omitempty"`
	NewStatus string    `json:"newStatus"`
	ChangedBy string    `json:"changedBy"`
	ChangedAt time.Time `json:"changedAt"`
	Note      string    `json:"note,omitempty"`
	Sequence  *int      `json:"sequence,omitempty"`
	RoleCode  string    `json:"roleCode,omitempty"`
}

// GetChain handles GET /api/po/:po/chain.
func (s *Server) GetChain(c *gin.Context) {
	view, err := s.chains.Get(c.Request.Context(), c.Param("po"))
	if err != nil {
		_ = c.Error(toAppError(err))
		return
	}
	c.JSON(http.StatusOK, newChainResponse(view))
}

func newChainResponse(v domain.ChainView) chainResponse {
	resp := chainResponse{
		PoNumber:     v.Chain.PoNumber,
		Status:       string(v.EffectiveStatus()),
		StoredStatus: string(v.Chain.Status),
		CreatedAt:    v.Chain.CreatedAt,
		FinalizedAt:  v.Chain.FinalizedAt,
		Stages:       make([]stageResponse, 0, len(v.Stages)),
		Audit:        make([]auditResponse, 0, len(v.Audit)),
	}
	if v.Chain.Status == domain.ChainPending {
		if first := v.FirstPending(); first != nil {
			seq := first.Sequence
			resp.CurrentStage = &seq
		}
	}
	for _, st := range v.Stages {
		resp.Stages = append(resp.Stages, stageResponse{
			Sequence:         st.Sequence,
			RoleCode:         st.RoleCode,
			Category:         string(st.Category),
			ApproverIdentity: st.ApproverIdentity,
			ThresholdFrom:    st.ThresholdFrom,
			ThresholdTo:      st.ThresholdTo,
			Status:           string(st.Status),
			DecidedAt:        st.DecidedAt,
		})
	}
	for _, a := range v.Audit {
		resp.Audit = append(resp.Audit, auditResponse{
			OldStatus: a.OldStatus,
			NewStatus: a.NewStatus,
			ChangedBy: a.ChangedBy,
			ChangedAt: a.ChangedAt,
			Note:      a.Note,
			Sequence:  a.Sequence,
			RoleCode:  a.RoleCode,
		})
	}
	return resp
}
