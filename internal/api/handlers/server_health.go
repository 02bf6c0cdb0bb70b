package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	healthOK       = "ok"
	healthDegraded = "degraded"
)

type healthResponse struct {
	Status string                    `json:"status"`
	Checks map[string]string         `json:"checks,omitempty"`
	Pools  map[string]map[string]int `json:"pools,omitempty"`
}

// GetLiveness handles GET /health/live.
func (s *Server) GetLiveness(c *gin.Context) {
	c.JSON(http.StatusOK, healthResponse{Status: healthOK})
}

// GetReadiness handles GET /health/ready.
func (s *Server) GetReadiness(c *gin.Context) {
	checks := make(map[string]string)
	allHealthy := true

	if s.db == nil || s.db.Ping(c.Request.Context()) != nil {
		checks["database"] = "error"
		allHealthy = false
	} else {
		checks["database"] = healthOK
	}

	status := healthOK
	httpStatus := http.StatusOK
	if !allHealthy {
		status = healthDegraded
		httpStatus = http.StatusServiceUnavailable
	}

	resp := healthResponse{Status: status, Checks: checks}
	if s.stats != nil {
		resp.Pools = s.stats.Metrics()
	}
	c.JSON(httpStatus, resp)
}
