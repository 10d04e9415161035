package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"water-quality-backend/internal/job"
	"water-quality-backend/internal/water"
)

type treatmentRequest struct {
	Area              string   `json:"area"`
	Device            string   `json:"device"`
	VolumeLiters      float64  `json:"volume_liters"`
	FlowLPerMin       *float64 `json:"flow_L_per_min"`
	RemovalEfficiency *float64 `json:"removal_efficiency"`
}

// StartTreatment handles POST /api/treatments.
func (h *Handler) StartTreatment(c *gin.Context) {
	var req treatmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if req.Area == "" {
		abortWithError(c, &water.InvalidInputError{Field: "area", Reason: "is required"})
		return
	}

	hardness, _, err := h.currentHardness(c, req.Area)
	if err != nil {
		abortWithError(c, err)
		return
	}

	j, err := h.Jobs.Submit(c.Request.Context(), job.Request{
		Area:              h.displayName(req.Area),
		Device:            req.Device,
		VolumeLiters:      req.VolumeLiters,
		FlowLPerMin:       req.FlowLPerMin,
		RemovalEfficiency: req.RemovalEfficiency,
		InitialHardness:   hardness,
	})
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"job_id":            j.ID,
		"estimated_minutes": j.EstimatedMinutes,
		"status":            j.Status,
	})
}

// GetTreatment handles GET /api/treatments/:id.
func (h *Handler) GetTreatment(c *gin.Context) {
	j, err := h.Jobs.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, j)
}
