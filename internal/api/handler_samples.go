package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"water-quality-backend/internal/log"
	"water-quality-backend/internal/store"
	"water-quality-backend/internal/water"
)

const generalAnalysis = "General Analysis"

// sampleRequest is a manual or sensor reading. Pointers distinguish a missing
// field from a zero reading.
type sampleRequest struct {
	Area        string   `json:"area"`
	TDS         *float64 `json:"TDS"`
	PH          *float64 `json:"pH"`
	Ca          *float64 `json:"Ca"`
	Mg          *float64 `json:"Mg"`
	Turbidity   *float64 `json:"turbidity"`
	Chlorine    *float64 `json:"chlorine"`
	TargetChore string   `json:"target_chore"`
}

// sample checks required fields in a fixed order and builds the reading.
func (r sampleRequest) sample() (water.Sample, error) {
	if strings.TrimSpace(r.Area) == "" {
		return water.Sample{}, &water.InvalidInputError{Field: "area", Reason: "is required"}
	}
	for _, f := range []struct {
		name string
		v    *float64
	}{
		{"TDS", r.TDS},
		{"pH", r.PH},
		{"Ca", r.Ca},
		{"Mg", r.Mg},
		{"turbidity", r.Turbidity},
		{"chlorine", r.Chlorine},
	} {
		if f.v == nil {
			return water.Sample{}, &water.InvalidInputError{Field: f.name, Reason: "is required"}
		}
	}

	s := water.Sample{
		Area:      strings.TrimSpace(r.Area),
		TDS:       *r.TDS,
		PH:        *r.PH,
		Ca:        *r.Ca,
		Mg:        *r.Mg,
		Turbidity: *r.Turbidity,
		Chlorine:  *r.Chlorine,
	}
	return s, s.Validate()
}

type classifyResponse struct {
	water.Sample
	water.Classification
	TargetChore          string            `json:"target_chore"`
	HouseholdSuitability water.Suitability `json:"household_suitability"`
}

// Classify handles POST /api/classify.
func (h *Handler) Classify(c *gin.Context) {
	var req sampleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	s, err := req.sample()
	if err != nil {
		abortWithError(c, err)
		return
	}
	s.Timestamp = h.Clock.Now().UTC()

	result, err := water.Classify(s)
	if err != nil {
		abortWithError(c, err)
		return
	}

	resp := classifyResponse{Sample: s, Classification: result, TargetChore: generalAnalysis}
	if req.TargetChore != "" {
		chore, err := h.Chores.Lookup(req.TargetChore)
		if err != nil {
			var ie *water.InvalidInputError
			if errors.As(err, &ie) {
				ie.Field = "target_chore"
			}
			abortWithError(c, err)
			return
		}
		resp.TargetChore = chore.Name
		resp.HouseholdSuitability = chore.Suitability(s, result.Hardness)
	} else {
		resp.HouseholdSuitability = water.GeneralSuitability(s, result.Hardness)
	}

	h.Metrics.Classifications.WithLabelValues(string(result.Status)).Inc()
	log.Debugf("classified sample for %s: %s", s.Area, result.Status)
	c.JSON(http.StatusOK, resp)
}

// Ingest handles POST /api/ingest. The server always stamps the observation
// time; a reading already stored for the same area and second is ignored.
func (h *Handler) Ingest(c *gin.Context) {
	var req sampleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	s, err := req.sample()
	if err != nil {
		abortWithError(c, err)
		return
	}
	s.Area = h.displayName(s.Area)
	s.Timestamp = h.Clock.Now().UTC()

	written, err := h.Samples.SaveSamples(c.Request.Context(), store.OriginIngest, []water.Sample{s})
	if err != nil {
		abortWithError(c, err)
		return
	}
	if written == 0 {
		log.Infow("duplicate sample ignored", "area", s.Area, "timestamp", s.Timestamp)
		c.JSON(http.StatusOK, gin.H{
			"message":   "Duplicate sample ignored",
			"area":      s.Area,
			"timestamp": s.Timestamp,
		})
		return
	}
	if h.Cache != nil {
		h.Cache.Flush()
	}

	h.Metrics.SamplesIngested.WithLabelValues(store.OriginIngest).Inc()
	log.Infow("sample ingested", "area", s.Area, "TDS", s.TDS)
	c.JSON(http.StatusCreated, gin.H{
		"message":   "Data ingested successfully",
		"area":      s.Area,
		"timestamp": s.Timestamp,
	})
}
