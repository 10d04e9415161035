package store

import (
	"time"

	"water-quality-backend/internal/model"
	"water-quality-backend/internal/parse"
	"water-quality-backend/internal/water"
)

// Sample origins.
const (
	OriginIngest   = "ingest"
	OriginUpstream = "upstream"
)

func toModel(s water.Sample, origin string, now time.Time) model.Sample {
	return model.Sample{
		Area:       parse.AreaName(s.Area),
		ObservedAt: s.Timestamp.UTC(),
		TDS:        s.TDS,
		PH:         s.PH,
		Ca:         s.Ca,
		Mg:         s.Mg,
		Turbidity:  s.Turbidity,
		Chlorine:   s.Chlorine,
		Partial:    s.Partial,
		Origin:     origin,
		CreatedAt:  now,
	}
}

func fromModel(m model.Sample) water.Sample {
	return water.Sample{
		Area:      m.Area,
		Timestamp: m.ObservedAt,
		TDS:       m.TDS,
		PH:        m.PH,
		Ca:        m.Ca,
		Mg:        m.Mg,
		Turbidity: m.Turbidity,
		Chlorine:  m.Chlorine,
		Partial:   m.Partial,
	}
}
