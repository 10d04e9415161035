package upstream

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"water-quality-backend/internal/parse"
	"water-quality-backend/internal/water"
)

// Field aliases seen in upstream records, in priority order. The first key
// present in a record wins; later aliases are never consulted.
var (
	areaAliases      = []string{"area", "area_id", "location"}
	timestampAliases = []string{"timestamp", "observed_at", "time", "date"}
	tdsAliases       = []string{"TDS", "tds", "tds_mg_l"}
	phAliases        = []string{"pH", "ph", "PH"}
	caAliases        = []string{"Ca", "ca", "calcium"}
	mgAliases        = []string{"Mg", "mg", "magnesium"}
	turbidityAliases = []string{"turbidity", "Turbidity", "turbidity_ntu"}
	chlorineAliases  = []string{"chlorine", "Chlorine", "chlorine_mg_l"}
)

// historyEnvelope is the documented get_history response.
type historyEnvelope struct {
	Area        string           `json:"area"`
	RecordCount int              `json:"record_count"`
	Data        []map[string]any `json:"data"`
}

// decodeRecords accepts either {"data": [...]} or a bare JSON array.
func decodeRecords(body []byte) ([]map[string]any, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, nil
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	if body[0] == '[' {
		var records []map[string]any
		if err := dec.Decode(&records); err != nil {
			return nil, fmt.Errorf("failed to unmarshal history array: %w", err)
		}
		return records, nil
	}

	var env historyEnvelope
	if err := dec.Decode(&env); err != nil {
		return nil, fmt.Errorf("failed to unmarshal history response: %w", err)
	}
	return env.Data, nil
}

// toSamples maps raw records onto samples. Records without a usable timestamp
// or TDS value are skipped and counted. Records missing any other reading are
// kept as partial samples.
func toSamples(records []map[string]any, area string, loc *time.Location) ([]water.Sample, int) {
	samples := make([]water.Sample, 0, len(records))
	skipped := 0

	for _, rec := range records {
		s, err := toSample(rec, area, loc)
		if err != nil {
			skipped++
			continue
		}
		samples = append(samples, s)
	}
	return samples, skipped
}

func toSample(rec map[string]any, area string, loc *time.Location) (water.Sample, error) {
	var s water.Sample

	s.Area = area
	if raw, ok := lookup(rec, areaAliases); ok {
		if name, ok := raw.(string); ok && name != "" {
			s.Area = parse.AreaName(name)
		}
	}

	rawTS, ok := lookup(rec, timestampAliases)
	if !ok {
		return s, fmt.Errorf("record has no timestamp")
	}
	ts, err := timestamp(rawTS, loc)
	if err != nil {
		return s, err
	}
	s.Timestamp = ts

	rawTDS, ok := lookup(rec, tdsAliases)
	if !ok {
		return s, fmt.Errorf("record has no TDS")
	}
	if s.TDS, err = parse.Float(rawTDS); err != nil {
		return s, fmt.Errorf("TDS: %w", err)
	}

	for _, f := range []struct {
		aliases []string
		dst     *float64
	}{
		{phAliases, &s.PH},
		{caAliases, &s.Ca},
		{mgAliases, &s.Mg},
		{turbidityAliases, &s.Turbidity},
		{chlorineAliases, &s.Chlorine},
	} {
		raw, ok := lookup(rec, f.aliases)
		if !ok {
			s.Partial = true
			continue
		}
		v, err := parse.Float(raw)
		if err != nil {
			s.Partial = true
			continue
		}
		*f.dst = v
	}
	return s, nil
}

func lookup(rec map[string]any, aliases []string) (any, bool) {
	for _, key := range aliases {
		if v, ok := rec[key]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

// timestamp accepts a formatted string or a Unix epoch in seconds.
func timestamp(raw any, loc *time.Location) (time.Time, error) {
	if s, ok := raw.(string); ok {
		return parse.Timestamp(s, loc)
	}
	secs, err := parse.Float(raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("timestamp: %w", err)
	}
	return time.Unix(int64(secs), 0).UTC(), nil
}

func sortByTime(samples []water.Sample) {
	slices.SortStableFunc(samples, func(a, b water.Sample) int {
		return a.Timestamp.Compare(b.Timestamp)
	})
}
