package upstream

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToSample_AliasPriority(t *testing.T) {
	records, err := decodeRecords([]byte(`[{
		"area_id": "MG_Road",
		"timestamp": "2025-03-01 08:30:00",
		"time": "1999-01-01 00:00:00",
		"TDS": 610,
		"tds": 1,
		"ph": "7.4",
		"calcium": 55.5,
		"Mg": 20,
		"Turbidity": 1.2,
		"chlorine_mg_l": 0.3
	}]`))
	require.NoError(t, err)

	loc := time.FixedZone("IST", 5*3600+1800)
	samples, skipped := toSamples(records, "fallback", loc)
	require.Zero(t, skipped)
	require.Len(t, samples, 1)

	s := samples[0]
	assert.Equal(t, "MG Road", s.Area)
	assert.True(t, time.Date(2025, 3, 1, 3, 0, 0, 0, time.UTC).Equal(s.Timestamp))
	assert.Equal(t, 610.0, s.TDS)
	assert.Equal(t, 7.4, s.PH)
	assert.Equal(t, 55.5, s.Ca)
	assert.Equal(t, 20.0, s.Mg)
	assert.Equal(t, 1.2, s.Turbidity)
	assert.Equal(t, 0.3, s.Chlorine)
}

func TestToSamples_SkipsUnusable(t *testing.T) {
	records, err := decodeRecords([]byte(`{"data": [
		{"timestamp": "2025-03-01T10:00:00Z", "TDS": 400},
		{"TDS": 410},
		{"timestamp": "yesterday", "TDS": 420},
		{"timestamp": "2025-03-02T10:00:00Z"},
		{"timestamp": "2025-03-03T10:00:00Z", "TDS": "n/a"},
		{"timestamp": 1740996000, "TDS": 430}
	]}`))
	require.NoError(t, err)

	samples, skipped := toSamples(records, "Sarjapur", time.UTC)
	assert.Equal(t, 4, skipped)
	require.Len(t, samples, 2)
	assert.Equal(t, "Sarjapur", samples[0].Area)
	assert.Equal(t, 400.0, samples[0].TDS)
	assert.Equal(t, int64(1740996000), samples[1].Timestamp.Unix())
}

func TestToSamples_MarksPartial(t *testing.T) {
	records, err := decodeRecords([]byte(`[
		{"timestamp": 1740996000, "TDS": 430, "pH": 7.1, "Ca": 40, "Mg": 12, "turbidity": 1, "chlorine": 0.4},
		{"timestamp": 1740996060, "TDS": 440},
		{"timestamp": 1740996120, "TDS": 450, "pH": 7.1, "Ca": 40, "Mg": 12, "turbidity": 1},
		{"timestamp": 1740996180, "TDS": 460, "pH": 7.1, "Ca": "n/a", "Mg": 12, "turbidity": 1, "chlorine": 0.4}
	]`))
	require.NoError(t, err)

	samples, skipped := toSamples(records, "Whitefield", time.UTC)
	require.Zero(t, skipped)
	require.Len(t, samples, 4)

	testCases := []struct {
		name    string
		tds     float64
		partial bool
	}{
		{name: "Complete record", tds: 430},
		{name: "TDS only", tds: 440, partial: true},
		{name: "Missing chlorine", tds: 450, partial: true},
		{name: "Unparseable calcium", tds: 460, partial: true},
	}

	for i, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.tds, samples[i].TDS)
			assert.Equal(t, tc.partial, samples[i].Partial)
		})
	}
}

func TestDecodeRecords(t *testing.T) {
	testCases := []struct {
		name      string
		body      string
		count     int
		expectErr bool
	}{
		{name: "Empty body", body: "  ", count: 0},
		{name: "Envelope without data", body: `{"area": "X"}`, count: 0},
		{name: "Bare array", body: `[{"TDS": 1}, {"TDS": 2}]`, count: 2},
		{name: "Malformed", body: `{"data": [`, expectErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			records, err := decodeRecords([]byte(tc.body))
			if tc.expectErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Len(t, records, tc.count)
		})
	}
}
