package upstream

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"water-quality-backend/config"
	"water-quality-backend/internal/water"
)

func testUpstreamConfig(baseURL string) *config.UpstreamConfig {
	return &config.UpstreamConfig{
		Enabled:        true,
		Mode:           config.UpstreamMirror,
		BaseURL:        baseURL,
		Headers:        map[string]string{"X-Api-Key": "secret"},
		Location:       time.UTC,
		Interval:       time.Minute,
		Timeout:        2 * time.Second,
		HistoryLimit:   30,
		Retries:        3,
		RetryBaseDelay: time.Millisecond,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestClient_Areas(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/get_areas", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("X-Api-Key"))
		writeJSON(w, http.StatusOK, map[string]any{"areas": []string{"HSR_Layout", "MG Road", " "}})
	}))
	defer server.Close()

	c := NewClient(testUpstreamConfig(server.URL), nil)
	areas, err := c.Areas(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"HSR Layout", "MG Road"}, areas)
}

func TestClient_History(t *testing.T) {
	testCases := []struct {
		name     string
		status   int
		body     any
		expected []float64
	}{
		{
			name:   "Envelope",
			status: http.StatusOK,
			body: map[string]any{
				"area":         "HSR Layout",
				"record_count": 2,
				"data": []map[string]any{
					{"timestamp": "2025-03-02T10:00:00Z", "TDS": 420, "pH": 7.1, "Ca": 40, "Mg": 10},
					{"timestamp": "2025-03-01T10:00:00Z", "TDS": 400, "pH": 7.0, "Ca": 38, "Mg": 9},
				},
			},
			expected: []float64{400, 420},
		},
		{
			name:   "Bare array",
			status: http.StatusOK,
			body: []map[string]any{
				{"time": "2025-03-01 10:00:00", "tds": "410.5"},
			},
			expected: []float64{410.5},
		},
		{
			name:     "No history",
			status:   http.StatusNotFound,
			body:     map[string]any{"message": "No history found"},
			expected: []float64{},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var calls atomic.Int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				assert.Equal(t, "/get_history", r.URL.Path)
				assert.Equal(t, "HSR_Layout", r.URL.Query().Get("area"))
				assert.Equal(t, "30", r.URL.Query().Get("limit"))
				assert.Equal(t, "24", r.URL.Query().Get("hours"))
				writeJSON(w, tc.status, tc.body)
			}))
			defer server.Close()

			c := NewClient(testUpstreamConfig(server.URL), nil)
			samples, err := c.History(context.Background(), "HSR Layout", 24)
			require.NoError(t, err)

			tds := make([]float64, 0, len(samples))
			for _, s := range samples {
				tds = append(tds, s.TDS)
				assert.Equal(t, "HSR Layout", s.Area)
			}
			assert.Equal(t, tc.expected, tds)
			assert.Equal(t, int32(1), calls.Load())
		})
	}
}

func TestClient_HistoryRetries(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"data": []map[string]any{{"timestamp": "2025-03-01T10:00:00Z", "TDS": 500}},
		})
	}))
	defer server.Close()

	c := NewClient(testUpstreamConfig(server.URL), nil)
	samples, err := c.History(context.Background(), "Whitefield", 0)
	require.NoError(t, err)
	require.Len(t, samples, 1)
	assert.Equal(t, 500.0, samples[0].TDS)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_HistoryUnavailable(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	c := NewClient(testUpstreamConfig(server.URL), nil)
	_, err := c.History(context.Background(), "Whitefield", 0)

	var ue *water.UpstreamUnavailableError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, "get_history", ue.Op)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_Probe(t *testing.T) {
	t.Run("Available with history", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/get_areas":
				writeJSON(w, http.StatusOK, map[string]any{"areas": []string{"Jayanagar"}})
			case "/get_history":
				assert.Equal(t, "1", r.URL.Query().Get("limit"))
				writeJSON(w, http.StatusOK, []map[string]any{{"timestamp": "2025-03-01T10:00:00Z", "TDS": 300}})
			}
		}))
		defer server.Close()

		st := NewClient(testUpstreamConfig(server.URL), nil).Probe(context.Background(), "Jayanagar")
		assert.True(t, st.Available)
		assert.True(t, st.HistoryPresent)
		assert.Nil(t, st.Error)
	})

	t.Run("Available without history", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/get_areas" {
				writeJSON(w, http.StatusOK, map[string]any{"areas": []string{}})
				return
			}
			w.WriteHeader(http.StatusNotFound)
		}))
		defer server.Close()

		st := NewClient(testUpstreamConfig(server.URL), nil).Probe(context.Background(), "Jayanagar")
		assert.True(t, st.Available)
		assert.False(t, st.HistoryPresent)
	})

	t.Run("Unreachable", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		server.Close()

		st := NewClient(testUpstreamConfig(server.URL), nil).Probe(context.Background(), "Jayanagar")
		assert.False(t, st.Available)
		assert.False(t, st.HistoryPresent)
	})
}
