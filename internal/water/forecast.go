package water

import (
	"fmt"
	"hash/fnv"
	"math"
	"math/rand/v2"
	"sort"
	"time"

	"github.com/jonboulle/clockwork"
	"gonum.org/v1/gonum/stat"

	"water-quality-backend/internal/parse"
)

const (
	// ForecastDays is the number of daily points in every forecast.
	ForecastDays = 7
	// MinHistoryPoints is the smallest series a trend is fitted to.
	MinHistoryPoints = 2

	SourceReal = "real"
	SourceMock = "mock"

	stableChange = 0.02
	walkStep     = 0.05
)

// Trend is the direction of the projected TDS change.
type Trend string

const (
	TrendStable    Trend = "stable"
	TrendImproving Trend = "improving"
	TrendWorsening Trend = "worsening"
)

// ForecastPoint is the predicted TDS for one future day.
type ForecastPoint struct {
	Date         time.Time `json:"date"`
	PredictedTDS float64   `json:"predicted_tds"`
}

// Forecast is a 7-day TDS projection for an area.
type Forecast struct {
	Area         string          `json:"area"`
	Predictions  []ForecastPoint `json:"predictions"`
	Trend        Trend           `json:"trend"`
	TrendMessage string          `json:"trend_message"`
	Source       string          `json:"source"`
	ModelUsed    string          `json:"model_used"`
	SlopePerDay  float64         `json:"slope_mg_l_per_day"`
}

// Forecaster projects TDS trends. It holds no mutable state and is safe for concurrent use.
type Forecaster struct {
	registry *Registry
	clock    clockwork.Clock
}

// NewForecaster creates a forecaster backed by the area registry. A nil clock uses real time.
func NewForecaster(registry *Registry, clock clockwork.Clock) *Forecaster {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Forecaster{registry: registry, clock: clock}
}

// Forecast fits a linear trend to the history when it has at least
// MinHistoryPoints usable samples, otherwise synthesizes a series from the
// area's profile.
func (f *Forecaster) Forecast(area string, history []Sample) (Forecast, error) {
	name := parse.AreaName(area)
	profile, profileErr := f.registry.Lookup(area)
	if profileErr == nil {
		name = profile.Name
	}

	usable := usableHistory(history)
	if len(usable) >= MinHistoryPoints {
		return f.fromHistory(name, usable), nil
	}
	if profileErr != nil {
		return Forecast{}, profileErr
	}
	return f.fromProfile(profile), nil
}

func usableHistory(history []Sample) []Sample {
	usable := make([]Sample, 0, len(history))
	for _, s := range history {
		if s.Timestamp.IsZero() || math.IsNaN(s.TDS) || math.IsInf(s.TDS, 0) || s.TDS < 0 {
			continue
		}
		usable = append(usable, s)
	}
	sort.SliceStable(usable, func(i, j int) bool { return usable[i].Timestamp.Before(usable[j].Timestamp) })
	return usable
}

func (f *Forecaster) fromHistory(area string, usable []Sample) Forecast {
	n := len(usable)
	first := usable[0].Timestamp
	xs := make([]float64, n)
	ys := make([]float64, n)
	for i, s := range usable {
		xs[i] = s.Timestamp.Sub(first).Hours() / 24
		ys[i] = s.TDS
	}
	// Every sample shares one timestamp; fall back to the ordinal index.
	if xs[n-1] == 0 {
		for i := range xs {
			xs[i] = float64(i)
		}
	}

	intercept, slope := stat.LinearRegression(xs, ys, nil, false)
	lastX := xs[n-1]
	lastDate := usable[n-1].Timestamp

	predictions := make([]ForecastPoint, ForecastDays)
	for i := 1; i <= ForecastDays; i++ {
		predictions[i-1] = ForecastPoint{
			Date:         lastDate.AddDate(0, 0, i),
			PredictedTDS: math.Max(0, round2(intercept+slope*(lastX+float64(i)))),
		}
	}

	trend, change := classifyTrend(slope, intercept+slope*lastX)
	return Forecast{
		Area:         area,
		Predictions:  predictions,
		Trend:        trend,
		TrendMessage: trendMessage(area, trend, change),
		Source:       SourceReal,
		ModelUsed:    "LinearRegression",
		SlopePerDay:  slope,
	}
}

func (f *Forecaster) fromProfile(p AreaProfile) Forecast {
	now := f.clock.Now()
	rng := rand.New(rand.NewPCG(uint64(now.UnixNano()), areaSeed(p.Name)))

	span := p.TDSMax - p.TDSMin
	step := span * walkStep
	current := p.TDSMin + span*(0.25+0.5*rng.Float64())
	drift := (rng.Float64()*2 - 1) * step / 2

	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	xs := make([]float64, ForecastDays)
	ys := make([]float64, ForecastDays)
	predictions := make([]ForecastPoint, ForecastDays)
	for i := 0; i < ForecastDays; i++ {
		current = clamp(current+drift+(rng.Float64()*2-1)*step, p.TDSMin, p.TDSMax)
		v := clamp(round2(current), p.TDSMin, p.TDSMax)
		xs[i] = float64(i + 1)
		ys[i] = v
		predictions[i] = ForecastPoint{Date: start.AddDate(0, 0, i+1), PredictedTDS: v}
	}

	intercept, slope := stat.LinearRegression(xs, ys, nil, false)
	trend, change := classifyTrend(slope, intercept+slope)
	return Forecast{
		Area:         p.Name,
		Predictions:  predictions,
		Trend:        trend,
		TrendMessage: trendMessage(p.Name, trend, change),
		Source:       SourceMock,
		ModelUsed:    "RandomWalk",
		SlopePerDay:  slope,
	}
}

// classifyTrend returns the trend and the projected change in mg/L over the horizon.
func classifyTrend(slope, baseline float64) (Trend, float64) {
	change := slope * ForecastDays
	if math.IsNaN(change) || change == 0 {
		return TrendStable, 0
	}
	if baseline > 0 && math.Abs(change)/baseline <= stableChange {
		return TrendStable, change
	}
	if change < 0 {
		return TrendImproving, change
	}
	return TrendWorsening, change
}

func trendMessage(area string, trend Trend, change float64) string {
	switch trend {
	case TrendImproving:
		return fmt.Sprintf("TDS levels in %s are improving, dropping by %+.1f mg/L over the next %d days.", area, change, ForecastDays)
	case TrendWorsening:
		return fmt.Sprintf("TDS levels in %s are worsening, rising by %+.1f mg/L over the next %d days; monitor closely.", area, change, ForecastDays)
	default:
		return fmt.Sprintf("TDS levels in %s are predicted to remain stable over the next %d days (change: %+.1f mg/L).", area, ForecastDays, change)
	}
}

func areaSeed(name string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(name))
	return h.Sum64()
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
