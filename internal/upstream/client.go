package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/jonboulle/clockwork"

	"water-quality-backend/config"
	"water-quality-backend/internal/log"
	"water-quality-backend/internal/parse"
	"water-quality-backend/internal/water"
)

const probeTimeout = 3 * time.Second

// errNoHistory marks a 404 from get_history, which upstream uses for "no records".
var errNoHistory = errors.New("no history")

// Client talks to the upstream sensor-data API.
type Client struct {
	cfg    *config.UpstreamConfig
	client *http.Client
	clock  clockwork.Clock
}

// NewClient creates an upstream API client. A nil clock uses wall time.
func NewClient(cfg *config.UpstreamConfig, clock clockwork.Clock) *Client {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	var transport http.RoundTripper = &http.Transport{}
	if cfg.HTTPProxy != "" {
		proxyURL, err := url.Parse(cfg.HTTPProxy)
		if err != nil {
			log.Warnf("invalid proxy URL %q: %v. Upstream client will not use a proxy.", cfg.HTTPProxy, err)
		} else {
			transport = &http.Transport{Proxy: http.ProxyURL(proxyURL)}
		}
	}

	return &Client{
		cfg:   cfg,
		clock: clock,
		client: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout,
		},
	}
}

type areasResponse struct {
	Areas []string `json:"areas"`
}

// Areas lists the areas upstream has data for, in display form.
func (c *Client) Areas(ctx context.Context) ([]string, error) {
	var body []byte
	err := c.withRetry(ctx, "get_areas", func() error {
		var err error
		body, err = c.get(ctx, "/get_areas", nil)
		return err
	})
	if err != nil {
		return nil, &water.UpstreamUnavailableError{Op: "get_areas", Err: err}
	}

	var resp areasResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &water.UpstreamUnavailableError{Op: "get_areas", Err: fmt.Errorf("failed to unmarshal areas: %w", err)}
	}

	names := make([]string, 0, len(resp.Areas))
	for _, a := range resp.Areas {
		if name := parse.AreaName(a); name != "" {
			names = append(names, name)
		}
	}
	return names, nil
}

// History fetches up to HistoryLimit recent samples for an area, oldest first.
// hours > 0 is forwarded as the upstream time window. An area upstream has no
// records for yields an empty slice.
func (c *Client) History(ctx context.Context, area string, hours int) ([]water.Sample, error) {
	q := url.Values{}
	q.Set("area", parse.AreaPathKey(area))
	q.Set("limit", strconv.Itoa(c.cfg.HistoryLimit))
	if hours > 0 {
		q.Set("hours", strconv.Itoa(hours))
	}
	return c.history(ctx, area, q, true)
}

func (c *Client) history(ctx context.Context, area string, q url.Values, retry bool) ([]water.Sample, error) {
	var body []byte
	fetch := func() error {
		var err error
		body, err = c.get(ctx, "/get_history", q)
		return err
	}

	var err error
	if retry {
		err = c.withRetry(ctx, "get_history", fetch)
	} else {
		err = fetch()
	}
	if err == errNoHistory {
		return []water.Sample{}, nil
	}
	if err != nil {
		return nil, &water.UpstreamUnavailableError{Op: "get_history", Err: err}
	}

	records, err := decodeRecords(body)
	if err != nil {
		return nil, &water.UpstreamUnavailableError{Op: "get_history", Err: err}
	}
	samples, skipped := toSamples(records, parse.AreaName(area), c.cfg.Location)
	if skipped > 0 {
		log.Warnw("skipped unusable upstream records", "area", area, "skipped", skipped)
	}
	sortByTime(samples)
	return samples, nil
}

// SourceStatus reports whether upstream answers and holds history for an area.
type SourceStatus struct {
	Available      bool    `json:"p1_available"`
	HistoryPresent bool    `json:"history_present"`
	Error          *string `json:"error"`
}

// Probe is a single-attempt, short-timeout reachability check.
func (c *Client) Probe(ctx context.Context, area string) SourceStatus {
	var st SourceStatus

	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	if _, err := c.get(ctx, "/get_areas", nil); err != nil {
		log.Infof("upstream get_areas check failed: %v", err)
		return st
	}
	st.Available = true

	if area == "" {
		return st
	}
	q := url.Values{}
	q.Set("area", parse.AreaPathKey(area))
	q.Set("limit", "1")
	samples, err := c.history(ctx, area, q, false)
	if err != nil {
		log.Infof("upstream get_history check failed for area %q: %v", area, err)
		return st
	}
	st.HistoryPresent = len(samples) > 0
	return st
}

// withRetry runs fn up to Retries times with exponential backoff starting at
// RetryBaseDelay. A missing-history answer is final and not retried.
func (c *Client) withRetry(ctx context.Context, op string, fn func() error) error {
	attempts := max(c.cfg.Retries, 1)
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = fn(); err == nil || err == errNoHistory {
			return err
		}
		log.Warnw("upstream request failed", "op", op, "attempt", attempt, "of", attempts, "error", err)

		if attempt == attempts {
			break
		}
		delay := c.cfg.RetryBaseDelay << (attempt - 1)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.clock.After(delay):
		}
	}
	return err
}

func (c *Client) get(ctx context.Context, path string, q url.Values) ([]byte, error) {
	u := c.cfg.BaseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for key, value := range c.cfg.Headers {
		req.Header.Set(key, value)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound && path == "/get_history" {
		return nil, errNoHistory
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("received non-200 status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return body, nil
}
