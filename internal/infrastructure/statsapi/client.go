package statsapi

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"charity-admin/internal/domain/aggregate"

	json "github.com/goccy/go-json"
)

// maxBodyBytes caps how much of an upstream response is read.
const maxBodyBytes = 8 << 20

// StatsAPIConfig holds the configuration for the upstream statistics API
type StatsAPIConfig struct {
	BaseURL     string
	Token       string
	Timeout     time.Duration
	OverallPath string
	TeamPath    string
	DailyPath   string
}

// StatusError is returned when the upstream answers with a non-2xx status.
type StatusError struct {
	Endpoint   aggregate.StatsEndpoint
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s statistics request failed with status %d: %s", e.Endpoint, e.StatusCode, e.Body)
}

// Client is the HTTP client for the statistics endpoints
type Client struct {
	config     *StatsAPIConfig
	httpClient *http.Client
}

// NewClient creates a new statistics API client
func NewClient(config *StatsAPIConfig) *Client {
	if config.Timeout <= 0 {
		config.Timeout = 15 * time.Second
	}
	if config.OverallPath == "" {
		config.OverallPath = "/statistics/overall"
	}
	if config.TeamPath == "" {
		config.TeamPath = "/statistics/teams"
	}
	if config.DailyPath == "" {
		config.DailyPath = "/statistics/daily"
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")

	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

// Fetch calls one statistics endpoint for the range and decodes the body
// into generic JSON values.
func (c *Client) Fetch(ctx context.Context, endpoint aggregate.StatsEndpoint, rng aggregate.DateRange) (any, error) {
	body, err := c.FetchRaw(ctx, endpoint, rng)
	if err != nil {
		return nil, err
	}
	return Decode(body)
}

// FetchRaw returns the undecoded response body.
func (c *Client) FetchRaw(ctx context.Context, endpoint aggregate.StatsEndpoint, rng aggregate.DateRange) ([]byte, error) {
	reqURL, err := c.endpointURL(endpoint, rng)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if c.config.Token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.config.Token)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send %s request: %w", endpoint, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s response: %w", endpoint, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{
			Endpoint:   endpoint,
			StatusCode: resp.StatusCode,
			Body:       truncate(strings.TrimSpace(string(respBody)), 256),
		}
	}

	return respBody, nil
}

// Decode parses a JSON document into map[string]any / []any / scalars.
// An empty body decodes to nil.
func Decode(body []byte) (any, error) {
	if len(strings.TrimSpace(string(body))) == 0 {
		return nil, nil
	}
	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return v, nil
}

func (c *Client) endpointURL(endpoint aggregate.StatsEndpoint, rng aggregate.DateRange) (string, error) {
	var path string
	switch endpoint {
	case aggregate.EndpointOverall:
		path = c.config.OverallPath
	case aggregate.EndpointTeam:
		path = c.config.TeamPath
	case aggregate.EndpointDaily:
		path = c.config.DailyPath
	default:
		return "", fmt.Errorf("unknown statistics endpoint %q", endpoint)
	}

	u, err := url.Parse(c.config.BaseURL + path)
	if err != nil {
		return "", fmt.Errorf("invalid statistics URL: %w", err)
	}
	q := u.Query()
	q.Set("from", rng.FromString())
	q.Set("to", rng.ToString())
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// truncate keeps at most n bytes of s without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := 0
	for i := range s {
		if i > n {
			break
		}
		cut = i
	}
	return s[:cut] + "..."
}
