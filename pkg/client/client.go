package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/sse"
)

// Server-sent event names and headers understood by the client.
const (
	eventRunInfo      = "acquisition_run_info"
	eventEnd          = "end"
	headerWatchID     = "X-Acqsim-Watch-Id"
	headerAdvancesRun = "X-Acqsim-Advances-Run"
)

// Client provides HTTP client functionality to communicate with an acqsim server
type Client struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// Config holds client configuration
type Config struct {
	BaseURL string
	Timeout time.Duration
	Logger  *slog.Logger // Optional logger for client operations
}

// DefaultConfig returns default client configuration
func DefaultConfig() Config {
	return Config{
		BaseURL: "http://localhost:8080/api",
		Timeout: 10 * time.Second,
	}
}

// New creates a new acqsim API client
func New(config Config) *Client {
	if config.BaseURL == "" {
		config.BaseURL = DefaultConfig().BaseURL
	}
	if config.Timeout == 0 {
		config.Timeout = 10 * time.Second
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &Client{
		baseURL: strings.TrimRight(config.BaseURL, "/"),
		logger:  config.Logger,
		client:  &http.Client{Timeout: config.Timeout},
	}
}

// IsReachable checks if the server is running and reachable
func (c *Client) IsReachable(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/runs", nil)
	if err != nil {
		c.logger.Debug("Failed to create request for reachability check", "error", err)
		return false
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Debug("Server unreachable", "error", err)
		return false
	}
	defer func() { _ = resp.Body.Close() }()

	reachable := resp.StatusCode == http.StatusOK
	c.logger.Debug("Server reachability check", "reachable", reachable, "status", resp.StatusCode)
	return reachable
}

// GetCurrentRun advances runID by one tick on the server and returns the
// new state. Every call moves the run forward; use PeekCurrentRun to read.
func (c *Client) GetCurrentRun(ctx context.Context, runID string) (RunInfo, error) {
	var info RunInfo
	resp, err := c.call(ctx, "get_current_acquisition_run", Selector{RunID: runID}, &info)
	if err != nil {
		return info, err
	}
	if resp.Header.Get(headerAdvancesRun) != "true" {
		c.logger.Warn("Server did not confirm run advance", "run", runID)
	}
	return info, nil
}

// PeekCurrentRun returns the latest state of runID without advancing it.
func (c *Client) PeekCurrentRun(ctx context.Context, runID string) (RunInfo, error) {
	var info RunInfo
	_, err := c.call(ctx, "peek_current_acquisition_run", Selector{RunID: runID}, &info)
	return info, err
}

// CurrentStatus returns the simulated instrument status.
func (c *Client) CurrentStatus(ctx context.Context) (StatusResponse, error) {
	var st StatusResponse
	_, err := c.call(ctx, "current_status", Selector{}, &st)
	return st, err
}

// GetProgress returns the simulated raw sample counters.
func (c *Client) GetProgress(ctx context.Context) (ProgressResponse, error) {
	var p ProgressResponse
	_, err := c.call(ctx, "get_progress", Selector{}, &p)
	return p, err
}

// Runs lists the runs the server has ticked so far.
func (c *Client) Runs(ctx context.Context) (RunsResponse, error) {
	var out RunsResponse
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/runs", nil)
	if err != nil {
		return out, fmt.Errorf("create request: %w", err)
	}
	resp, err := c.do(req)
	if err != nil {
		return out, err
	}
	defer func() { _ = resp.Body.Close() }()
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return out, fmt.Errorf("decode runs: %w", err)
	}
	return out, nil
}

// WatchCurrentRun opens the watch stream and reads it to completion.
// Cancelling ctx closes the stream early.
func (c *Client) WatchCurrentRun(ctx context.Context, runID string) (WatchResult, error) {
	var res WatchResult
	body, err := json.Marshal(Selector{RunID: runID})
	if err != nil {
		return res, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.methodURL("watch_current_acquisition_run"), bytes.NewReader(body))
	if err != nil {
		return res, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.do(req)
	if err != nil {
		return res, err
	}
	defer func() { _ = resp.Body.Close() }()
	res.WatchID = resp.Header.Get(headerWatchID)

	events, err := sse.Decode(resp.Body)
	if err != nil {
		return res, fmt.Errorf("decode stream: %w", err)
	}
	for _, ev := range events {
		switch ev.Event {
		case eventRunInfo:
			var info RunInfo
			if err := json.Unmarshal([]byte(eventData(ev)), &info); err != nil {
				return res, fmt.Errorf("decode run info: %w", err)
			}
			res.Items = append(res.Items, info)
		case eventEnd:
			res.Ended = true
		default:
			c.logger.Debug("Ignoring unknown stream event", "event", ev.Event)
		}
	}
	if !res.Ended {
		return res, errors.New("watch stream closed without end event")
	}
	return res, nil
}

func eventData(ev sse.Event) string {
	switch d := ev.Data.(type) {
	case string:
		return d
	case []byte:
		return string(d)
	default:
		return fmt.Sprint(d)
	}
}

func (c *Client) methodURL(method string) string {
	return c.baseURL + "/acquisition/" + method
}

// call posts sel to an acquisition method and decodes the JSON reply into out.
func (c *Client) call(ctx context.Context, method string, sel Selector, out any) (*http.Response, error) {
	data, err := json.Marshal(sel)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.methodURL(method), bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp, fmt.Errorf("decode %s: %w", method, err)
	}
	return resp, nil
}

// do performs the request and converts non-200 responses into errors.
// The caller closes the body of a successful response.
func (c *Client) do(req *http.Request) (*http.Response, error) {
	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Error("HTTP request failed", "error", err, "url", req.URL.String())
		return nil, fmt.Errorf("do request: %w", err)
	}
	if err := c.handleErrorResponse(resp); err != nil {
		_ = resp.Body.Close()
		return nil, err
	}
	return resp, nil
}

// handleErrorResponse handles HTTP error responses
func (c *Client) handleErrorResponse(resp *http.Response) error {
	if resp.StatusCode == http.StatusOK {
		return nil
	}

	var errorResp ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&errorResp); err != nil {
		c.logger.Error("Failed to decode error response", "status", resp.StatusCode)
		return fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	c.logger.Error("API request failed", "error", errorResp.Error, "status", resp.StatusCode)
	return fmt.Errorf("API error: %s", errorResp.Error)
}
