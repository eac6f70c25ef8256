package client

import (
	"time"

	"github.com/loykin/acqsim/internal/yield"
)

// YieldSummary is the per-run yield statistics block.
type YieldSummary = yield.Summary

// Selector picks the run a call applies to; empty selects the server default.
type Selector struct {
	RunID string `json:"run_id,omitempty"`
}

// RunInfo mirrors the server's acquisition run info.
type RunInfo struct {
	RunID                       string        `json:"run_id"`
	State                       int           `json:"state"`
	StartupState                int           `json:"startup_state"`
	StartupStatePercentComplete float32       `json:"startup_state_estimated_percent_complete"`
	FinishingState              int           `json:"finishing_state"`
	StopReason                  int           `json:"stop_reason"`
	StartTime                   *time.Time    `json:"start_time,omitempty"`
	DataReadStartTime           *time.Time    `json:"data_read_start_time,omitempty"`
	DataReadEndTime             *time.Time    `json:"data_read_end_time,omitempty"`
	EndTime                     *time.Time    `json:"end_time,omitempty"`
	YieldSummary                *YieldSummary `json:"yield_summary,omitempty"`
}

// StatusResponse carries the wire value of the instrument status (3 = processing).
type StatusResponse struct {
	Status int `json:"status"`
}

type RawPerChannel struct {
	Acquired  uint64 `json:"acquired"`
	Processed uint64 `json:"processed"`
}

type ProgressResponse struct {
	RawPerChannel RawPerChannel `json:"raw_per_channel"`
}

// RunStat is one entry of the runs listing.
type RunStat struct {
	RunID string `json:"run_id"`
	Ticks uint64 `json:"ticks"`
}

type RunsResponse struct {
	DefaultRunID string    `json:"default_run_id"`
	Runs         []RunStat `json:"runs"`
}

// WatchResult is the outcome of a completed watch stream.
type WatchResult struct {
	WatchID string
	Items   []RunInfo
	// Ended reports whether the server sent its terminating event.
	Ended bool
}

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error string `json:"error"`
}
