package acquisition

import (
	"time"

	"github.com/loykin/acqsim/internal/yield"
)

// RunState is the lifecycle state reported for a run. The simulator only
// ever reports RunStateStartup; the other values exist for clients that
// switch on them.
type RunState int

const (
	RunStateStartup RunState = iota
	RunStateAcquiring
	RunStateFinishing
	RunStateStopped
)

func (s RunState) String() string {
	switch s {
	case RunStateStartup:
		return "startup"
	case RunStateAcquiring:
		return "acquiring"
	case RunStateFinishing:
		return "finishing"
	case RunStateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Status is the instrument-level status reported by CurrentStatus.
type Status int

const (
	StatusError Status = iota
	StatusReady
	StatusStarting
	StatusProcessing
	StatusFinishing
)

func (s Status) String() string {
	switch s {
	case StatusError:
		return "error"
	case StatusReady:
		return "ready"
	case StatusStarting:
		return "starting"
	case StatusProcessing:
		return "processing"
	case StatusFinishing:
		return "finishing"
	default:
		return "unknown"
	}
}

// Selector picks the run an operation applies to. An empty RunID selects
// the service's default run.
type Selector struct {
	RunID string `json:"run_id,omitempty"`
}

// RunInfo describes one acquisition run. A fresh value is built for every
// response; YieldSummary is nil when no yield data is attached.
type RunInfo struct {
	RunID                       string         `json:"run_id"`
	State                       RunState       `json:"state"`
	StartupState                int            `json:"startup_state"`
	StartupStatePercentComplete float32        `json:"startup_state_estimated_percent_complete"`
	FinishingState              int            `json:"finishing_state"`
	StopReason                  int            `json:"stop_reason"`
	StartTime                   *time.Time     `json:"start_time,omitempty"`
	DataReadStartTime           *time.Time     `json:"data_read_start_time,omitempty"`
	DataReadEndTime             *time.Time     `json:"data_read_end_time,omitempty"`
	EndTime                     *time.Time     `json:"end_time,omitempty"`
	YieldSummary                *yield.Summary `json:"yield_summary,omitempty"`
}

type StatusResponse struct {
	Status Status `json:"status"`
}

// RawPerChannel carries sample counts for the raw data path.
type RawPerChannel struct {
	Acquired  uint64 `json:"acquired"`
	Processed uint64 `json:"processed"`
}

type ProgressResponse struct {
	RawPerChannel RawPerChannel `json:"raw_per_channel"`
}
