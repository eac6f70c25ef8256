package acquisition

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/loykin/acqsim/internal/history"
	"github.com/loykin/acqsim/internal/metrics"
	"github.com/loykin/acqsim/internal/runstate"
	"github.com/loykin/acqsim/internal/yield"
)

// RPC method names, used for routing and metric labels.
const (
	MethodWatchCurrentRun = "watch_current_acquisition_run"
	MethodGetCurrentRun   = "get_current_acquisition_run"
	MethodPeekCurrentRun  = "peek_current_acquisition_run"
	MethodCurrentStatus   = "current_status"
	MethodGetProgress     = "get_progress"
)

const (
	DefaultRunID            = "default"
	DefaultPlaceholderRunID = "Wowee"
	DefaultStreamBuffer     = 4

	simulatedStatus    = StatusProcessing
	simulatedAcquired  = 100
	simulatedProcessed = 900
)

// Options configures a Service. Zero values fall back to the defaults above.
type Options struct {
	// DefaultRunID is used when a Selector carries no run id.
	DefaultRunID string
	// PlaceholderRunID is reported by the placeholder item of WatchCurrentRun.
	PlaceholderRunID string
	// StreamBuffer is the capacity of each watch channel. Zero selects
	// DefaultStreamBuffer; a negative value makes the channel unbuffered.
	StreamBuffer int
	Logger       *slog.Logger
	// Sinks receive every tick produced by GetCurrentRun.
	Sinks []history.Sink
}

// Service implements the acquisition RPC surface on top of a runstate.Store.
type Service struct {
	store            *runstate.Store
	defaultRunID     string
	placeholderRunID string
	streamBuffer     int
	log              *slog.Logger
	sinks            []history.Sink
}

func NewService(store *runstate.Store, opts Options) *Service {
	s := &Service{
		store:            store,
		defaultRunID:     opts.DefaultRunID,
		placeholderRunID: opts.PlaceholderRunID,
		streamBuffer:     DefaultStreamBuffer,
		log:              opts.Logger,
		sinks:            append([]history.Sink(nil), opts.Sinks...),
	}
	if s.defaultRunID == "" {
		s.defaultRunID = DefaultRunID
	}
	if s.placeholderRunID == "" {
		s.placeholderRunID = DefaultPlaceholderRunID
	}
	switch {
	case opts.StreamBuffer > 0:
		s.streamBuffer = opts.StreamBuffer
	case opts.StreamBuffer < 0:
		s.streamBuffer = 0
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	return s
}

// Store exposes the underlying run store.
func (s *Service) Store() *runstate.Store { return s.store }

// DefaultRunID returns the run used for selectors without a run id.
func (s *Service) DefaultRunID() string { return s.defaultRunID }

func (s *Service) resolve(sel Selector) string {
	if sel.RunID == "" {
		return s.defaultRunID
	}
	return sel.RunID
}

// GetCurrentRun advances the selected run by one tick and returns the result.
//
// Despite the name this is not a read: every call moves the simulated run
// forward. Use PeekCurrentRun to observe without advancing.
func (s *Service) GetCurrentRun(ctx context.Context, sel Selector) (RunInfo, error) {
	defer observe(MethodGetCurrentRun, time.Now())
	runID := s.resolve(sel)
	snap, err := s.store.TickAndSnapshot(runID)
	if err != nil {
		return RunInfo{}, fmt.Errorf("tick run %s: %w", runID, err)
	}
	s.record(ctx, runID, snap)
	return newRunInfo(runID, &snap), nil
}

// PeekCurrentRun returns the latest state of the selected run without
// advancing it. A run that was never ticked yields a RunInfo without a
// yield summary.
func (s *Service) PeekCurrentRun(_ context.Context, sel Selector) (RunInfo, error) {
	defer observe(MethodPeekCurrentRun, time.Now())
	runID := s.resolve(sel)
	snap, ok := s.store.Peek(runID)
	if !ok {
		return newRunInfo(runID, nil), nil
	}
	return newRunInfo(runID, &snap), nil
}

// CurrentStatus reports the fixed simulated instrument status.
func (s *Service) CurrentStatus(_ context.Context, _ Selector) StatusResponse {
	defer observe(MethodCurrentStatus, time.Now())
	return StatusResponse{Status: simulatedStatus}
}

// GetProgress reports the fixed simulated raw sample counts.
func (s *Service) GetProgress(_ context.Context, _ Selector) ProgressResponse {
	defer observe(MethodGetProgress, time.Now())
	return ProgressResponse{RawPerChannel: RawPerChannel{
		Acquired:  simulatedAcquired,
		Processed: simulatedProcessed,
	}}
}

// Tick advances runID through the same path as GetCurrentRun and is used by
// background drivers.
func (s *Service) Tick(ctx context.Context, runID string) (yield.Summary, error) {
	info, err := s.GetCurrentRun(ctx, Selector{RunID: runID})
	if err != nil {
		return yield.Summary{}, err
	}
	return *info.YieldSummary, nil
}

// Apply advances the selected run with an explicit draw. The tick is
// exported to the history sinks like any other.
func (s *Service) Apply(ctx context.Context, sel Selector, r int) (yield.Summary, error) {
	runID := s.resolve(sel)
	snap, err := s.store.Apply(runID, r)
	if err != nil {
		return yield.Summary{}, fmt.Errorf("apply run %s: %w", runID, err)
	}
	s.record(ctx, runID, snap)
	return snap, nil
}

// record exports one applied tick. The tick has already happened, so the
// write is not cancelled with the caller's context.
func (s *Service) record(ctx context.Context, runID string, snap yield.Summary) {
	if len(s.sinks) == 0 {
		return
	}
	ctx = context.WithoutCancel(ctx)
	evt := history.Event{Type: history.EventTick, OccurredAt: time.Now().UTC(), RunID: runID, Summary: snap}
	for _, sink := range s.sinks {
		if err := sink.Send(ctx, evt); err != nil {
			name := history.SinkName(sink)
			metrics.IncHistoryError(name)
			s.log.Warn("history sink write failed", "sink", name, "run", runID, "error", err)
		}
	}
}

func newRunInfo(runID string, snap *yield.Summary) RunInfo {
	return RunInfo{
		RunID:        runID,
		State:        RunStateStartup,
		YieldSummary: snap,
	}
}

func observe(method string, start time.Time) {
	metrics.IncRequest(method)
	metrics.ObserveDuration(method, time.Since(start).Seconds())
}
