package acqsim

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/loykin/acqsim/internal/acquisition"
	"github.com/loykin/acqsim/internal/autotick"
	cfg "github.com/loykin/acqsim/internal/config"
	"github.com/loykin/acqsim/internal/history"
	"github.com/loykin/acqsim/internal/history/factory"
	"github.com/loykin/acqsim/internal/metrics"
	"github.com/loykin/acqsim/internal/runstate"
	iapi "github.com/loykin/acqsim/internal/server"
	"github.com/loykin/acqsim/internal/yield"
)

// Re-export core types for external consumers.
// These are aliases so conversions are zero-cost.

type Summary = yield.Summary

type RunInfo = acquisition.RunInfo

type Selector = acquisition.Selector

type StatusResponse = acquisition.StatusResponse

type ProgressResponse = acquisition.ProgressResponse

type Watch = acquisition.Watch

type RunStat = runstate.RunStat

type Drawer = runstate.Drawer

type HistorySink = history.Sink

type HistoryEvent = history.Event

type Config = cfg.Config

type AutoTickConfig = autotick.Config

var (
	ErrSubscriberGone = acquisition.ErrSubscriberGone
	ErrDrawOutOfRange = yield.ErrDrawOutOfRange
	ErrInvalidRunID   = acquisition.ErrInvalidRunID
)

func NewRandomDrawer() Drawer                        { return runstate.NewRandomDrawer() }
func NewSeededDrawer(seed uint64) Drawer             { return runstate.NewSeededDrawer(seed) }
func NewSequenceDrawer(draws ...int) Drawer          { return runstate.NewSequenceDrawer(draws...) }
func DrawFunc(f func() int) Drawer                   { return runstate.DrawFunc(f) }
func LoadConfig(path string) (*Config, error)        { return cfg.Load(path) }
func ValidateRunID(id string) error                  { return acquisition.ValidateRunID(id) }
func NewHistorySink(dsn string) (HistorySink, error) { return factory.NewSinkFromDSN(dsn) }

// Options configures a Simulator. Zero values select the defaults.
type Options struct {
	DefaultRunID     string
	PlaceholderRunID string
	// StreamBuffer is the watch channel capacity; negative means unbuffered.
	StreamBuffer int
	// Drawer supplies tick draws; nil uses math/rand/v2.
	Drawer Drawer
	Logger *slog.Logger
	Sinks  []HistorySink
}

// Simulator is the embeddable acquisition telemetry simulator.
type Simulator struct {
	svc *acquisition.Service
}

// New builds a Simulator. Every tick is reported to the package metrics,
// which record nothing until RegisterMetrics is called.
func New(opts Options) *Simulator {
	storeOpts := []runstate.Option{
		runstate.WithObserver(func(runID string, s yield.Summary) {
			metrics.ObserveTick(runID, s.ReadCount, s.AlignmentCoverage)
		}),
	}
	if opts.Drawer != nil {
		storeOpts = append(storeOpts, runstate.WithDrawer(opts.Drawer))
	}
	svc := acquisition.NewService(runstate.NewStore(storeOpts...), acquisition.Options{
		DefaultRunID:     opts.DefaultRunID,
		PlaceholderRunID: opts.PlaceholderRunID,
		StreamBuffer:     opts.StreamBuffer,
		Logger:           opts.Logger,
		Sinks:            opts.Sinks,
	})
	return &Simulator{svc: svc}
}

// GetCurrentRun advances runID by one tick. An empty runID selects the default run.
func (s *Simulator) GetCurrentRun(ctx context.Context, runID string) (RunInfo, error) {
	return s.svc.GetCurrentRun(ctx, Selector{RunID: runID})
}

func (s *Simulator) PeekCurrentRun(ctx context.Context, runID string) (RunInfo, error) {
	return s.svc.PeekCurrentRun(ctx, Selector{RunID: runID})
}

func (s *Simulator) WatchCurrentRun(ctx context.Context, runID string) *Watch {
	return s.svc.WatchCurrentRun(ctx, Selector{RunID: runID})
}

func (s *Simulator) CurrentStatus(ctx context.Context) StatusResponse {
	return s.svc.CurrentStatus(ctx, Selector{})
}

func (s *Simulator) GetProgress(ctx context.Context) ProgressResponse {
	return s.svc.GetProgress(ctx, Selector{})
}

// Apply ticks runID with an explicit draw in [0,100). Like GetCurrentRun,
// the tick is exported to the configured history sinks.
func (s *Simulator) Apply(runID string, r int) (Summary, error) {
	return s.svc.Apply(context.Background(), Selector{RunID: runID}, r)
}

func (s *Simulator) Runs() []RunStat { return s.svc.Store().Runs() }

// Handler returns the HTTP API mounted under basePath.
func (s *Simulator) Handler(basePath string) http.Handler {
	return iapi.NewRouter(s.svc, basePath).Handler()
}

// NewAutoTicker schedules periodic ticks of the configured runs on s.
// Call Start on the result to begin.
func (s *Simulator) NewAutoTicker(c AutoTickConfig, log *slog.Logger) (*autotick.Scheduler, error) {
	return autotick.New(s.svc, c, log)
}

// MountEcho serves the API of s under basePath on an existing echo instance.
func MountEcho(e *echo.Echo, basePath string, s *Simulator) {
	iapi.MountEcho(e, basePath, s.Handler(basePath))
}

// NewHTTPServer returns an http.Server exposing the API of s. The caller starts it.
func NewHTTPServer(addr, basePath string, s *Simulator) *http.Server {
	return iapi.NewHTTPServer(addr, s.Handler(basePath))
}

// Metrics helpers (public facade)

func RegisterMetrics(r prometheus.Registerer) error { return metrics.Register(r) }
func RegisterMetricsDefault() error                 { return metrics.Register(prometheus.DefaultRegisterer) }

// NewMetricsServer returns an http.Server exposing /metrics from the default registry.
func NewMetricsServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

// ServeMetrics serves /metrics on addr in the caller goroutine.
func ServeMetrics(addr string) error {
	return NewMetricsServer(addr).ListenAndServe()
}
