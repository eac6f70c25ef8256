package autotick

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/loykin/acqsim/internal/yield"
)

// Ticker advances a run by one tick. acquisition.Service satisfies it.
type Ticker interface {
	Tick(ctx context.Context, runID string) (yield.Summary, error)
}

// Config describes which runs are advanced and how often.
type Config struct {
	Schedule string   `mapstructure:"schedule"`
	Runs     []string `mapstructure:"runs"`
}

var parser = cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Validate checks the schedule expression and run list.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Schedule) == "" {
		return errors.New("autotick schedule is required")
	}
	if _, err := parser.Parse(c.Schedule); err != nil {
		return fmt.Errorf("invalid autotick schedule %q: %w", c.Schedule, err)
	}
	if len(c.Runs) == 0 {
		return errors.New("autotick requires at least one run")
	}
	for _, r := range c.Runs {
		if strings.TrimSpace(r) == "" {
			return errors.New("autotick run id must not be empty")
		}
	}
	return nil
}

// Scheduler periodically ticks the configured runs. A firing that is still
// in progress when the next one is due causes the next one to be skipped.
type Scheduler struct {
	mu      sync.Mutex
	cfg     Config
	ticker  Ticker
	log     *slog.Logger
	cron    *cron.Cron
	entryID cron.EntryID
	ctx     context.Context
	cancel  context.CancelFunc
	running bool

	fired atomic.Uint64
}

func New(t Ticker, cfg Config, log *slog.Logger) (*Scheduler, error) {
	if t == nil {
		return nil, errors.New("autotick requires a ticker")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = slog.Default()
	}
	cfg.Runs = append([]string(nil), cfg.Runs...)
	return &Scheduler{cfg: cfg, ticker: t, log: log}, nil
}

// Start schedules the job and starts the cron loop.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return errors.New("autotick already started")
	}

	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.cron = cron.New(
		cron.WithParser(parser),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)
	id, err := s.cron.AddFunc(s.cfg.Schedule, func() { s.fire(s.ctx) })
	if err != nil {
		s.cancel()
		return fmt.Errorf("schedule autotick: %w", err)
	}
	s.entryID = id
	s.running = true
	s.cron.Start()

	s.log.Info("autotick scheduled", "schedule", s.cfg.Schedule, "runs", s.cfg.Runs)
	return nil
}

// Stop halts scheduling and waits for an in-flight firing to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	c, cancel := s.cron, s.cancel
	s.mu.Unlock()

	cancel()
	<-c.Stop().Done()
	s.log.Info("autotick stopped", "fired", s.fired.Load())
}

// Fired returns how many times the schedule has fired.
func (s *Scheduler) Fired() uint64 { return s.fired.Load() }

// Next returns the next scheduled firing, or the zero time when stopped.
func (s *Scheduler) Next() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return time.Time{}
	}
	return s.cron.Entry(s.entryID).Next
}

func (s *Scheduler) fire(ctx context.Context) {
	s.fired.Add(1)
	for _, run := range s.cfg.Runs {
		if ctx.Err() != nil {
			return
		}
		sum, err := s.ticker.Tick(ctx, run)
		if err != nil {
			s.log.Error("autotick failed", "run", run, "error", err)
			continue
		}
		s.log.Debug("autotick", "run", run, "read_count", sum.ReadCount)
	}
}
