package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/sync/errgroup"

	"github.com/loykin/acqsim"
	"github.com/loykin/acqsim/internal/autotick"
	"github.com/loykin/acqsim/internal/config"
	"github.com/loykin/acqsim/internal/history"
	"github.com/loykin/acqsim/internal/history/factory"
)

const shutdownTimeout = 5 * time.Second

func runServeCommand(ctx context.Context, flags *ServeFlags) error {
	cfg, err := acqsim.LoadConfig(flags.ConfigPath)
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}
	applyServeFlags(cfg, flags)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}

	log, closer := cfg.Log.NewSlogger()
	if closer != nil {
		defer func() { _ = closer.Close() }()
	}
	slog.SetDefault(log)

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	d, err := newDaemon(cfg, log)
	if err != nil {
		return err
	}
	defer d.close()

	if err := d.listen(); err != nil {
		return err
	}
	return d.serve(ctx)
}

func applyServeFlags(cfg *config.Config, flags *ServeFlags) {
	if flags.Listen != "" {
		cfg.Server.Listen = flags.Listen
	}
	if flags.BasePath != "" {
		cfg.Server.BasePath = flags.BasePath
	}
	if flags.Framework != "" {
		cfg.Server.Framework = flags.Framework
	}
}

// daemon owns everything serve starts: the API server, the optional
// metrics server, the autotick scheduler and the history sinks.
type daemon struct {
	cfg   *config.Config
	log   *slog.Logger
	sim   *acqsim.Simulator
	sinks []history.Sink
	tick  *autotick.Scheduler

	api     *http.Server
	apiLn   net.Listener
	metrics *http.Server
	metLn   net.Listener
}

func newDaemon(cfg *config.Config, log *slog.Logger) (*daemon, error) {
	d := &daemon{cfg: cfg, log: log}

	if cfg.History.Enabled {
		sinks, err := factory.NewSinks(cfg.History.DSNs)
		if err != nil {
			return nil, fmt.Errorf("history sinks: %w", err)
		}
		d.sinks = sinks
		for _, s := range sinks {
			log.Info("history sink enabled", "sink", history.SinkName(s))
		}
	}

	opts := acqsim.Options{
		DefaultRunID:     cfg.Simulator.DefaultRunID,
		PlaceholderRunID: cfg.Simulator.PlaceholderRunID,
		StreamBuffer:     cfg.Simulator.StreamBuffer,
		Logger:           log,
		Sinks:            d.sinks,
	}
	if cfg.Simulator.Seed != 0 {
		opts.Drawer = acqsim.NewSeededDrawer(cfg.Simulator.Seed)
	}
	d.sim = acqsim.New(opts)

	if cfg.Metrics.Enabled {
		if err := acqsim.RegisterMetricsDefault(); err != nil {
			d.close()
			return nil, fmt.Errorf("register metrics: %w", err)
		}
		d.metrics = acqsim.NewMetricsServer(cfg.Metrics.Listen)
	}

	if cfg.AutoTick.Enabled {
		t, err := d.sim.NewAutoTicker(cfg.AutoTick.Config, log)
		if err != nil {
			d.close()
			return nil, fmt.Errorf("autotick: %w", err)
		}
		d.tick = t
	}

	d.api = acqsim.NewHTTPServer(cfg.Server.Listen, cfg.Server.BasePath, d.sim)
	if strings.EqualFold(cfg.Server.Framework, config.FrameworkEcho) {
		e := echo.New()
		e.HideBanner = true
		e.HidePort = true
		acqsim.MountEcho(e, cfg.Server.BasePath, d.sim)
		d.api.Handler = e
	}
	return d, nil
}

// listen binds the configured addresses so bind errors surface before serving.
func (d *daemon) listen() error {
	ln, err := net.Listen("tcp", d.cfg.Server.Listen)
	if err != nil {
		return fmt.Errorf("listen %s: %w", d.cfg.Server.Listen, err)
	}
	d.apiLn = ln
	if d.metrics != nil {
		mln, err := net.Listen("tcp", d.cfg.Metrics.Listen)
		if err != nil {
			_ = ln.Close()
			return fmt.Errorf("metrics listen %s: %w", d.cfg.Metrics.Listen, err)
		}
		d.metLn = mln
	}
	return nil
}

func (d *daemon) apiAddr() string {
	if d.apiLn == nil {
		return ""
	}
	return d.apiLn.Addr().String()
}

// serve runs until ctx is done or a server fails, then shuts everything down.
func (d *daemon) serve(ctx context.Context) error {
	if d.tick != nil {
		if err := d.tick.Start(); err != nil {
			_ = d.apiLn.Close()
			if d.metLn != nil {
				_ = d.metLn.Close()
			}
			return err
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		d.log.Info("acqsim api listening", "addr", d.apiAddr(), "base", d.cfg.Server.BasePath, "framework", d.cfg.Server.Framework)
		return ignoreClosed(d.api.Serve(d.apiLn))
	})
	if d.metrics != nil {
		g.Go(func() error {
			d.log.Info("metrics listening", "addr", d.metLn.Addr().String())
			return ignoreClosed(d.metrics.Serve(d.metLn))
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		d.log.Info("shutting down")
		if d.tick != nil {
			d.tick.Stop()
		}
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err := d.api.Shutdown(sctx)
		if d.metrics != nil {
			err = errors.Join(err, d.metrics.Shutdown(sctx))
		}
		return err
	})

	return g.Wait()
}

func (d *daemon) close() {
	for _, s := range d.sinks {
		if err := history.Close(s); err != nil {
			d.log.Warn("history sink close failed", "sink", history.SinkName(s), "error", err)
		}
	}
	d.sinks = nil
}

func ignoreClosed(err error) error {
	if err == nil || errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
