package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/loykin/acqsim/internal/acquisition"
	"github.com/loykin/acqsim/internal/runstate"
)

// SSE event names emitted by the watch endpoint.
const (
	EventRunInfo = "acquisition_run_info"
	EventEnd     = "end"
)

// HeaderAdvancesRun marks responses of calls that moved a run forward.
const HeaderAdvancesRun = "X-Acqsim-Advances-Run"

// HeaderWatchID carries the subscription id of a watch stream.
const HeaderWatchID = "X-Acqsim-Watch-Id"

// Router provides embeddable HTTP handlers for the acquisition service.
// Endpoints (body: optional {"run_id": "..."}):
//
//	POST {basePath}/acquisition/watch_current_acquisition_run   SSE stream
//	POST {basePath}/acquisition/get_current_acquisition_run     advances the run
//	POST {basePath}/acquisition/peek_current_acquisition_run
//	POST {basePath}/acquisition/current_status
//	POST {basePath}/acquisition/get_progress
//	GET  {basePath}/runs
//
// basePath may be empty or start with '/'; no trailing slash.
type Router struct {
	svc      *acquisition.Service
	basePath string
	log      *slog.Logger
}

// NewRouter constructs a new Router with configurable basePath.
// Example basePath: "/api" results in /api/acquisition/..., /api/runs.
func NewRouter(svc *acquisition.Service, basePath string) *Router {
	return &Router{svc: svc, basePath: sanitizeBase(basePath), log: slog.Default()}
}

// WithLogger replaces the logger used for stream diagnostics.
func (r *Router) WithLogger(l *slog.Logger) *Router {
	if l != nil {
		r.log = l
	}
	return r
}

// BasePath returns the sanitized base path.
func (r *Router) BasePath() string { return r.basePath }

// Handler returns an http.Handler powered by gin that can be mounted in any server/mux.
func (r *Router) Handler() http.Handler {
	g := gin.New()
	g.Use(gin.Recovery())
	group := g.Group(r.basePath)
	acq := group.Group("/acquisition")
	acq.POST("/"+acquisition.MethodWatchCurrentRun, r.handleWatch)
	acq.POST("/"+acquisition.MethodGetCurrentRun, r.handleGet)
	acq.POST("/"+acquisition.MethodPeekCurrentRun, r.handlePeek)
	acq.POST("/"+acquisition.MethodCurrentStatus, r.handleStatus)
	acq.POST("/"+acquisition.MethodGetProgress, r.handleProgress)
	group.GET("/runs", r.handleRuns)
	return g
}

// NewHTTPServer wraps h in an http.Server with the timeouts used by serve.
// WriteTimeout is left unset so watch streams are not cut off.
func NewHTTPServer(addr string, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

// --- Handlers ---

type errorResp struct {
	Error string `json:"error"`
}

// RunsResponse is the body of GET /runs.
type RunsResponse struct {
	DefaultRunID string             `json:"default_run_id"`
	Runs         []runstate.RunStat `json:"runs"`
}

func (r *Router) selector(c *gin.Context) (acquisition.Selector, bool) {
	sel, err := readSelector(c)
	if err != nil {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: err.Error()})
		return sel, false
	}
	return sel, true
}

func (r *Router) handleGet(c *gin.Context) {
	sel, ok := r.selector(c)
	if !ok {
		return
	}
	info, err := r.svc.GetCurrentRun(c.Request.Context(), sel)
	if err != nil {
		writeJSON(c, http.StatusInternalServerError, errorResp{Error: err.Error()})
		return
	}
	c.Header(HeaderAdvancesRun, "true")
	writeJSON(c, http.StatusOK, info)
}

func (r *Router) handlePeek(c *gin.Context) {
	sel, ok := r.selector(c)
	if !ok {
		return
	}
	info, err := r.svc.PeekCurrentRun(c.Request.Context(), sel)
	if err != nil {
		writeJSON(c, http.StatusInternalServerError, errorResp{Error: err.Error()})
		return
	}
	writeJSON(c, http.StatusOK, info)
}

func (r *Router) handleStatus(c *gin.Context) {
	sel, ok := r.selector(c)
	if !ok {
		return
	}
	writeJSON(c, http.StatusOK, r.svc.CurrentStatus(c.Request.Context(), sel))
}

func (r *Router) handleProgress(c *gin.Context) {
	sel, ok := r.selector(c)
	if !ok {
		return
	}
	writeJSON(c, http.StatusOK, r.svc.GetProgress(c.Request.Context(), sel))
}

func (r *Router) handleRuns(c *gin.Context) {
	writeJSON(c, http.StatusOK, RunsResponse{
		DefaultRunID: r.svc.DefaultRunID(),
		Runs:         r.svc.Store().Runs(),
	})
}

// handleWatch streams watch items as server-sent events and finishes with
// an "end" event. A client disconnect, seen through the request context,
// cancels the watch. Only Flush is required of the writer, so the handler
// also works when mounted under echo.
func (r *Router) handleWatch(c *gin.Context) {
	sel, ok := r.selector(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()
	w := r.svc.WatchCurrentRun(ctx, sel)

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header(HeaderWatchID, w.ID)

	c.Status(http.StatusOK)
	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Flush()

	delivered := 0
	clientGone := false
stream:
	for {
		select {
		case info, open := <-w.C:
			if !open {
				c.SSEvent(EventEnd, gin.H{"watch_id": w.ID, "items": delivered})
				c.Writer.Flush()
				break stream
			}
			c.SSEvent(EventRunInfo, info)
			c.Writer.Flush()
			delivered++
		case <-ctx.Done():
			clientGone = true
			break stream
		}
	}
	cancel()

	if err := w.Wait(); err != nil {
		r.log.Debug("watch ended before delivery", "watch", w.ID, "error", err)
	}
	if clientGone {
		r.log.Debug("watch client disconnected", "watch", w.ID, "delivered", delivered)
	}
	if errs := c.Errors.ByType(gin.ErrorTypeAny); len(errs) > 0 {
		r.log.Warn("watch stream write failed", "watch", w.ID, "error", errs.Last())
	}
}
