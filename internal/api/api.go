// Package api exposes pipeline health, status, metrics and run triggers over HTTP.
package api

import (
	"context"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"

	"skyblock-price-lab/internal/observability"
	"skyblock-price-lab/internal/orchestrator"
)

// Runner executes pipeline runs. Implemented by orchestrator.Orchestrator.
type Runner interface {
	RunStage(ctx context.Context, stage orchestrator.Stage) (*orchestrator.RunResult, error)
	LastRun() *orchestrator.RunResult
}

// Handler serves the HTTP endpoints and owns background runs.
type Handler struct {
	ctx     context.Context
	runner  Runner
	logger  *log.Logger
	started time.Time

	mu      sync.Mutex
	closed  bool
	running atomic.Bool
	wg      sync.WaitGroup
}

// NewHandler creates a Handler. Runs triggered through it use ctx, so
// cancelling ctx cancels them.
func NewHandler(ctx context.Context, runner Runner, logger *log.Logger) *Handler {
	if logger == nil {
		logger = log.Default()
	}
	return &Handler{
		ctx:     ctx,
		runner:  runner,
		logger:  logger,
		started: time.Now(),
	}
}

// NewRouter builds the gin engine with all routes registered.
func NewRouter(h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", h.Health)
	r.GET("/status", h.Status)
	r.GET("/metrics", gin.WrapH(observability.Handler()))
	r.POST("/run", h.Run)

	return r
}

// Trigger starts a background run unless one started by this handler is
// still in progress, the handler context is done, or Wait was called.
// Reports whether a run was started.
func (h *Handler) Trigger(stage orchestrator.Stage) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed || h.ctx.Err() != nil {
		return false
	}
	if !h.running.CompareAndSwap(false, true) {
		return false
	}

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		defer h.running.Store(false)

		if _, err := h.runner.RunStage(h.ctx, stage); err != nil {
			h.logger.Printf("[api] %s run failed: %v", stage, err)
		}
	}()
	return true
}

// Wait stops further triggers and blocks until the background run, if any,
// returns.
func (h *Handler) Wait() {
	h.mu.Lock()
	h.closed = true
	h.mu.Unlock()

	h.wg.Wait()
}

func (h *Handler) stopped() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closed || h.ctx.Err() != nil
}

// Health reports liveness.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Status reports uptime and the last completed run.
func (h *Handler) Status(c *gin.Context) {
	resp := gin.H{
		"uptime_seconds": int64(time.Since(h.started).Seconds()),
		"running":        h.running.Load(),
		"last_run":       nil,
	}
	if last := h.runner.LastRun(); last != nil {
		resp["last_run"] = newRunView(last)
	}
	c.JSON(http.StatusOK, resp)
}

// Run triggers a background run. The optional stage query parameter
// selects all (default), ingest, aggregate or retain.
func (h *Handler) Run(c *gin.Context) {
	stage, err := orchestrator.ParseStage(c.DefaultQuery("stage", string(orchestrator.StageAll)))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if !h.Trigger(stage) {
		if h.stopped() {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "shutting down"})
			return
		}
		c.JSON(http.StatusConflict, gin.H{"error": "run already in progress"})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "started", "stage": stage})
}
