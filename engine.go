// Package multistream implements a multi-minor character-style stream
// engine: N independently enabled endpoints, each offering a
// high-priority synchronous flow and a low-priority deferred flow backed
// by a paged byte log, with mutex+wait-queue concurrency and a control
// dispatcher for per-session tuning.
package multistream

import (
	"context"
	"fmt"

	"github.com/pcaliandro/go-multistream/internal/constants"
	"github.com/pcaliandro/go-multistream/internal/logging"
	"github.com/pcaliandro/go-multistream/internal/scheduler"
)

const (
	priorityLow  = constants.PriorityLow
	priorityHigh = constants.PriorityHigh
)

// Engine is the process-wide handle: the N endpoints plus the deferred
// write scheduler, replacing the teacher's single *Device. It is
// constructed with the same option-struct-with-defaults shape as the
// teacher's CreateAndServe, minus any kernel registration step (there is
// none in this domain).
type Engine struct {
	cfg       EngineConfig
	endpoints []*Endpoint
	scheduler *scheduler.Scheduler
	logger    *logging.Logger
}

// NewEngine allocates N endpoints (each with two empty flows) and starts
// the deferred-write scheduler, per spec.md §4.7's initialization
// sequence.
func NewEngine(cfg EngineConfig) (*Engine, error) {
	if cfg.NumEndpoints <= 0 {
		return nil, NewError("NewEngine", ErrCodeInvalidArgument, "NumEndpoints must be positive")
	}
	if cfg.PageSize <= 0 || cfg.MaxPages <= 0 {
		return nil, NewError("NewEngine", ErrCodeInvalidArgument, "PageSize and MaxPages must be positive")
	}

	logger := logging.Default()

	endpoints := make([]*Endpoint, cfg.NumEndpoints)
	for i := range endpoints {
		endpoints[i] = newEndpoint(i, cfg)
	}

	sched := scheduler.New(cfg.SchedulerWorkers, cfg.SchedulerQueueDepth, logger)
	sched.Start()

	logger.Info("engine started", "endpoints", cfg.NumEndpoints, "page_size", cfg.PageSize, "max_pages", cfg.MaxPages)

	return &Engine{
		cfg:       cfg,
		endpoints: endpoints,
		scheduler: sched,
		logger:    logger,
	}, nil
}

// Open implements spec.md §6's handle-open protocol: it succeeds when
// endpointID < N and the endpoint is enabled, returning a Session with
// defaults priority=HIGH, timeout=0 (non-blocking).
func (e *Engine) Open(endpointID int) (*Session, error) {
	if endpointID < 0 || endpointID >= len(e.endpoints) {
		return nil, NewEndpointError("Open", endpointID, ErrCodeNoSuchDevice, fmt.Sprintf("no such endpoint %d", endpointID))
	}

	ep := e.endpoints[endpointID]
	if !ep.Enabled() {
		return nil, NewEndpointError("Open", endpointID, ErrCodeDisabled, "endpoint disabled")
	}

	if !ep.tryAcquireExclusive() {
		return nil, NewEndpointError("Open", endpointID, ErrCodeDisabled, "endpoint already has an exclusive session open")
	}

	e.logger.Debug("session opened", "endpoint", endpointID)

	return &Session{
		engine:   e,
		endpoint: ep,
		priority: priorityHigh,
		timeout:  e.cfg.DefaultSessionTimeout,
	}, nil
}

// Close drains the deferred-write scheduler and releases engine-wide
// resources, mirroring the teacher's StopAndDelete. Callers must close
// every Session before calling Close; the engine does not track open
// sessions (spec.md §4.7 places that guarantee on the surrounding
// framework, not the core).
func (e *Engine) Close(ctx context.Context) error {
	e.logger.Info("engine closing")
	if err := e.scheduler.Stop(ctx); err != nil {
		return WrapError("Engine.Close", err)
	}
	return nil
}
