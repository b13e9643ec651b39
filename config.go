package multistream

import (
	"time"

	"github.com/pcaliandro/go-multistream/internal/constants"
)

// EngineConfig holds the tunables for a stream engine instance, mirroring
// the teacher's DeviceParams/DefaultParams shape: an explicit struct of
// knobs with a constructor supplying the spec's defaults.
type EngineConfig struct {
	// PageSize is the fixed capacity of a single log page in bytes (C).
	PageSize int
	// MaxPages bounds the number of pages a single flow's log may hold.
	MaxPages int
	// NumEndpoints is the number of minor-number endpoints (N).
	NumEndpoints int
	// DefaultSessionTimeout is the timeout newly opened sessions start
	// with; 0 means non-blocking.
	DefaultSessionTimeout time.Duration
	// SchedulerWorkers is the number of deferred-write drain goroutines.
	SchedulerWorkers int
	// SchedulerQueueDepth bounds pending deferred writes per worker queue.
	SchedulerQueueDepth int
	// ExclusiveOpen, when true, allows at most one open Session per
	// endpoint at a time, mirroring the original driver's optional
	// SINGLE_SESSION_OBJECT build mode. Off by default.
	ExclusiveOpen bool
}

// DefaultEngineConfig returns the spec's default geometry: C=4096,
// MAX_PAGES=5, N=128, non-blocking sessions by default.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		PageSize:              constants.PageSize,
		MaxPages:              constants.MaxPages,
		NumEndpoints:          constants.NumEndpoints,
		DefaultSessionTimeout: constants.DefaultSessionTimeout,
		SchedulerWorkers:      constants.DefaultSchedulerWorkers,
		SchedulerQueueDepth:   constants.SchedulerQueueDepth,
		ExclusiveOpen:         false,
	}
}
