package multistream

import (
	"sync"
	"sync/atomic"

	"github.com/pcaliandro/go-multistream/internal/constants"
	"github.com/pcaliandro/go-multistream/internal/flow"
)

// Endpoint aggregates the two priority flows addressed by a single minor
// number, plus the enable/disable flag that gates Open. Its two flows
// share no state and are synchronized independently, per spec.md §5.
type Endpoint struct {
	id      int
	flows   [constants.NumFlows]*flow.State
	enabled atomic.Bool

	// openMu is only used when the engine is configured with
	// ExclusiveOpen; it is nil otherwise.
	openMu *sync.Mutex
}

func newEndpoint(id int, cfg EngineConfig) *Endpoint {
	ep := &Endpoint{
		id: id,
		flows: [constants.NumFlows]*flow.State{
			flow.New(cfg.PageSize, cfg.MaxPages),
			flow.New(cfg.PageSize, cfg.MaxPages),
		},
	}
	ep.enabled.Store(true)

	if cfg.ExclusiveOpen {
		ep.openMu = &sync.Mutex{}
	}

	return ep
}

// Enabled reports the endpoint's enable flag, read locklessly per
// spec.md §5.
func (e *Endpoint) Enabled() bool {
	return e.enabled.Load()
}

// SetEnabled mutates the endpoint's enable flag. It affects future Opens
// only; sessions already open are unaffected.
func (e *Endpoint) SetEnabled(enabled bool) {
	e.enabled.Store(enabled)
}

// flowFor returns the FlowState for the given priority (constants.PriorityLow
// or constants.PriorityHigh).
func (e *Endpoint) flowFor(priority int) *flow.State {
	return e.flows[priority]
}

// tryAcquireExclusive attempts to take the endpoint's single-session slot
// when ExclusiveOpen is configured. It always succeeds when ExclusiveOpen
// is off.
func (e *Endpoint) tryAcquireExclusive() bool {
	if e.openMu == nil {
		return true
	}
	return e.openMu.TryLock()
}

func (e *Endpoint) releaseExclusive() {
	if e.openMu != nil {
		e.openMu.Unlock()
	}
}
