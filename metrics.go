package multistream

// StatsSnapshot is the read-only view of the process-wide configuration
// arrays spec.md §6 describes: per-endpoint byte and waiter counts for
// each priority, and the enable flag. Every slice has length
// EngineConfig.NumEndpoints.
type StatsSnapshot struct {
	BytesHigh   []int64
	BytesLow    []int64
	WaitersHigh []int64
	WaitersLow  []int64
	Enabled     []bool
}

// Stats returns a fresh snapshot of every endpoint's counters, reading
// each flow's atomic mirrors without acquiring its mutex, per spec.md
// §5's lockless-observer policy. This mirrors the teacher's
// Device.MetricsSnapshot() accessor shape.
func (e *Engine) Stats() StatsSnapshot {
	n := len(e.endpoints)
	snap := StatsSnapshot{
		BytesHigh:   make([]int64, n),
		BytesLow:    make([]int64, n),
		WaitersHigh: make([]int64, n),
		WaitersLow:  make([]int64, n),
		Enabled:     make([]bool, n),
	}

	for i, ep := range e.endpoints {
		snap.BytesHigh[i] = ep.flowFor(priorityHigh).ValidBytesSnapshot()
		snap.BytesLow[i] = ep.flowFor(priorityLow).ValidBytesSnapshot()
		snap.WaitersHigh[i] = ep.flowFor(priorityHigh).WaiterSnapshot()
		snap.WaitersLow[i] = ep.flowFor(priorityLow).WaiterSnapshot()
		snap.Enabled[i] = ep.Enabled()
	}

	return snap
}
