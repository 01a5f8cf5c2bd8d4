package aggregate

import (
	"math"
	"sync"
)

// Manager manages streaming aggregates for many series.
// It handles window transitions and flushing completed aggregates.
type Manager struct {
	mu sync.RWMutex

	// Configuration
	window             uint64
	percentileEnabled  bool
	percentileAccuracy float64

	// Active aggregates: key -> aggregate
	aggregates map[string]*StreamingAggregate

	// Completed aggregates waiting to be flushed
	completed []Result

	// Statistics
	stats ManagerStats
}

// ManagerStats holds statistics for the manager.
type ManagerStats struct {
	ActiveAggregates int64
	CompletedPending int64
	ValuesProcessed  int64
	WindowsCompleted int64
	FlushesPerformed int64
}

// NewManager creates a new aggregate manager. window is the number of events
// per aggregate; zero aggregates the whole run.
func NewManager(window uint64, percentileEnabled bool) *Manager {
	return &Manager{
		window:             window,
		percentileEnabled:  percentileEnabled,
		percentileAccuracy: 0.01, // 1% default
		aggregates:         make(map[string]*StreamingAggregate),
	}
}

// NewManagerWithAccuracy creates a manager with custom percentile accuracy.
func NewManagerWithAccuracy(window uint64, accuracy float64) *Manager {
	return &Manager{
		window:             window,
		percentileEnabled:  true,
		percentileAccuracy: accuracy,
		aggregates:         make(map[string]*StreamingAggregate),
	}
}

// Process adds a value of series key observed in event.
// If the event belongs to a new window, the old window is completed.
func (m *Manager) Process(key string, value float64, event uint64) {
	if math.IsNaN(value) {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	start, end := m.calculateWindow(event)

	agg, exists := m.aggregates[key]

	if !exists {
		agg = m.createAggregate(key, start, end)
		m.aggregates[key] = agg
	} else if start > agg.EventStart() {
		// New window - complete the old one and reuse the aggregate
		if !agg.IsEmpty() {
			m.completed = append(m.completed, agg.Result())
			m.stats.WindowsCompleted++
		}
		agg.Reset(start, end)
	}

	agg.Add(value, event)
	m.stats.ValuesProcessed++
}

// FlushCompleted returns and clears all completed aggregates.
func (m *Manager) FlushCompleted() []Result {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.completed) == 0 {
		return nil
	}

	result := m.completed
	m.completed = nil
	m.stats.FlushesPerformed++

	SortResults(result)
	return result
}

// FlushAll completes all active aggregates and returns them together with
// the pending completed ones, ordered by key and window.
// This is typically called after the last event.
func (m *Manager) FlushAll() []Result {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, agg := range m.aggregates {
		if !agg.IsEmpty() {
			m.completed = append(m.completed, agg.Result())
			m.stats.WindowsCompleted++
		}
	}
	m.aggregates = make(map[string]*StreamingAggregate)

	result := m.completed
	m.completed = nil
	m.stats.FlushesPerformed++

	SortResults(result)
	return result
}

// Snapshot returns the results of the active aggregates without completing
// them.
func (m *Manager) Snapshot() []Result {
	m.mu.RLock()
	defer m.mu.RUnlock()

	results := make([]Result, 0, len(m.aggregates))
	for _, agg := range m.aggregates {
		if !agg.IsEmpty() {
			results = append(results, agg.Result())
		}
	}
	SortResults(results)
	return results
}

// Stats returns current statistics.
func (m *Manager) Stats() ManagerStats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := m.stats
	stats.ActiveAggregates = int64(len(m.aggregates))
	stats.CompletedPending = int64(len(m.completed))
	return stats
}

// ActiveCount returns the number of active aggregates.
func (m *Manager) ActiveCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.aggregates)
}

// Window returns the configured window size in events.
func (m *Manager) Window() uint64 {
	return m.window
}

// calculateWindow calculates the window start and end for an event.
func (m *Manager) calculateWindow(event uint64) (start, end uint64) {
	if m.window == 0 {
		return 0, 0
	}
	start = (event / m.window) * m.window
	end = start + m.window
	return
}

// createAggregate creates a new aggregate with the manager's settings.
func (m *Manager) createAggregate(key string, start, end uint64) *StreamingAggregate {
	if m.percentileEnabled {
		return NewWithAccuracy(key, start, end, m.percentileAccuracy)
	}
	return New(key, start, end, false)
}
