package aggregate

import (
	"bytes"
	"math"
	"strings"
	"sync"
	"testing"
)

func TestStreamingAggregate_Basic(t *testing.T) {
	agg := New("Cal/energy/3", 0, 100, false)

	if !agg.IsEmpty() {
		t.Error("new aggregate should be empty")
	}

	// Add some values
	agg.Add(10.0, 4)
	agg.Add(20.0, 2)
	agg.Add(30.0, 9)

	if agg.IsEmpty() {
		t.Error("aggregate should not be empty")
	}

	if agg.Count() != 3 {
		t.Errorf("expected count=3, got %d", agg.Count())
	}

	result := agg.Result()

	if result.Count != 3 {
		t.Errorf("expected count=3, got %d", result.Count)
	}

	if result.Sum != 60.0 {
		t.Errorf("expected sum=60, got %f", result.Sum)
	}

	if result.Min != 10.0 {
		t.Errorf("expected min=10, got %f", result.Min)
	}

	if result.Max != 30.0 {
		t.Errorf("expected max=30, got %f", result.Max)
	}

	expectedMean := 20.0
	if math.Abs(result.Mean-expectedMean) > 0.001 {
		t.Errorf("expected mean=%f, got %f", expectedMean, result.Mean)
	}

	if result.FirstEvent != 2 || result.LastEvent != 9 {
		t.Errorf("expected events [2,9], got [%d,%d]", result.FirstEvent, result.LastEvent)
	}

	if result.HasPercentiles() {
		t.Error("should not have percentiles")
	}
}

func TestStreamingAggregate_Empty(t *testing.T) {
	result := New("k", 0, 0, true).Result()

	if !result.IsEmpty() {
		t.Error("expected empty result")
	}
	if result.Min != 0 || result.Max != 0 || result.Mean != 0 {
		t.Errorf("empty result should have zero statistics, got %+v", result)
	}
	if result.HasPercentiles() {
		t.Error("empty result should not have percentiles")
	}
}

func TestStreamingAggregate_WithPercentiles(t *testing.T) {
	agg := New("Cal/time/0", 0, 0, true)

	// Add 100 values: 1, 2, 3, ..., 100
	for i := 1; i <= 100; i++ {
		agg.Add(float64(i), uint64(i))
	}

	result := agg.Result()

	if !result.HasPercentiles() {
		t.Fatal("should have percentiles")
	}

	// P50 should be around 50
	if math.Abs(*result.P50-50.0) > 2.0 {
		t.Errorf("expected P50 near 50, got %f", *result.P50)
	}

	// P95 should be around 95
	if math.Abs(*result.P95-95.0) > 2.0 {
		t.Errorf("expected P95 near 95, got %f", *result.P95)
	}

	// P99 should be around 99
	if math.Abs(*result.P99-99.0) > 2.0 {
		t.Errorf("expected P99 near 99, got %f", *result.P99)
	}
}

func TestStreamingAggregate_NaNIgnored(t *testing.T) {
	agg := New("k", 0, 0, true)
	agg.Add(math.NaN(), 1)
	agg.Add(5, 2)

	if agg.Count() != 1 {
		t.Errorf("expected count=1 (NaN ignored), got %d", agg.Count())
	}
}

func TestStreamingAggregate_Reset(t *testing.T) {
	agg := New("k", 0, 50, true)

	agg.Add(10.0, 1)
	agg.Add(20.0, 2)

	if agg.Count() != 2 {
		t.Errorf("expected count=2, got %d", agg.Count())
	}

	// Reset to the next window
	agg.Reset(50, 100)

	if !agg.IsEmpty() {
		t.Error("aggregate should be empty after reset")
	}

	if agg.EventStart() != 50 {
		t.Errorf("expected window start=50, got %d", agg.EventStart())
	}

	agg.Add(7, 60)
	result := agg.Result()
	if !result.HasPercentiles() || result.Min != 7 {
		t.Errorf("expected fresh statistics after reset, got %+v", result)
	}
}

func TestStreamingAggregate_Merge(t *testing.T) {
	agg1 := New("k", 0, 0, true)
	agg1.Add(10.0, 3)
	agg1.Add(20.0, 4)

	agg2 := New("k", 0, 0, true)
	agg2.Add(30.0, 1)
	agg2.Add(40.0, 8)

	if err := agg1.Merge(agg2); err != nil {
		t.Fatalf("Merge: %v", err)
	}

	result := agg1.Result()

	if result.Count != 4 {
		t.Errorf("expected count=4, got %d", result.Count)
	}

	if result.Sum != 100.0 {
		t.Errorf("expected sum=100, got %f", result.Sum)
	}

	if result.Min != 10.0 {
		t.Errorf("expected min=10, got %f", result.Min)
	}

	if result.Max != 40.0 {
		t.Errorf("expected max=40, got %f", result.Max)
	}

	if result.FirstEvent != 1 || result.LastEvent != 8 {
		t.Errorf("expected events [1,8], got [%d,%d]", result.FirstEvent, result.LastEvent)
	}

	if err := agg1.Merge(agg1); err != nil {
		t.Errorf("self merge: %v", err)
	}
	if agg1.Count() != 4 {
		t.Errorf("self merge changed count to %d", agg1.Count())
	}
}

func TestStreamingAggregate_Concurrent(t *testing.T) {
	agg := New("k", 0, 0, true)

	var wg sync.WaitGroup
	numGoroutines := 10
	valuesPerGoroutine := 1000

	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func(base int) {
			defer wg.Done()
			for j := 0; j < valuesPerGoroutine; j++ {
				agg.Add(float64(base*valuesPerGoroutine+j), uint64(j))
			}
		}(i)
	}

	wg.Wait()

	expectedCount := int64(numGoroutines * valuesPerGoroutine)
	if agg.Count() != expectedCount {
		t.Errorf("expected count=%d, got %d", expectedCount, agg.Count())
	}
}

func TestManager_Basic(t *testing.T) {
	manager := NewManager(0, false)

	if manager.ActiveCount() != 0 {
		t.Errorf("expected 0 active aggregates, got %d", manager.ActiveCount())
	}

	manager.Process("Cal/energy/0", 50.0, 0)
	manager.Process("Cal/energy/0", 60.0, 1)

	if manager.ActiveCount() != 1 {
		t.Errorf("expected 1 active aggregate, got %d", manager.ActiveCount())
	}

	stats := manager.Stats()
	if stats.ValuesProcessed != 2 {
		t.Errorf("expected 2 values processed, got %d", stats.ValuesProcessed)
	}

	manager.Process("Cal/energy/0", math.NaN(), 2)
	if manager.Stats().ValuesProcessed != 2 {
		t.Error("NaN should not be processed")
	}
}

func TestManager_WindowTransition(t *testing.T) {
	manager := NewManager(100, false)

	// Event 10 lies in window [0, 100)
	manager.Process("k", 50.0, 10)

	if manager.Stats().CompletedPending != 0 {
		t.Errorf("expected 0 completed, got %d", manager.Stats().CompletedPending)
	}

	// Event 120 lies in window [100, 200) and completes the first
	manager.Process("k", 60.0, 120)

	if manager.Stats().CompletedPending != 1 {
		t.Errorf("expected 1 completed, got %d", manager.Stats().CompletedPending)
	}

	completed := manager.FlushCompleted()
	if len(completed) != 1 {
		t.Fatalf("expected 1 completed result, got %d", len(completed))
	}

	if completed[0].Count != 1 || completed[0].Mean != 50.0 {
		t.Errorf("expected one value of 50, got %+v", completed[0])
	}

	if completed[0].EventStart != 0 || completed[0].EventEnd != 100 {
		t.Errorf("expected window [0,100), got [%d,%d)", completed[0].EventStart, completed[0].EventEnd)
	}

	if manager.FlushCompleted() != nil {
		t.Error("expected nothing pending after flush")
	}

	rest := manager.FlushAll()
	if len(rest) != 1 || rest[0].EventStart != 100 {
		t.Errorf("expected the open window [100,200), got %+v", rest)
	}
}

func TestManager_FlushAll(t *testing.T) {
	manager := NewManager(0, false)

	manager.Process("Raw/adc/2", 50.0, 0)
	manager.Process("Raw/adc/1", 70.0, 0)
	manager.Process("Cal/energy/1", 30.0, 0)

	if manager.ActiveCount() != 3 {
		t.Errorf("expected 3 active aggregates, got %d", manager.ActiveCount())
	}

	snapshot := manager.Snapshot()
	if len(snapshot) != 3 || manager.ActiveCount() != 3 {
		t.Errorf("snapshot should not complete aggregates")
	}

	results := manager.FlushAll()

	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}

	want := []string{"Cal/energy/1", "Raw/adc/1", "Raw/adc/2"}
	for i, r := range results {
		if r.Key != want[i] {
			t.Errorf("result %d key = %s, want %s", i, r.Key, want[i])
		}
	}

	if manager.ActiveCount() != 0 {
		t.Errorf("expected 0 active after flush all, got %d", manager.ActiveCount())
	}
}

func TestManager_WithPercentiles(t *testing.T) {
	manager := NewManagerWithAccuracy(0, 0.01)

	// Add 100 values
	for i := 1; i <= 100; i++ {
		manager.Process("k", float64(i), uint64(i))
	}

	results := manager.FlushAll()

	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}

	result := results[0]
	if !result.HasPercentiles() {
		t.Fatal("expected percentiles")
	}

	// P50 should be around 50
	if math.Abs(*result.P50-50.0) > 2.0 {
		t.Errorf("expected P50 near 50, got %f", *result.P50)
	}
}

func TestPrintResults(t *testing.T) {
	manager := NewManager(0, true)
	manager.Process("Cal/energy/1", 2, 0)
	manager.Process("Cal/energy/1", 4, 1)

	var buf bytes.Buffer
	PrintResults(&buf, manager.FlushAll())

	out := buf.String()
	for _, want := range []string{"Cal/energy/1", "events=[0,1]", "n=2", "mean=3", "p50="} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q missing %q", out, want)
		}
	}
}

func BenchmarkStreamingAggregate_Add(b *testing.B) {
	agg := New("k", 0, 0, false)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		agg.Add(float64(i), uint64(i))
	}
}
