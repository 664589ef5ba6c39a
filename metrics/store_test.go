package metrics

import (
	"testing"
	"time"
)

func sampleFor(op, status string, batch int, d time.Duration) Sample {
	return Sample{
		RequestID: "req",
		Operation: op,
		Status:    status,
		BatchSize: batch,
		Duration:  d,
	}
}

func TestStore_Aggregates(t *testing.T) {
	store := NewStore(10)

	store.Record(sampleFor("generation", StatusSuccess, 3, 2*time.Second))
	store.Record(sampleFor("generation", StatusSuccess, 1, 4*time.Second))
	store.Record(sampleFor("generation", StatusError, 0, time.Second))
	store.Record(sampleFor("edit", StatusSuccess, 2, 6*time.Second))

	stats := store.Snapshot()

	if stats.TotalRequests != 4 {
		t.Errorf("total requests = %d, want 4", stats.TotalRequests)
	}
	if stats.TotalSuccess != 3 || stats.TotalErrors != 1 {
		t.Errorf("success/errors = %d/%d, want 3/1", stats.TotalSuccess, stats.TotalErrors)
	}
	if stats.ImagesProduced != 6 {
		t.Errorf("images produced = %d, want 6", stats.ImagesProduced)
	}

	gen := stats.ByOperation["generation"]
	if gen == nil {
		t.Fatal("generation stats missing")
	}
	if gen.Count != 3 {
		t.Errorf("generation count = %d, want 3", gen.Count)
	}
	wantRate := float64(2) / 3 * 100
	if gen.SuccessRate < wantRate-0.01 || gen.SuccessRate > wantRate+0.01 {
		t.Errorf("success rate = %f, want %f", gen.SuccessRate, wantRate)
	}
	if gen.AvgDuration != (7*time.Second)/3 {
		t.Errorf("avg duration = %v", gen.AvgDuration)
	}
	if stats.GPU != nil {
		t.Error("gpu snapshot should be nil before UpdateGPU")
	}
}

func TestStore_RecentNewestFirst(t *testing.T) {
	store := NewStore(3)

	for i := 0; i < 5; i++ {
		s := sampleFor("generation", StatusSuccess, 1, time.Duration(i)*time.Second)
		s.RequestID = string(rune('a' + i))
		store.Record(s)
	}

	recent := store.Recent(0)
	if len(recent) != 3 {
		t.Fatalf("got %d samples, want 3 (ring capacity)", len(recent))
	}
	// Last recorded was "e"; ring holds the newest three.
	want := []string{"e", "d", "c"}
	for i, w := range want {
		if recent[i].RequestID != w {
			t.Errorf("recent[%d] = %q, want %q", i, recent[i].RequestID, w)
		}
	}

	if got := store.Recent(1); len(got) != 1 || got[0].RequestID != "e" {
		t.Errorf("Recent(1) = %+v", got)
	}
}

func TestStore_GPUSnapshot(t *testing.T) {
	store := NewStore(10)

	store.UpdateGPU(GPUMetrics{Utilization: 85, MemoryTotal: 24 << 30, MemoryUsed: 20 << 30})

	stats := store.Snapshot()
	if stats.GPU == nil {
		t.Fatal("gpu snapshot missing")
	}
	if stats.GPU.Utilization != 85 {
		t.Errorf("utilization = %f, want 85", stats.GPU.Utilization)
	}
}

func TestStore_ZeroHistorySizeFallsBack(t *testing.T) {
	store := NewStore(0)
	store.Record(sampleFor("generation", StatusSuccess, 1, time.Second))
	if got := store.Snapshot().TotalRequests; got != 1 {
		t.Errorf("total requests = %d, want 1", got)
	}
}
