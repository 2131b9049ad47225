package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveCountsResults(t *testing.T) {
	reg := New(prometheus.NewRegistry())
	ctx := context.Background()
	reg.Observe(ctx, "import_pedigree", true, 10*time.Millisecond)
	reg.Observe(ctx, "import_pedigree", true, 20*time.Millisecond)
	reg.Observe(ctx, "import_pedigree", false, time.Millisecond)
	reg.Observe(ctx, "", true, time.Second)

	if got := testutil.ToFloat64(reg.opResults.WithLabelValues("import_pedigree", "success")); got != 2 {
		t.Fatalf("expected 2 successes, got %v", got)
	}
	if got := testutil.ToFloat64(reg.opResults.WithLabelValues("import_pedigree", "error")); got != 1 {
		t.Fatalf("expected 1 error, got %v", got)
	}
	if got := testutil.CollectAndCount(reg.opDuration); got != 1 {
		t.Fatalf("expected one histogram series, got %d", got)
	}
}

func TestObserveMerge(t *testing.T) {
	reg := New(prometheus.NewRegistry())
	reg.ObserveMerge("union", 9, 2)
	reg.ObserveMerge("union", 3, 1)
	if got := testutil.ToFloat64(reg.mergeComparisons.WithLabelValues("union")); got != 12 {
		t.Fatalf("expected 12 comparisons, got %v", got)
	}
	if got := testutil.ToFloat64(reg.mergeDuplicates.WithLabelValues("union")); got != 3 {
		t.Fatalf("expected 3 duplicates, got %v", got)
	}
}

func TestObserveSimulation(t *testing.T) {
	reg := New(prometheus.NewRegistry())
	reg.ObserveSimulation(100, 4, 1)
	if got := testutil.ToFloat64(reg.simDraws); got != 100 {
		t.Fatalf("expected 100 draws, got %v", got)
	}
	if got := testutil.ToFloat64(reg.simRejections); got != 4 {
		t.Fatalf("expected 4 rejections, got %v", got)
	}
	if got := testutil.ToFloat64(reg.simFallbacks); got != 1 {
		t.Fatalf("expected 1 fallback, got %v", got)
	}
}

func TestNewWithDefaultRegisterer(t *testing.T) {
	// A throwaway registry keeps the default registerer clean across runs.
	prev := prometheus.DefaultRegisterer
	prometheus.DefaultRegisterer = prometheus.NewRegistry()
	defer func() { prometheus.DefaultRegisterer = prev }()
	if New(nil) == nil {
		t.Fatalf("expected registry")
	}
}
