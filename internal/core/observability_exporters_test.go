package core

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestExpvarMetricsRecorderAggregates(t *testing.T) {
	rec := NewExpvarMetricsRecorder("test_metrics_aggregates")
	if rec.Name() != "test_metrics_aggregates" {
		t.Fatalf("unexpected name %q", rec.Name())
	}
	ctx := context.Background()
	rec.Observe(ctx, "import_pedigree", true, 10*time.Millisecond)
	rec.Observe(ctx, "import_pedigree", true, 5*time.Millisecond)
	rec.Observe(ctx, "import_pedigree", false, time.Millisecond)
	rec.Observe(ctx, "", true, time.Second)

	snap := rec.Snapshot()
	if snap.DurationsMS["import_pedigree"] != 16 {
		t.Fatalf("unexpected duration total %v", snap.DurationsMS)
	}
	if snap.Results["import_pedigree"]["success"] != 2 || snap.Results["import_pedigree"]["error"] != 1 {
		t.Fatalf("unexpected result counters %v", snap.Results)
	}
	if _, ok := snap.Results[""]; ok {
		t.Fatalf("empty operation must be ignored")
	}
}

func TestExpvarMetricsRecorderGeneratesName(t *testing.T) {
	a := NewExpvarMetricsRecorder("")
	b := NewExpvarMetricsRecorder("")
	if a.Name() == "" || a.Name() == b.Name() {
		t.Fatalf("generated names must be unique: %q %q", a.Name(), b.Name())
	}
}

func TestJSONTracerRecordsSpans(t *testing.T) {
	var buf bytes.Buffer
	tracer := NewJSONTracer(&buf)
	ctx := context.Background()

	_, span := tracer.Start(ctx, "import_pedigree")
	span.End(nil)
	_, span = tracer.Start(ctx, "merge_pedigrees")
	span.End(errors.New("boom"))

	entries := tracer.Entries()
	if len(entries) != 2 {
		t.Fatalf("expected two entries, got %d", len(entries))
	}
	if entries[0].Status != "success" || entries[0].Error != "" {
		t.Fatalf("unexpected first entry %+v", entries[0])
	}
	if entries[1].Status != "error" || entries[1].Error != "boom" {
		t.Fatalf("unexpected second entry %+v", entries[1])
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 || !strings.Contains(lines[1], `"merge_pedigrees"`) {
		t.Fatalf("unexpected encoded output %q", buf.String())
	}
}

func TestJSONTracerWithoutWriter(t *testing.T) {
	tracer := NewJSONTracer(nil)
	_, span := tracer.Start(context.Background(), "op")
	span.End(nil)
	if len(tracer.Entries()) != 1 {
		t.Fatalf("entries must be retained without a writer")
	}
}
