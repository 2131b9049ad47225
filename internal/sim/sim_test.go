package sim

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"pedigreecore/pkg/domain"
)

func TestGenerateDefaultSize(t *testing.T) {
	res, err := New(nil).Generate(domain.DefaultSimOptions(), domain.DefaultOptions())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if res.Generated != domain.DefaultSimTotal {
		t.Fatalf("expected %d animals, got %d", domain.DefaultSimTotal, res.Generated)
	}
	if !res.Pedigree.Renumbered() {
		t.Fatalf("simulated pedigree must come back renumbered")
	}
	if !res.Reproducible || res.Seed != domain.DefaultSimSeed {
		t.Fatalf("seeded run should be reproducible with the configured seed, got %+v", res)
	}
}

func TestGenerateSameSeedSamePedigree(t *testing.T) {
	opts := domain.DefaultSimOptions()
	opts.Total = 40
	opts.Seed = 20260831

	first, err := New(nil).Generate(opts, domain.DefaultOptions())
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	second, err := New(nil).Generate(opts, domain.DefaultOptions())
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if !reflect.DeepEqual(first.Pedigree.Records(), second.Pedigree.Records()) {
		t.Fatalf("same seed must reproduce the same pedigree")
	}
}

func TestGenerateWallClockSeed(t *testing.T) {
	opts := domain.DefaultSimOptions()
	opts.Seed = 0
	fixed := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	res, err := New(nil, WithClock(func() time.Time { return fixed })).Generate(opts, domain.DefaultOptions())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if res.Reproducible {
		t.Fatalf("wall-clock seeded run must be marked non-reproducible")
	}
	if res.Seed != fixed.UnixNano() {
		t.Fatalf("seed should come from the clock, got %d", res.Seed)
	}
}

func TestGenerateNoParentOffspringMatings(t *testing.T) {
	opts := domain.DefaultSimOptions()
	opts.Total = 60
	opts.FounderSires = 6
	opts.FounderDams = 6
	opts.Seed = 97

	res, err := New(nil).Generate(opts, domain.DefaultOptions())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	ped := res.Pedigree
	missing := ped.Options().MissingParent
	for _, a := range ped.Records() {
		if a.SireID == missing || a.DamID == missing {
			continue
		}
		sire, _ := ped.ByID(a.SireID)
		dam, _ := ped.ByID(a.DamID)
		if dam.SireID == a.SireID || dam.DamID == a.SireID {
			t.Fatalf("animal %d mates its dam with her own parent", a.OriginalID)
		}
		if sire.SireID == a.DamID || sire.DamID == a.DamID {
			t.Fatalf("animal %d mates its sire with his own parent", a.OriginalID)
		}
	}
}

func TestGenerateNoFullSibMatings(t *testing.T) {
	opts := domain.DefaultSimOptions()
	opts.Total = 60
	opts.FounderSires = 6
	opts.FounderDams = 6
	opts.Seed = 431

	res, err := New(nil).Generate(opts, domain.DefaultOptions())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	ped := res.Pedigree
	missing := ped.Options().MissingParent
	for _, a := range ped.Records() {
		if a.SireID == missing || a.DamID == missing {
			continue
		}
		sire, _ := ped.ByID(a.SireID)
		dam, _ := ped.ByID(a.DamID)
		if sire.SireID == missing || sire.DamID == missing {
			continue
		}
		if sire.SireID == dam.SireID && sire.DamID == dam.DamID {
			t.Fatalf("animal %d was produced by a full-sib mating", a.OriginalID)
		}
	}
}

func TestGenerateFounderCountFatal(t *testing.T) {
	opts := domain.DefaultSimOptions()
	opts.FounderSires = 20

	if _, err := New(nil).Generate(opts, domain.DefaultOptions()); err == nil {
		t.Fatalf("founder sires above the target size must be fatal")
	}
}

func TestGenerateDumpsRawRows(t *testing.T) {
	opts := domain.DefaultSimOptions()
	opts.Dump = filepath.Join(t.TempDir(), "sim")

	res, err := New(nil).Generate(opts, domain.DefaultOptions())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	data, err := os.ReadFile(opts.Dump + ".ped") // #nosec G304
	if err != nil {
		t.Fatalf("dump file missing: %v", err)
	}
	if len(data) == 0 || res.Generated == 0 {
		t.Fatalf("dump should contain the generated rows")
	}
}

type simCounter struct {
	draws, rejections, fallbacks int
	calls                        int
}

func (s *simCounter) ObserveSimulation(draws, rejections, fallbacks int) {
	s.draws += draws
	s.rejections += rejections
	s.fallbacks += fallbacks
	s.calls++
}

func TestGenerateRecorder(t *testing.T) {
	rec := &simCounter{}
	if _, err := New(nil, WithRecorder(rec)).Generate(domain.DefaultSimOptions(), domain.DefaultOptions()); err != nil {
		t.Fatalf("generate: %v", err)
	}
	if rec.calls != 1 || rec.draws == 0 {
		t.Fatalf("recorder should observe one run with draws counted: %+v", rec)
	}
}
