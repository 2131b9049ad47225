package annotate

import (
	"strings"
	"testing"

	"pedigreecore/internal/pedio"
	"pedigreecore/internal/pedigree"
	"pedigreecore/pkg/domain"
)

func load(t *testing.T, src string) *pedigree.Pedigree {
	t.Helper()
	loader := pedio.NewLoader(domain.DefaultOptions(), nil)
	ped, err := loader.Load(strings.NewReader(src))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	return ped
}

func TestGenerations(t *testing.T) {
	// 5 sits a generation below 3 even though 4 is still a founder child.
	ped := load(t, "1 0 0\n2 0 0\n3 1 2\n4 1 0\n5 3 4\n")
	if err := Generations(ped); err != nil {
		t.Fatalf("generations: %v", err)
	}
	want := map[int]float64{1: 0, 2: 0, 3: 1, 4: 1, 5: 2}
	for orig, gen := range want {
		a, ok := ped.ByOriginal(orig)
		if !ok {
			t.Fatalf("animal %d missing", orig)
		}
		if a.Generation != gen {
			t.Fatalf("animal %d generation = %v, want %v", orig, a.Generation, gen)
		}
	}
}

func TestGenerationsRequiresRenumbering(t *testing.T) {
	ped := pedigree.New(domain.DefaultOptions(), nil)
	if err := Generations(ped); err == nil {
		t.Fatalf("unrenumbered container must be rejected")
	}
}

func TestAncestorFlags(t *testing.T) {
	ped := load(t, "1 0 0\n2 0 0\n3 1 2\n")
	if err := AncestorFlags(ped); err != nil {
		t.Fatalf("ancestor flags: %v", err)
	}
	for _, orig := range []int{1, 2} {
		a, _ := ped.ByOriginal(orig)
		if !a.Ancestor {
			t.Fatalf("animal %d should carry the ancestor flag", orig)
		}
	}
	leaf, _ := ped.ByOriginal(3)
	if leaf.Ancestor {
		t.Fatalf("terminal animal must not carry the ancestor flag")
	}
}

func TestInferSexes(t *testing.T) {
	ped := load(t, "1 0 0\n2 0 0\n3 1 2\n")
	if err := InferSexes(ped, nil); err != nil {
		t.Fatalf("infer sexes: %v", err)
	}
	sire, _ := ped.ByOriginal(1)
	dam, _ := ped.ByOriginal(2)
	child, _ := ped.ByOriginal(3)
	if sire.Sex != domain.SexMale {
		t.Fatalf("referenced sire should be male, got %q", sire.Sex)
	}
	if dam.Sex != domain.SexFemale {
		t.Fatalf("referenced dam should be female, got %q", dam.Sex)
	}
	if child.Sex != domain.SexUnknown {
		t.Fatalf("unreferenced animal keeps unknown sex, got %q", child.Sex)
	}
}

func TestPostLoadPipeline(t *testing.T) {
	ped := load(t, "1 0 0\n2 0 0\n3 1 2\n4 1 2\n")
	if err := PostLoad(ped, nil); err != nil {
		t.Fatalf("post load: %v", err)
	}
	sire, _ := ped.ByOriginal(1)
	if sire.Sex != domain.SexMale || !sire.Ancestor || sire.Generation != 0 {
		t.Fatalf("pipeline result wrong for sire: %+v", sire)
	}
	if len(sire.SonIDs)+len(sire.DaughterIDs)+len(sire.UnknownIDs) != 2 {
		t.Fatalf("sire should have 2 recorded offspring: %+v", sire)
	}
	child, _ := ped.ByOriginal(3)
	if child.Generation != 1 {
		t.Fatalf("child generation = %v, want 1", child.Generation)
	}
}
