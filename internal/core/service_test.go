package core

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"pedigreecore/internal/blob"
	"pedigreecore/internal/merge"
	"pedigreecore/pkg/domain"
)

const trioInput = "1 0 0\n2 0 0\n3 1 2\n"

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pedigree.txt")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func newTestService(t *testing.T, opts ...ServiceOption) *Service {
	t.Helper()
	return NewInMemoryService(NewDefaultRulesEngine(), opts...)
}

func importTrio(t *testing.T, svc *Service, name string) Pedigree {
	t.Helper()
	opts := domain.DefaultOptions()
	opts.Name = name
	created, _, err := svc.ImportPedigree(context.Background(), strings.NewReader(trioInput), opts)
	if err != nil {
		t.Fatalf("import %s: %v", name, err)
	}
	return created
}

func TestImportPedigreeRegistersRenumberedRecord(t *testing.T) {
	svc := newTestService(t)
	created := importTrio(t, svc, "herd")
	if created.ID == "" || created.Source != domain.SourceFile || !created.Renumbered {
		t.Fatalf("unexpected record %+v", created)
	}
	if len(created.Animals) != 3 {
		t.Fatalf("expected 3 animals, got %d", len(created.Animals))
	}
	if created.Metadata == nil || created.Metadata.TotalAnimals != 3 || created.Metadata.Founders != 2 {
		t.Fatalf("unexpected metadata %+v", created.Metadata)
	}
	got, ok := svc.GetPedigree(created.ID)
	if !ok || got.Name != "herd" {
		t.Fatalf("get after import: %v %+v", ok, got)
	}
	if len(svc.ListPedigrees()) != 1 {
		t.Fatalf("expected one registered pedigree")
	}
}

func TestImportPedigreeFile(t *testing.T) {
	svc := newTestService(t)
	path := writeTempFile(t, trioInput)
	opts := domain.DefaultOptions()
	opts.Name = "from-file"
	created, _, err := svc.ImportPedigreeFile(context.Background(), path, opts)
	if err != nil {
		t.Fatalf("import file: %v", err)
	}
	if len(created.Animals) != 3 {
		t.Fatalf("expected 3 animals, got %d", len(created.Animals))
	}
}

func TestImportPedigreeRejectsMalformedInput(t *testing.T) {
	svc := newTestService(t)
	opts := domain.DefaultOptions()
	opts.Name = "bad"
	_, _, err := svc.ImportPedigree(context.Background(), strings.NewReader("1 0\n"), opts)
	if err == nil {
		t.Fatalf("expected format error for short record")
	}
	if len(svc.ListPedigrees()) != 0 {
		t.Fatalf("failed import must not register anything")
	}
}

func TestSimulatePedigree(t *testing.T) {
	svc := newTestService(t)
	pedOpts := domain.DefaultOptions()
	pedOpts.Name = "synthetic"
	created, run, _, err := svc.SimulatePedigree(context.Background(), domain.DefaultSimOptions(), pedOpts)
	if err != nil {
		t.Fatalf("simulate: %v", err)
	}
	if !run.Reproducible || run.Seed != domain.DefaultSimSeed {
		t.Fatalf("default seed must be reproducible: %+v", run)
	}
	if created.Source != domain.SourceSimulation || len(created.Animals) != run.Generated {
		t.Fatalf("unexpected record %+v vs run %+v", created, run)
	}
	if _, ok := svc.GetPedigree(created.ID); !ok {
		t.Fatalf("simulated pedigree not registered")
	}
}

func TestSimulatePedigreeRejectsImpossibleFounders(t *testing.T) {
	svc := newTestService(t)
	simOpts := domain.DefaultSimOptions()
	simOpts.Total = 5
	simOpts.FounderSires = 5
	_, _, _, err := svc.SimulatePedigree(context.Background(), simOpts, domain.DefaultOptions())
	var cerr domain.ConstraintError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected constraint error, got %v", err)
	}
}

func TestMergePedigreesSetAlgebra(t *testing.T) {
	svc := newTestService(t)
	a := importTrio(t, svc, "left")
	optsB := domain.DefaultOptions()
	optsB.Name = "right"
	b, _, err := svc.ImportPedigree(context.Background(), strings.NewReader("1 0 0\n2 0 0\n4 1 2\n"), optsB)
	if err != nil {
		t.Fatalf("import right: %v", err)
	}

	union, _, err := svc.MergePedigrees(context.Background(), merge.OpUnion, "union", a.ID, b.ID, "")
	if err != nil {
		t.Fatalf("union: %v", err)
	}
	if union.Source != domain.SourceMerge || len(union.Animals) != 4 {
		t.Fatalf("unexpected union %+v", union)
	}

	inter, _, err := svc.MergePedigrees(context.Background(), merge.OpIntersection, "inter", a.ID, b.ID, "asd")
	if err != nil {
		t.Fatalf("intersection: %v", err)
	}
	if len(inter.Animals) != 2 {
		t.Fatalf("expected the two shared founders, got %d", len(inter.Animals))
	}

	diff, _, err := svc.MergePedigrees(context.Background(), merge.OpDifference, "diff", a.ID, b.ID, "asd")
	if err != nil {
		t.Fatalf("difference: %v", err)
	}
	originals := map[int]bool{}
	for _, an := range diff.Animals {
		originals[an.OriginalID] = true
	}
	if !originals[3] || originals[4] {
		t.Fatalf("difference should keep 3 and drop 4: %+v", diff.Animals)
	}
}

func TestMergePedigreesErrors(t *testing.T) {
	svc := newTestService(t)
	a := importTrio(t, svc, "left")

	_, _, err := svc.MergePedigrees(context.Background(), merge.OpUnion, "u", a.ID, "missing", "")
	var nf ErrNotFound
	if !errors.As(err, &nf) {
		t.Fatalf("expected not-found error, got %v", err)
	}

	_, _, err = svc.MergePedigrees(context.Background(), merge.Op("symmetric"), "u", a.ID, a.ID, "")
	var cfg domain.ConfigError
	if !errors.As(err, &cfg) || cfg.Option != "merge_op" {
		t.Fatalf("expected merge_op config error, got %v", err)
	}

	_, _, err = svc.MergePedigrees(context.Background(), merge.OpUnion, "u", a.ID, a.ID, "aq")
	if !errors.As(err, &cfg) {
		t.Fatalf("expected match rule config error, got %v", err)
	}
}

func TestDeletePedigree(t *testing.T) {
	svc := newTestService(t)
	created := importTrio(t, svc, "doomed")
	if _, err := svc.DeletePedigree(context.Background(), created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok := svc.GetPedigree(created.ID); ok {
		t.Fatalf("pedigree still present after delete")
	}
	_, err := svc.DeletePedigree(context.Background(), created.ID)
	var nf ErrNotFound
	if !errors.As(err, &nf) {
		t.Fatalf("expected not-found on second delete, got %v", err)
	}
}

func TestAddAnimal(t *testing.T) {
	svc := newTestService(t)
	created := importTrio(t, svc, "growing")
	updated, _, err := svc.AddAnimal(context.Background(), created.ID, 10, 1, 2)
	if err != nil {
		t.Fatalf("add animal: %v", err)
	}
	if len(updated.Animals) != 4 {
		t.Fatalf("expected 4 animals, got %d", len(updated.Animals))
	}
	found := false
	for _, a := range updated.Animals {
		if a.OriginalID == 10 {
			found = true
		}
	}
	if !found {
		t.Fatalf("new animal missing from record: %+v", updated.Animals)
	}
}

func TestAddAnimalRejectsUndeclaredParent(t *testing.T) {
	svc := newTestService(t)
	created := importTrio(t, svc, "strict")
	_, _, err := svc.AddAnimal(context.Background(), created.ID, 10, 99, 2)
	var cons domain.ConsistencyError
	if !errors.As(err, &cons) {
		t.Fatalf("expected consistency error, got %v", err)
	}
	got, _ := svc.GetPedigree(created.ID)
	if len(got.Animals) != 3 {
		t.Fatalf("failed add must roll back: %+v", got.Animals)
	}
}

func TestRemoveAnimal(t *testing.T) {
	svc := newTestService(t)
	created := importTrio(t, svc, "shrinking")
	updated, _, err := svc.RemoveAnimal(context.Background(), created.ID, 3)
	if err != nil {
		t.Fatalf("remove animal: %v", err)
	}
	if len(updated.Animals) != 2 {
		t.Fatalf("expected 2 animals, got %d", len(updated.Animals))
	}
	for _, a := range updated.Animals {
		if a.OriginalID == 3 {
			t.Fatalf("animal 3 still present")
		}
	}
}

func TestComputeRelationships(t *testing.T) {
	svc := newTestService(t)
	created := importTrio(t, svc, "kin")
	m, err := svc.ComputeRelationships(created.ID)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if m.N != 3 {
		t.Fatalf("expected 3x3 matrix, got %d", m.N)
	}
	if m.At(3, 3) != 1.0 {
		t.Fatalf("offspring of unrelated founders must have diagonal 1, got %v", m.At(3, 3))
	}
	if m.At(1, 3) != 0.5 || m.At(2, 3) != 0.5 {
		t.Fatalf("parent-offspring coefficient must be 0.5: %v %v", m.At(1, 3), m.At(2, 3))
	}
	if m.At(1, 2) != 0 {
		t.Fatalf("founders must be unrelated, got %v", m.At(1, 2))
	}

	if _, err := svc.ComputeRelationships("missing"); err == nil {
		t.Fatalf("expected not-found error")
	}
}

func TestSavePedigree(t *testing.T) {
	svc := newTestService(t)
	created := importTrio(t, svc, "out")
	var buf bytes.Buffer
	if err := svc.SavePedigree(context.Background(), created.ID, &buf, ""); err != nil {
		t.Fatalf("save: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	var records, comments int
	for _, line := range lines {
		if strings.HasPrefix(line, "#") {
			comments++
		} else {
			records++
		}
	}
	if comments != 2 || records != 3 {
		t.Fatalf("expected 2 header lines and 3 records: %q", buf.String())
	}
	if err := svc.SavePedigree(context.Background(), "missing", io.Discard, ""); err == nil {
		t.Fatalf("expected not-found error")
	}
}

func TestArchivePedigree(t *testing.T) {
	archive := blob.NewMemory()
	svc := newTestService(t, WithArchiveStore(archive))
	created := importTrio(t, svc, "vault")

	info, err := svc.ArchivePedigree(context.Background(), created.ID, "dumps/vault.ped")
	if err != nil {
		t.Fatalf("archive: %v", err)
	}
	if info.Size == 0 || info.Metadata["pedigree_id"] != created.ID {
		t.Fatalf("unexpected info %#v", info)
	}
	_, rc, err := archive.Get(context.Background(), "dumps/vault.ped")
	if err != nil {
		t.Fatalf("get archived dump: %v", err)
	}
	data, _ := io.ReadAll(rc)
	_ = rc.Close()
	if len(data) == 0 {
		t.Fatalf("archived dump empty")
	}
}

func TestArchiveRelationships(t *testing.T) {
	archive := blob.NewMemory()
	svc := newTestService(t, WithArchiveStore(archive))
	created := importTrio(t, svc, "kin-vault")

	info, err := svc.ArchiveRelationships(context.Background(), created.ID, "nrm/kin.txt")
	if err != nil {
		t.Fatalf("archive relationships: %v", err)
	}
	if info.Size == 0 {
		t.Fatalf("unexpected info %#v", info)
	}
	_, rc, err := archive.Get(context.Background(), "nrm/kin.txt")
	if err != nil {
		t.Fatalf("get archived matrix: %v", err)
	}
	data, _ := io.ReadAll(rc)
	_ = rc.Close()
	if !strings.HasPrefix(string(data), "3\n") {
		t.Fatalf("matrix text should start with its dimension: %q", string(data))
	}
}

func TestArchiveWithoutStoreFails(t *testing.T) {
	svc := newTestService(t)
	created := importTrio(t, svc, "no-vault")
	var cfg domain.ConfigError
	if _, err := svc.ArchivePedigree(context.Background(), created.ID, "k"); !errors.As(err, &cfg) {
		t.Fatalf("expected config error, got %v", err)
	}
	if _, err := svc.ArchiveRelationships(context.Background(), created.ID, "k"); !errors.As(err, &cfg) {
		t.Fatalf("expected config error, got %v", err)
	}
}
