package pedio

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"pedigreecore/pkg/domain"
)

func TestSaveWritesOriginalIdentitySpace(t *testing.T) {
	src := "30 10 20\n10 0 0\n20 0 0\n"
	loader := NewLoader(domain.DefaultOptions(), nil)
	ped, err := loader.Load(strings.NewReader(src))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	var buf bytes.Buffer
	saver := NewSaver(domain.DefaultOptions(), nil)
	if err := saver.Save(&buf, ped, "asd", nil); err != nil {
		t.Fatalf("save: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "30 10 20") {
		t.Fatalf("parent references must be written in original space:\n%s", out)
	}
	for _, line := range strings.Split(out, "\n") {
		if strings.HasPrefix(line, "#") || line == "" {
			continue
		}
		if len(strings.Fields(line)) != 3 {
			t.Fatalf("unexpected field count in %q", line)
		}
	}
}

func TestSaveRoundTrips(t *testing.T) {
	src := "1 0 0\n2 0 0\n3 1 2\n"
	loader := NewLoader(domain.DefaultOptions(), nil)
	ped, err := loader.Load(strings.NewReader(src))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	var buf bytes.Buffer
	saver := NewSaver(domain.DefaultOptions(), nil)
	if err := saver.Save(&buf, ped, "asd", nil); err != nil {
		t.Fatalf("save: %v", err)
	}
	reloaded, err := loader.Load(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.Len() != ped.Len() {
		t.Fatalf("round trip changed record count: %d -> %d", ped.Len(), reloaded.Len())
	}
}

func TestSaveSubset(t *testing.T) {
	src := "1 0 0\n2 0 0\n3 1 2\n"
	loader := NewLoader(domain.DefaultOptions(), nil)
	ped, err := loader.Load(strings.NewReader(src))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	var buf bytes.Buffer
	saver := NewSaver(domain.DefaultOptions(), nil)
	if err := saver.Save(&buf, ped, "asd", map[int]bool{1: true, 3: true}); err != nil {
		t.Fatalf("save subset: %v", err)
	}
	var records int
	for _, line := range strings.Split(buf.String(), "\n") {
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		records++
	}
	if records != 2 {
		t.Fatalf("subset save should emit 2 records, got %d", records)
	}
}

func TestSaveFileAppend(t *testing.T) {
	src := "1 0 0\n"
	loader := NewLoader(domain.DefaultOptions(), nil)
	ped, err := loader.Load(strings.NewReader(src))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	path := filepath.Join(t.TempDir(), "out.ped")
	saver := NewSaver(domain.DefaultOptions(), nil)
	if err := saver.SaveFile(path, ped, "asd", nil, false); err != nil {
		t.Fatalf("save file: %v", err)
	}
	if err := saver.SaveFile(path, ped, "asd", nil, true); err != nil {
		t.Fatalf("append save: %v", err)
	}
	data, err := os.ReadFile(path) // #nosec G304
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if got := strings.Count(string(data), "# format asd"); got != 2 {
		t.Fatalf("append should retain both headers, found %d", got)
	}
}
