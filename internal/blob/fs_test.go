package blob

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newFSStore(t *testing.T) *FilesystemStore {
	t.Helper()
	store, err := NewFilesystem(t.TempDir())
	if err != nil {
		t.Fatalf("new filesystem store: %v", err)
	}
	return store
}

func TestFilesystemStoreRoundTrip(t *testing.T) {
	store := newFSStore(t)
	ctx := context.Background()
	if store.Driver() != DriverFilesystem {
		t.Fatalf("expected fs driver, got %s", store.Driver())
	}
	info, err := store.Put(ctx, "dumps/herd.ped", bytes.NewReader([]byte("1 0 0\n2 1 0\n")), PutOptions{
		ContentType: "text/plain",
		Metadata:    map[string]string{"pedigree_id": "herd"},
	})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.Size != 12 || info.ETag == "" {
		t.Fatalf("unexpected info %#v", info)
	}

	head, err := store.Head(ctx, "dumps/herd.ped")
	if err != nil {
		t.Fatalf("head: %v", err)
	}
	if head.ETag != info.ETag || head.Metadata["pedigree_id"] != "herd" {
		t.Fatalf("head mismatch: %#v", head)
	}

	got, rc, err := store.Get(ctx, "dumps/herd.ped")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	data, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(data) != "1 0 0\n2 1 0\n" {
		t.Fatalf("body mismatch: %q", string(data))
	}
	if got.ContentType != "text/plain" {
		t.Fatalf("content type lost: %#v", got)
	}
}

func TestFilesystemStorePutIsCreateOnly(t *testing.T) {
	store := newFSStore(t)
	ctx := context.Background()
	if _, err := store.Put(ctx, "k.txt", bytes.NewReader([]byte("one")), PutOptions{}); err != nil {
		t.Fatalf("first put: %v", err)
	}
	if _, err := store.Put(ctx, "k.txt", bytes.NewReader([]byte("two")), PutOptions{}); err == nil {
		t.Fatalf("expected duplicate put to fail")
	}
}

func TestFilesystemStoreRejectsTraversalKeys(t *testing.T) {
	store := newFSStore(t)
	ctx := context.Background()
	for _, key := range []string{"", "  ", "/abs/path", "../escape", "a/../../b", "a/..b/../../c"} {
		if _, err := store.Put(ctx, key, bytes.NewReader(nil), PutOptions{}); err == nil {
			t.Fatalf("expected key %q to be rejected", key)
		}
	}
}

func TestFilesystemStoreListAndDelete(t *testing.T) {
	store := newFSStore(t)
	ctx := context.Background()
	for _, key := range []string{"nrm/a.bin", "nrm/b.bin", "dumps/a.ped"} {
		if _, err := store.Put(ctx, key, bytes.NewReader([]byte(key)), PutOptions{}); err != nil {
			t.Fatalf("put %s: %v", key, err)
		}
	}
	list, err := store.List(ctx, "nrm/")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].Key != "nrm/a.bin" || list[1].Key != "nrm/b.bin" {
		t.Fatalf("unexpected list %+v", list)
	}

	ok, err := store.Delete(ctx, "nrm/a.bin")
	if err != nil || !ok {
		t.Fatalf("delete existing: %v %v", ok, err)
	}
	ok, err = store.Delete(ctx, "nrm/a.bin")
	if err != nil || ok {
		t.Fatalf("delete absent should report false: %v %v", ok, err)
	}
	if _, _, err := store.Get(ctx, "nrm/a.bin"); err == nil {
		t.Fatalf("expected get to fail after delete")
	}
}

func TestFilesystemStoreSidecarOnDisk(t *testing.T) {
	root := t.TempDir()
	store, err := NewFilesystem(root)
	if err != nil {
		t.Fatalf("new filesystem store: %v", err)
	}
	if _, err := store.Put(context.Background(), "x.txt", bytes.NewReader([]byte("x")), PutOptions{ContentType: "text/plain"}); err != nil {
		t.Fatalf("put: %v", err)
	}
	b, err := os.ReadFile(filepath.Join(root, "x.txt.meta"))
	if err != nil {
		t.Fatalf("read sidecar: %v", err)
	}
	if !strings.Contains(string(b), "text/plain") {
		t.Fatalf("sidecar missing content type: %s", string(b))
	}
}

func TestFilesystemStorePresign(t *testing.T) {
	store := newFSStore(t)
	ctx := context.Background()
	url, err := store.PresignURL(ctx, "k.txt", SignedURLOptions{})
	if err != nil || !strings.Contains(url, "k.txt") {
		t.Fatalf("presign: %v %s", err, url)
	}
	if _, err := store.PresignURL(ctx, "k.txt", SignedURLOptions{Method: "PUT"}); err == nil {
		t.Fatalf("expected PUT presign to be unsupported")
	}
}
