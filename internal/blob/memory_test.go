package blob

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
)

func TestMemoryStorePutGetRoundTrip(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()
	if store.Driver() != DriverMemory {
		t.Fatalf("expected memory driver, got %s", store.Driver())
	}
	info, err := store.Put(ctx, "dumps/ped.txt", bytes.NewReader([]byte("pedigree dump")), PutOptions{
		ContentType: "text/plain",
		Metadata:    map[string]string{"pedigree_id": "p1"},
	})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.Key != "dumps/ped.txt" || info.Size != 13 || info.ContentType != "text/plain" {
		t.Fatalf("unexpected info %#v", info)
	}
	got, rc, err := store.Get(ctx, "dumps/ped.txt")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	data, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(data) != "pedigree dump" {
		t.Fatalf("body mismatch: %q", string(data))
	}
	if got.Metadata["pedigree_id"] != "p1" {
		t.Fatalf("metadata lost: %#v", got.Metadata)
	}
}

func TestMemoryStorePutIsCreateOnly(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()
	if _, err := store.Put(ctx, "k", bytes.NewReader([]byte("one")), PutOptions{}); err != nil {
		t.Fatalf("first put: %v", err)
	}
	if _, err := store.Put(ctx, "k", bytes.NewReader([]byte("two")), PutOptions{}); err == nil {
		t.Fatalf("expected duplicate put to fail")
	}
	_, rc, err := store.Get(ctx, "k")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	data, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(data) != "one" {
		t.Fatalf("duplicate put overwrote content: %q", string(data))
	}
}

func TestMemoryStoreDeleteAndList(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()
	for _, key := range []string{"a/1", "a/2", "b/1"} {
		if _, err := store.Put(ctx, key, bytes.NewReader([]byte(key)), PutOptions{}); err != nil {
			t.Fatalf("put %s: %v", key, err)
		}
	}
	list, err := store.List(ctx, "a/")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].Key != "a/1" || list[1].Key != "a/2" {
		t.Fatalf("unexpected list %+v", list)
	}
	ok, err := store.Delete(ctx, "a/1")
	if err != nil || !ok {
		t.Fatalf("delete existing: %v %v", ok, err)
	}
	ok, err = store.Delete(ctx, "a/1")
	if err != nil || ok {
		t.Fatalf("delete absent should report false: %v %v", ok, err)
	}
	if _, err := store.Head(ctx, "a/1"); err == nil {
		t.Fatalf("expected head to fail after delete")
	}
}

func TestMemoryStorePresignUnsupported(t *testing.T) {
	store := NewMemory()
	if _, err := store.PresignURL(context.Background(), "k", SignedURLOptions{}); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
}
