package state

import (
	"testing"

	"fytemarket/storage"
)

type record struct {
	Name  string `json:"name"`
	Count uint64 `json:"count"`
}

func TestKVRoundTrip(t *testing.T) {
	m := NewManager(storage.NewMemDB())

	in := record{Name: "spot", Count: 3}
	if err := m.KVPut([]byte("test/record"), &in); err != nil {
		t.Fatalf("put failed: %v", err)
	}

	var out record
	ok, err := m.KVGet([]byte("test/record"), &out)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if !ok {
		t.Fatalf("expected record to exist")
	}
	if out != in {
		t.Fatalf("round trip mismatch: got %+v want %+v", out, in)
	}
}

func TestKVGetMissing(t *testing.T) {
	m := NewManager(storage.NewMemDB())

	var out record
	ok, err := m.KVGet([]byte("test/missing"), &out)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if ok {
		t.Fatalf("expected missing key to report !ok")
	}
}

func TestKVDelete(t *testing.T) {
	m := NewManager(storage.NewMemDB())

	if err := m.KVPut([]byte("test/record"), &record{Name: "x"}); err != nil {
		t.Fatalf("put failed: %v", err)
	}
	if err := m.KVDelete([]byte("test/record")); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	ok, err := m.KVGet([]byte("test/record"), nil)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if ok {
		t.Fatalf("expected record to be gone after delete")
	}
	if err := m.KVDelete([]byte("test/record")); err != nil {
		t.Fatalf("deleting a missing key should succeed: %v", err)
	}
}

func TestKVEmptyKeyRejected(t *testing.T) {
	m := NewManager(storage.NewMemDB())

	if err := m.KVPut(nil, &record{}); err == nil {
		t.Fatalf("expected error for empty key")
	}
	if _, err := m.KVGet(nil, nil); err == nil {
		t.Fatalf("expected error for empty key")
	}
}
