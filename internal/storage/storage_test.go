package storage

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

// newTestStorage creates a temporary storage for testing.
func newTestStorage(t *testing.T) *Storage {
	t.Helper()

	dir, err := os.MkdirTemp("", "storage-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}

	s, err := New(filepath.Join(dir, "db"))
	if err != nil {
		os.RemoveAll(dir)
		t.Fatalf("failed to create storage: %v", err)
	}

	t.Cleanup(func() {
		s.Close()
		os.RemoveAll(dir)
	})

	return s
}

// put commits key-value pairs in a single batch.
func put(t *testing.T, s *Storage, kv ...string) {
	t.Helper()

	b := s.NewBatch()
	for i := 0; i+1 < len(kv); i += 2 {
		if err := b.Set([]byte(kv[i]), []byte(kv[i+1])); err != nil {
			b.Close()
			t.Fatalf("Set failed: %v", err)
		}
	}

	if err := b.Commit(); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}
}

func TestSetAndGet(t *testing.T) {
	s := newTestStorage(t)

	put(t, s, "test-key", "test-value")

	got, err := s.Get([]byte("test-key"))
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	if !bytes.Equal(got, []byte("test-value")) {
		t.Errorf("Get returned %q, want %q", got, "test-value")
	}
}

func TestGetNonExistent(t *testing.T) {
	s := newTestStorage(t)

	got, err := s.Get([]byte("non-existent"))
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	if got != nil {
		t.Errorf("Get returned %q, want nil", got)
	}
}

func TestDelete(t *testing.T) {
	s := newTestStorage(t)

	put(t, s, "to-delete", "value")

	b := s.NewBatch()
	if err := b.Delete([]byte("to-delete")); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := b.Commit(); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	got, err := s.Get([]byte("to-delete"))
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	if got != nil {
		t.Errorf("Get after Delete returned %q, want nil", got)
	}
}

// TestBatchReadYourWrites verifies pending writes are visible through the batch only.
func TestBatchReadYourWrites(t *testing.T) {
	s := newTestStorage(t)

	b := s.NewBatch()
	defer b.Close()

	if err := b.Set([]byte("k"), []byte("pending")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, err := b.Get([]byte("k"))
	if err != nil {
		t.Fatalf("batch Get failed: %v", err)
	}
	if string(got) != "pending" {
		t.Errorf("batch Get = %q, want pending", got)
	}

	committed, err := s.Get([]byte("k"))
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if committed != nil {
		t.Errorf("uncommitted write leaked to storage: %q", committed)
	}
}

// TestBatchCommitIsAtomic verifies all staged writes land together on Commit.
func TestBatchCommitIsAtomic(t *testing.T) {
	s := newTestStorage(t)

	put(t, s, "old", "x")

	b := s.NewBatch()
	_ = b.Set([]byte("a"), []byte("1"))
	_ = b.Set([]byte("b"), []byte("2"))
	_ = b.Delete([]byte("old"))

	if err := b.Commit(); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	for key, want := range map[string]string{"a": "1", "b": "2"} {
		got, _ := s.Get([]byte(key))
		if string(got) != want {
			t.Errorf("Get(%q) = %q, want %q", key, got, want)
		}
	}

	if got, _ := s.Get([]byte("old")); got != nil {
		t.Errorf("deleted key still present: %q", got)
	}

	if err := b.Commit(); err == nil {
		t.Error("second Commit should fail")
	}
}

// TestBatchCloseDiscards verifies a closed batch leaves storage untouched.
func TestBatchCloseDiscards(t *testing.T) {
	s := newTestStorage(t)

	b := s.NewBatch()
	_ = b.Set([]byte("discarded"), []byte("v"))
	b.Close()
	b.Close()

	got, err := s.Get([]byte("discarded"))
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got != nil {
		t.Errorf("discarded write visible: %q", got)
	}
}

// TestIteratePrefix verifies prefix bounds and key ordering, including batch overlays.
func TestIteratePrefix(t *testing.T) {
	s := newTestStorage(t)

	put(t, s, "p:2", "two", "p:1", "one", "q:1", "other")

	var keys []string
	err := s.IteratePrefix([]byte("p:"), func(key, value []byte) error {
		keys = append(keys, string(key))
		return nil
	})
	if err != nil {
		t.Fatalf("IteratePrefix failed: %v", err)
	}

	if len(keys) != 2 || keys[0] != "p:1" || keys[1] != "p:2" {
		t.Errorf("keys = %v, want [p:1 p:2]", keys)
	}

	b := s.NewBatch()
	defer b.Close()
	_ = b.Set([]byte("p:3"), []byte("three"))
	_ = b.Delete([]byte("p:1"))

	keys = nil
	_ = b.IteratePrefix([]byte("p:"), func(key, value []byte) error {
		keys = append(keys, string(key))
		return nil
	})

	if len(keys) != 2 || keys[0] != "p:2" || keys[1] != "p:3" {
		t.Errorf("batch keys = %v, want [p:2 p:3]", keys)
	}
}

func TestIterateRange(t *testing.T) {
	s := newTestStorage(t)

	put(t, s, "e:1", "v", "e:2", "v", "e:3", "v", "f:1", "v")

	var keys []string
	err := s.IterateRange([]byte("e:2"), PrefixUpperBound([]byte("e:")), func(key, _ []byte) error {
		keys = append(keys, string(key))
		return nil
	})
	if err != nil {
		t.Fatalf("IterateRange failed: %v", err)
	}

	if len(keys) != 2 || keys[0] != "e:2" || keys[1] != "e:3" {
		t.Errorf("keys = %v, want [e:2 e:3]", keys)
	}
}

func TestPrefixUpperBound(t *testing.T) {
	tests := []struct {
		prefix []byte
		want   []byte
	}{
		{[]byte("a:"), []byte("a;")},
		{[]byte{0x01, 0xFF}, []byte{0x02}},
		{[]byte{0xFF, 0xFF}, nil},
	}

	for _, tt := range tests {
		got := PrefixUpperBound(tt.prefix)
		if !bytes.Equal(got, tt.want) {
			t.Errorf("PrefixUpperBound(%x) = %x, want %x", tt.prefix, got, tt.want)
		}
	}
}
