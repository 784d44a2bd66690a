package uring

import "testing"

func TestRegistry_ReleaseIsIdempotent(t *testing.T) {
	g := newRegistry()
	g.pinMutable(1, make([]byte, 8))
	if !g.pinned(1) {
		t.Fatal("expected id 1 to be pinned")
	}

	g.release(1)
	if g.pinned(1) {
		t.Fatal("expected id 1 to be released")
	}

	// Releasing an absent key is a no-op, never a double-free.
	g.release(1)
	g.release(42)
	if g.size() != 0 {
		t.Fatalf("size = %d, want 0", g.size())
	}
}

func TestRegistry_PinOverwrites(t *testing.T) {
	g := newRegistry()
	g.pinMutable(1, []byte("first"))
	g.pinMutable(1, []byte("second"))

	if g.size() != 1 {
		t.Fatalf("size = %d, want 1", g.size())
	}
	if string(g.mutable[1]) != "second" {
		t.Fatalf("mutable[1] = %q, want %q", g.mutable[1], "second")
	}
}

func TestRegistry_ReleaseCoversAllKinds(t *testing.T) {
	g := newRegistry()
	g.pinMutable(1, make([]byte, 4))
	g.pinImmutable(1, make([]byte, 4))
	g.pinPath(1, []byte("p\x00"))
	g.pinTimespec(1, &Timespec{Sec: 1})
	sa, err := V4("127.0.0.1", 80)
	if err != nil {
		t.Fatal(err)
	}
	g.pinAddr(1, sa)

	g.release(1)
	if g.size() != 0 {
		t.Fatalf("size = %d, want 0 after release across kinds", g.size())
	}
}

func TestRegistry_ClearAll(t *testing.T) {
	g := newRegistry()
	g.pinMutable(1, make([]byte, 4))
	g.pinImmutable(2, make([]byte, 4))
	g.pinTimespec(3, &Timespec{})

	g.clearAll()
	if g.size() != 0 {
		t.Fatalf("size = %d, want 0 after clearAll", g.size())
	}
}
