package workermem

import "testing"

func TestAllocZero(t *testing.T) {
	a := New()
	if addr := a.Alloc(0); addr != 0 {
		t.Errorf("Alloc(0) = %#x, want 0", addr)
	}
}

func TestReadWriteRoundtrip(t *testing.T) {
	a := New()
	addr := a.Alloc(64)
	if addr == 0 {
		t.Fatal("Alloc returned 0 for non-zero size")
	}

	want := []byte("hello, veostub")
	if err := a.Write(addr, want); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	got, err := a.Read(addr, uint64(len(want)))
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if string(got) != string(want) {
		t.Errorf("Read() = %q, want %q", got, want)
	}
}

func TestReadWriteUnknownAddress(t *testing.T) {
	a := New()

	if _, err := a.Read(0xdead, 8); err == nil {
		t.Error("Read of unknown address should fail")
	}
	if err := a.Write(0xdead, []byte("x")); err == nil {
		t.Error("Write to unknown address should fail")
	}
}

func TestOverrunRejected(t *testing.T) {
	a := New()
	addr := a.Alloc(4)

	if err := a.Write(addr, []byte("toolong")); err == nil {
		t.Error("Write beyond allocation size should fail")
	}
	if _, err := a.Read(addr, 100); err == nil {
		t.Error("Read beyond allocation size should fail")
	}
}

func TestFreeThenReuse(t *testing.T) {
	a := New()
	addr := a.Alloc(16)
	a.Free(addr)

	if _, err := a.Read(addr, 1); err == nil {
		t.Error("Read of freed address should fail")
	}

	// Freeing twice, or freeing 0, is a no-op.
	a.Free(addr)
	a.Free(0)
}

func TestAddressesAreUnique(t *testing.T) {
	a := New()
	seen := make(map[uint64]bool)
	for i := 0; i < 256; i++ {
		addr := a.Alloc(8)
		if seen[addr] {
			t.Fatalf("duplicate address %#x issued", addr)
		}
		seen[addr] = true
	}
	if a.Len() != 256 {
		t.Errorf("Len() = %d, want 256", a.Len())
	}
}
