package devicetoken

import "testing"

func TestDeriveIsOrderIndependent(t *testing.T) {
	a := []byte("device-a-key-material")
	b := []byte("device-b-key-material")

	t1, err := Derive(a, b, "sync-123")
	if err != nil {
		t.Fatalf("Derive: %v", err)
	}
	t2, err := Derive(b, a, "sync-123")
	if err != nil {
		t.Fatalf("Derive: %v", err)
	}
	if string(t1) != string(t2) {
		t.Fatalf("expected order-independent derivation, got %x vs %x", t1, t2)
	}
	if len(t1) != Size {
		t.Fatalf("expected a %d-byte token, got %d", Size, len(t1))
	}
}

func TestDeriveDiffersPerSync(t *testing.T) {
	a := []byte("device-a-key-material")
	b := []byte("device-b-key-material")

	t1, err := Derive(a, b, "sync-1")
	if err != nil {
		t.Fatalf("Derive: %v", err)
	}
	t2, err := Derive(a, b, "sync-2")
	if err != nil {
		t.Fatalf("Derive: %v", err)
	}
	if string(t1) == string(t2) {
		t.Fatalf("expected different syncs to derive different tokens")
	}
}

func TestDeriveDiffersPerKeyPair(t *testing.T) {
	t1, err := Derive([]byte("a"), []byte("b"), "sync")
	if err != nil {
		t.Fatalf("Derive: %v", err)
	}
	t2, err := Derive([]byte("a"), []byte("c"), "sync")
	if err != nil {
		t.Fatalf("Derive: %v", err)
	}
	if string(t1) == string(t2) {
		t.Fatalf("expected different peer keys to derive different tokens")
	}
}
