package hashing

import "testing"

func TestContentDigest_Deterministic(t *testing.T) {
	data := []byte("same bytes, same digest")

	d1 := ContentDigest(data)
	d2 := ContentDigest(data)

	if d1 != d2 {
		t.Errorf("ContentDigest should be deterministic: got %s and %s", d1, d2)
	}
	if len(d1) != 64 {
		t.Errorf("expected 64 hex chars, got %d", len(d1))
	}
}

func TestContentDigest_DifferentInputs(t *testing.T) {
	d1 := ContentDigest([]byte("file a"))
	d2 := ContentDigest([]byte("file b"))

	if d1 == d2 {
		t.Error("different inputs should produce different digests")
	}
}

func TestRandomHex(t *testing.T) {
	t1, err := RandomHex(16)
	if err != nil {
		t.Fatal(err)
	}
	t2, err := RandomHex(16)
	if err != nil {
		t.Fatal(err)
	}

	if len(t1) != 32 {
		t.Errorf("expected 32 hex chars, got %d", len(t1))
	}
	if t1 == t2 {
		t.Error("two random tokens should not collide")
	}
}
