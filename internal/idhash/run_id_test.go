package idhash

import "testing"

func TestComputeRunIDDeterministic(t *testing.T) {
	a := ComputeRunID("pf-1", 100_000, 42, 1700000000000000000)
	b := ComputeRunID("pf-1", 100_000, 42, 1700000000000000000)
	if a != b {
		t.Fatalf("same inputs produced different IDs: %s vs %s", a, b)
	}
	if len(a) < 40 {
		t.Fatalf("unexpectedly short ID %q", a)
	}
}

func TestComputeRunIDDistinguishesInputs(t *testing.T) {
	base := ComputeRunID("pf-1", 100_000, 42, 1700000000000000000)
	variants := []string{
		ComputeRunID("pf-2", 100_000, 42, 1700000000000000000),
		ComputeRunID("pf-1", 100_001, 42, 1700000000000000000),
		ComputeRunID("pf-1", 100_000, 43, 1700000000000000000),
		ComputeRunID("pf-1", 100_000, 42, 1700000000000000001),
	}
	for i, v := range variants {
		if v == base {
			t.Errorf("variant %d collided with base ID", i)
		}
	}
}
