package world

import "testing"

func TestInternTable_Idempotent(t *testing.T) {
	tab := NewInternTable()
	a1 := tab.Intern("alpha")
	b := tab.Intern("beta")
	a2 := tab.Intern("alpha")

	if a1 != a2 {
		t.Fatalf("re-interning alpha gave %d then %d", a1, a2)
	}
	if a1 == b {
		t.Fatal("distinct ids must not share an index")
	}
	if tab.Len() != 2 {
		t.Fatalf("table length %d, want 2 (growth only on first occurrence)", tab.Len())
	}
}

func TestInternTable_DenseIndices(t *testing.T) {
	tab := NewInternTable()
	for i, id := range []string{"a", "b", "c", "d"} {
		if got := tab.Intern(id); got != uint32(i) {
			t.Fatalf("Intern(%q) = %d, want %d", id, got, i)
		}
	}
	for i, id := range []string{"a", "b", "c", "d"} {
		name, ok := tab.Lookup(uint32(i))
		if !ok || name != id {
			t.Fatalf("Lookup(%d) = %q,%v, want %q", i, name, ok, id)
		}
	}
}

func TestInternTable_LookupUnknown(t *testing.T) {
	tab := NewInternTable()
	tab.Intern("only")
	if _, ok := tab.Lookup(7); ok {
		t.Fatal("lookup of an unassigned index must fail")
	}
	if _, ok := tab.IndexOf("missing"); ok {
		t.Fatal("IndexOf of an unknown id must fail")
	}
}

func TestInternTable_SeedReservesIndexZero(t *testing.T) {
	tab := NewInternTable("")
	if idx := tab.Intern("first-real"); idx != 1 {
		t.Fatalf("seeded table should hand out 1 first, got %d", idx)
	}
}

func TestInternTable_SnapshotsAreStable(t *testing.T) {
	tab := NewInternTable()
	tab.Intern("x")
	names := tab.Names()
	tab.Intern("y")
	// The earlier snapshot must be unaffected by later appends.
	if len(names) != 1 || names[0] != "x" {
		t.Fatalf("published snapshot mutated: %v", names)
	}
}
