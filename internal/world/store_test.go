package world

import "testing"

func TestStore_WriteReadRoundTrip(t *testing.T) {
	s := NewStore(8)
	w := TileWrite{
		Faction:   "crimson",
		Color:     0xAA3311,
		Player:    "ada",
		Overpaint: 3,
		Flags:     FlagCore,
		Expiry:    1234.5,
		PaintedAt: 99,
	}
	s.Write(2, 5, w)

	rec, ok := s.Reader().Read(2, 5)
	if !ok {
		t.Fatal("expected a tile at (2,5)")
	}
	if rec.ColorRGB != w.Color || rec.Overpaint != w.Overpaint || rec.Flags != w.Flags {
		t.Fatalf("fields not reproduced: %+v", rec)
	}
	if rec.Expiry != w.Expiry || rec.PaintedAt != w.PaintedAt {
		t.Fatalf("timestamps not reproduced: %+v", rec)
	}
	if !rec.Owned() || !rec.IsCore() || rec.CorePending() {
		t.Fatalf("flag helpers wrong: %+v", rec)
	}
	name, ok := s.Factions().Lookup(uint32(rec.FactionIndex))
	if !ok || name != "crimson" {
		t.Fatalf("faction recovered as %q, want crimson", name)
	}
	painter, ok := s.Players().Lookup(rec.PaintedBy)
	if !ok || painter != "ada" {
		t.Fatalf("painter recovered as %q, want ada", painter)
	}
}

func TestStore_OutOfRangeIsSilentNoOp(t *testing.T) {
	s := NewStore(4)
	before := s.Version()

	for _, pt := range [][2]int{{-1, 0}, {0, -1}, {4, 0}, {0, 4}, {-5, 9}} {
		s.Write(pt[0], pt[1], TileWrite{Faction: "ghost", Color: 1})
		if _, ok := s.Reader().Read(pt[0], pt[1]); ok {
			t.Fatalf("read at (%d,%d) should report no tile", pt[0], pt[1])
		}
	}
	if s.Version() != before {
		t.Fatalf("out-of-range writes changed version %d -> %d", before, s.Version())
	}
}

func TestStore_UnownedDefault(t *testing.T) {
	s := NewStore(3)
	rec, ok := s.Reader().Read(1, 1)
	if !ok {
		t.Fatal("in-range read should succeed")
	}
	if rec.Owned() {
		t.Fatalf("fresh cell should be unowned, got faction %d", rec.FactionIndex)
	}
	if s.Reader().FactionIndexAt(1, 1) != NoFaction {
		t.Fatal("FactionIndexAt should return the sentinel for fresh cells")
	}
}

func TestStore_VersionMonotonic(t *testing.T) {
	s := NewStore(4)
	v0 := s.Version()

	s.Write(0, 0, TileWrite{Faction: "a", Color: 1})
	v1 := s.Version()
	if v1 <= v0 {
		t.Fatalf("write did not raise version: %d -> %d", v0, v1)
	}

	s.WriteBatch([]BatchWrite{
		{X: 1, Y: 1, TileWrite: TileWrite{Faction: "a", Color: 1}},
		{X: 2, Y: 2, TileWrite: TileWrite{Faction: "b", Color: 2}},
		{X: 9, Y: 9, TileWrite: TileWrite{Faction: "c", Color: 3}}, // out of range
	})
	v2 := s.Version()
	if v2 != v1+1 {
		t.Fatalf("batch should bump version exactly once: %d -> %d", v1, v2)
	}

	// A batch with nothing in range applies nothing.
	s.WriteBatch([]BatchWrite{{X: -1, Y: -1, TileWrite: TileWrite{Faction: "d"}}})
	if s.Version() != v2 {
		t.Fatal("all-out-of-range batch must not bump version")
	}
}

func TestStore_ClearToUnowned(t *testing.T) {
	s := NewStore(4)
	s.Write(1, 2, TileWrite{Faction: "a", Color: 0x112233, Player: "p"})
	s.Write(1, 2, TileWrite{}) // empty faction clears the cell
	rec, _ := s.Reader().Read(1, 2)
	if rec.Owned() {
		t.Fatalf("cell should be unowned after clear, got %+v", rec)
	}
	if rec.PaintedBy != NoPlayer {
		t.Fatalf("painter should reset with the cell, got %d", rec.PaintedBy)
	}
}

func TestStore_HotPathReadersMatchUnpack(t *testing.T) {
	s := NewStore(6)
	s.Write(3, 4, TileWrite{Faction: "f", Color: 0x00CCAA, Player: "q", Overpaint: 2, Flags: FlagPending})
	r := s.Reader()
	rec, _ := r.Read(3, 4)

	if r.FactionIndexAt(3, 4) != rec.FactionIndex {
		t.Fatal("FactionIndexAt disagrees with Read")
	}
	if r.ColorAt(3, 4) != rec.ColorRGB {
		t.Fatal("ColorAt disagrees with Read")
	}
	if r.PainterAt(3, 4) != rec.PaintedBy {
		t.Fatal("PainterAt disagrees with Read")
	}
	if r.OverpaintAt(3, 4) != rec.Overpaint {
		t.Fatal("OverpaintAt disagrees with Read")
	}
	if r.FlagsAt(3, 4) != rec.Flags {
		t.Fatal("FlagsAt disagrees with Read")
	}
}
