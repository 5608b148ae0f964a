package cluster

import (
	"testing"

	"github.com/feralbyte/gridclaim/internal/world"
)

func paint(s *world.Store, faction string, cells ...[2]int) {
	batch := make([]world.BatchWrite, 0, len(cells))
	for _, c := range cells {
		batch = append(batch, world.BatchWrite{
			X: c[0], Y: c[1],
			TileWrite: world.TileWrite{Faction: faction, Color: 0x808080},
		})
	}
	s.WriteBatch(batch)
}

// The worked example: on a 4x4 grid, "A" owns an L-shape of 3 cells and "B"
// owns a single far cell.
func TestEngine_WorkedExample(t *testing.T) {
	s := world.NewStore(4)
	paint(s, "A", [2]int{0, 0}, [2]int{0, 1}, [2]int{1, 0})
	paint(s, "B", [2]int{3, 3})
	e := NewEngine(s.Reader())

	resA := e.Territory("A")
	if len(resA.Clusters) != 1 || resA.Clusters[0].Tiles != 3 {
		t.Fatalf("A: %d clusters %v, want one cluster of 3", len(resA.Clusters), resA.Clusters)
	}
	if len(resA.Borders) != 8 {
		t.Fatalf("A: %d border edges, want 8 (L-shape perimeter)", len(resA.Borders))
	}

	resB := e.Territory("B")
	if len(resB.Clusters) != 1 || resB.Clusters[0].Tiles != 1 {
		t.Fatalf("B: %v, want one cluster of 1", resB.Clusters)
	}
	if len(resB.Borders) != 4 {
		t.Fatalf("B: %d border edges, want 4", len(resB.Borders))
	}
}

func TestEngine_DiagonalTouchIsOneCluster(t *testing.T) {
	s := world.NewStore(8)
	// Two 2x1 groups meeting only at the corner (1,1)-(2,2): 8-adjacent.
	paint(s, "f", [2]int{0, 1}, [2]int{1, 1}, [2]int{2, 2}, [2]int{3, 2})
	e := NewEngine(s.Reader())
	if res := e.Territory("f"); len(res.Clusters) != 1 {
		t.Fatalf("diagonally touching groups reported as %d clusters, want 1", len(res.Clusters))
	}

	// Push the second group one cell away: no shared corner, two clusters.
	s2 := world.NewStore(8)
	paint(s2, "f", [2]int{0, 1}, [2]int{1, 1}, [2]int{3, 3}, [2]int{4, 3})
	e2 := NewEngine(s2.Reader())
	if res := e2.Territory("f"); len(res.Clusters) != 2 {
		t.Fatalf("separated groups reported as %d clusters, want 2", len(res.Clusters))
	}
}

func TestEngine_PrimaryPrefersCore(t *testing.T) {
	s := world.NewStore(16)
	// 10-tile coreless strip.
	big := make([][2]int, 0, 10)
	for x := 0; x < 10; x++ {
		big = append(big, [2]int{x, 0})
	}
	paint(s, "f", big...)
	// 4-tile square far away, one cell carrying the core flag.
	paint(s, "f", [2]int{12, 10}, [2]int{13, 10}, [2]int{12, 11})
	s.Write(13, 11, world.TileWrite{Faction: "f", Color: 0x808080, Flags: world.FlagCore})

	e := NewEngine(s.Reader())
	res := e.Territory("f")
	if len(res.Clusters) != 2 {
		t.Fatalf("%d clusters, want 2", len(res.Clusters))
	}
	prim, ok := Primary(res.Clusters)
	if !ok {
		t.Fatal("primary should exist")
	}
	if prim.Tiles != 4 || !prim.HasCore {
		t.Fatalf("primary = %+v, want the 4-tile core cluster", prim)
	}
	// Centroid of the 2x2 square at (12..13, 10..11).
	if prim.CentroidX != 12.5 || prim.CentroidY != 10.5 {
		t.Fatalf("primary centroid (%f,%f), want (12.5,10.5)", prim.CentroidX, prim.CentroidY)
	}
}

func TestEngine_PrimaryLargestWithoutCore(t *testing.T) {
	clusters := []Cluster{
		{Tiles: 4},
		{Tiles: 9},
		{Tiles: 2},
	}
	prim, ok := Primary(clusters)
	if !ok || prim.Tiles != 9 {
		t.Fatalf("primary = %+v, want the 9-tile cluster", prim)
	}

	if _, ok := Primary(nil); ok {
		t.Fatal("empty territory has no primary")
	}
}

func TestEngine_PrimaryLargestAmongCoreBearers(t *testing.T) {
	clusters := []Cluster{
		{Tiles: 30},
		{Tiles: 5, HasCore: true},
		{Tiles: 12, HasCore: true},
	}
	prim, _ := Primary(clusters)
	if prim.Tiles != 12 {
		t.Fatalf("primary = %+v, want the 12-tile core cluster", prim)
	}
}

func TestEngine_ZeroTilesIsEmptyNotError(t *testing.T) {
	s := world.NewStore(4)
	e := NewEngine(s.Reader())
	res := e.Territory("nobody")
	if len(res.Clusters) != 0 || len(res.Borders) != 0 {
		t.Fatalf("unknown faction should yield empty lists, got %+v", res)
	}
}

func TestEngine_CacheHitOnSameVersion(t *testing.T) {
	s := world.NewStore(8)
	paint(s, "f", [2]int{1, 1}, [2]int{2, 1})
	e := NewEngine(s.Reader())

	r1 := e.Territory("f")
	r2 := e.Territory("f")
	if r1 != r2 {
		t.Fatal("same-version query must return the cached result without recomputation")
	}

	// A write invalidates through the version key alone.
	s.Write(5, 5, world.TileWrite{Faction: "f", Color: 1})
	r3 := e.Territory("f")
	if r3 == r1 {
		t.Fatal("stale result returned after a version bump")
	}
	if r3.Clusters[1].Tiles+r3.Clusters[0].Tiles != 3 {
		t.Fatalf("recomputed territory wrong: %+v", r3.Clusters)
	}
}

func TestEngine_AsyncQuery(t *testing.T) {
	s := world.NewStore(8)
	paint(s, "f", [2]int{0, 0})
	e := NewEngine(s.Reader())

	res := <-e.Query("f")
	if res == nil || len(res.Clusters) != 1 {
		t.Fatalf("async query result %+v", res)
	}
}

func TestEngine_BorderSidesOfIsolatedTile(t *testing.T) {
	s := world.NewStore(4)
	paint(s, "f", [2]int{2, 2})
	e := NewEngine(s.Reader())
	res := e.Territory("f")

	seen := map[Side]bool{}
	for _, b := range res.Borders {
		if b.X != 2 || b.Y != 2 {
			t.Fatalf("edge on wrong cell: %+v", b)
		}
		seen[b.Side] = true
	}
	if len(seen) != 4 {
		t.Fatalf("isolated tile should border on all 4 sides, got %v", seen)
	}
}
