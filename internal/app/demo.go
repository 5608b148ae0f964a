package app

import (
	"fmt"
	"math/rand"

	"github.com/feralbyte/gridclaim/internal/world"
)

// demoFaction is one synthetic faction seeded into an offline world.
type demoFaction struct {
	name    string
	color   uint32
	blobs   int
	radius  int
	players []string
}

var demoFactions = []demoFaction{
	{name: "Crimson Accord", color: 0xC0392B, blobs: 4, radius: 22, players: []string{"vex", "marrow", "oldtom"}},
	{name: "Verdant Pact", color: 0x27AE60, blobs: 3, radius: 26, players: []string{"fern", "bracken"}},
	{name: "Gilded Crown", color: 0xD4AC0D, blobs: 3, radius: 18, players: []string{"midas", "sable", "quill"}},
	{name: "Azure Compact", color: 0x2E86C1, blobs: 4, radius: 20, players: []string{"tide", "skerry"}},
	{name: "Ashen Order", color: 0x7F8C8D, blobs: 2, radius: 30, players: []string{"cinder"}},
	{name: "Violet Reach", color: 0x8E44AD, blobs: 2, radius: 16, players: []string{"iris", "thorn"}},
}

// SeedDemoWorld paints a deterministic offline world: per faction, a handful
// of random-walk blobs with a core tile at each blob seed and painter/
// overpaint variation across the interior. One batch per blob keeps the
// version counter meaningful for cache tests.
func SeedDemoWorld(s *world.Store, seed int64) {
	rng := rand.New(rand.NewSource(seed)) // #nosec G404 -- demo content only
	n := s.N()
	now := uint32(1_700_000_000)

	for _, f := range demoFactions {
		for b := 0; b < f.blobs; b++ {
			cx := f.radius + rng.Intn(n-2*f.radius)
			cy := f.radius + rng.Intn(n-2*f.radius)
			batch := growBlob(rng, f, cx, cy, n, now)
			s.WriteBatch(batch)
		}
	}
}

// growBlob random-walks outward from (cx, cy), claiming roughly radius²
// tiles. The seed tile carries the core flag.
func growBlob(rng *rand.Rand, f demoFaction, cx, cy, n int, now uint32) []world.BatchWrite {
	target := f.radius * f.radius
	batch := make([]world.BatchWrite, 0, target)
	seen := make(map[int]bool, target)

	write := func(x, y int, flags uint8) {
		if x < 0 || x >= n || y < 0 || y >= n || seen[y*n+x] {
			return
		}
		seen[y*n+x] = true
		batch = append(batch, world.BatchWrite{
			X: x, Y: y,
			TileWrite: world.TileWrite{
				Faction:   f.name,
				Color:     f.color,
				Player:    f.players[rng.Intn(len(f.players))],
				Overpaint: uint8(rng.Intn(int(world.MaxOverpaint) + 1)),
				Flags:     flags,
				PaintedAt: now - uint32(rng.Intn(86_400)),
			},
		})
	}

	write(cx, cy, world.FlagCore)
	x, y := cx, cy
	for len(batch) < target {
		switch rng.Intn(4) {
		case 0:
			x++
		case 1:
			x--
		case 2:
			y++
		default:
			y--
		}
		// Leash the walk so the blob stays compact.
		if x < cx-f.radius || x > cx+f.radius {
			x = cx
		}
		if y < cy-f.radius || y > cy+f.radius {
			y = cy
		}
		write(x, y, 0)
	}
	return batch
}

// DemoAlliances splits the demo factions into two blocs for the alliance
// view, keyed by live intern index. Factions the store has never seen are
// skipped.
func DemoAlliances(s *world.Store) map[uint16]uint32 {
	blocs := [2]uint32{0xE07B39, 0x39A0E0}
	out := make(map[uint16]uint32, len(demoFactions))
	for i, f := range demoFactions {
		fi, ok := s.Factions().IndexOf(f.name)
		if !ok || fi >= uint32(world.NoFaction) {
			continue
		}
		out[uint16(fi)] = blocs[i%2]
	}
	return out
}

// DemoFactionNames returns the seeded faction names in declaration order.
func DemoFactionNames() []string {
	out := make([]string, len(demoFactions))
	for i, f := range demoFactions {
		out[i] = f.name
	}
	return out
}

func demoColorHex(name string) string {
	for _, f := range demoFactions {
		if f.name == name {
			return fmt.Sprintf("#%06X", f.color)
		}
	}
	return ""
}
