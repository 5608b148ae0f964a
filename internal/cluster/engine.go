// Package cluster answers territory-shape queries: connected components of
// same-faction tiles for label placement, and boundary edges for outlines.
package cluster

import (
	"runtime"

	"golang.org/x/sync/syncmap"

	"github.com/feralbyte/gridclaim/internal/world"
)

// Side tags a border edge with the cell side it lies on.
type Side uint8

const (
	SideTop Side = iota
	SideBottom
	SideLeft
	SideRight
)

// Cluster is one maximal 8-connected group of same-faction tiles.
type Cluster struct {
	CentroidX float64
	CentroidY float64
	Tiles     int
	HasCore   bool
}

// BorderEdge is a unit lattice segment where a faction tile meets a
// non-same-faction neighbour or the grid edge.
type BorderEdge struct {
	X, Y int // the owned cell
	Side Side
}

// Result is the territory analysis of one faction at one store version.
type Result struct {
	Faction  string
	Version  uint64
	Clusters []Cluster
	Borders  []BorderEdge
}

// Engine computes and caches territory analyses over a store reader.
// Queries are independent and answered in isolation; results are memoized per
// faction and keyed by the store version, so "did anything change" is a
// single integer comparison instead of a 250k-cell rescan.
type Engine struct {
	reader world.Reader
	cache  syncmap.Map // faction string -> *Result
	sem    chan struct{}
}

// NewEngine creates an engine with the async query pool bounded by the
// available cores.
func NewEngine(r world.Reader) *Engine {
	n := runtime.NumCPU()
	if n < 1 {
		n = 1
	}
	return &Engine{reader: r, sem: make(chan struct{}, n)}
}

// Territory returns the clusters and border edges of faction. The cached
// result is returned when its version matches the store's current version;
// otherwise a full recomputation replaces the cache entry. A faction owning
// zero tiles yields empty lists, not an error.
//
// The scan is a point-in-time read of a store that may mutate concurrently;
// a slightly stale result self-corrects on the next query, which the version
// mismatch re-triggers.
func (e *Engine) Territory(faction string) *Result {
	version := e.reader.Version()
	if v, ok := e.cache.Load(faction); ok {
		if res := v.(*Result); res.Version == version {
			return res
		}
	}
	res := e.compute(faction, version)
	e.cache.Store(faction, res)
	return res
}

// Query answers asynchronously on the returned channel. The caller receives a
// deferred result and is never blocked on the computation.
func (e *Engine) Query(faction string) <-chan *Result {
	out := make(chan *Result, 1)
	go func() {
		e.sem <- struct{}{}
		defer func() { <-e.sem }()
		out <- e.Territory(faction)
	}()
	return out
}

// Primary selects the cluster to label: prefer core-bearing clusters, then
// most tiles. ok is false for an empty territory.
func Primary(clusters []Cluster) (Cluster, bool) {
	best := -1
	for i, c := range clusters {
		if best < 0 {
			best = i
			continue
		}
		b := clusters[best]
		switch {
		case c.HasCore && !b.HasCore:
			best = i
		case c.HasCore == b.HasCore && c.Tiles > b.Tiles:
			best = i
		}
	}
	if best < 0 {
		return Cluster{}, false
	}
	return clusters[best], true
}

// eightNeighbours is the 8-connectivity stencil for clustering.
var eightNeighbours = [8][2]int{
	{-1, -1}, {0, -1}, {1, -1},
	{-1, 0}, {1, 0},
	{-1, 1}, {0, 1}, {1, 1},
}

func (e *Engine) compute(faction string, version uint64) *Result {
	res := &Result{Faction: faction, Version: version}
	fi32, ok := e.reader.Factions().IndexOf(faction)
	if !ok || fi32 >= uint32(world.NoFaction) {
		return res // unknown faction owns nothing
	}
	fi := uint16(fi32)
	n := e.reader.N()
	r := e.reader

	// One store scan collects the owned set; BFS then walks it without
	// touching unowned cells again.
	owned := make([]bool, n*n)
	var cells []int
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			if r.FactionIndexAt(x, y) == fi {
				owned[y*n+x] = true
				cells = append(cells, y*n+x)
			}
		}
	}
	if len(cells) == 0 {
		return res
	}

	// Iterative BFS over 8-connected neighbours; each component becomes one
	// cluster.
	visited := make([]bool, n*n)
	queue := make([]int, 0, 256)
	for _, start := range cells {
		if visited[start] {
			continue
		}
		visited[start] = true
		queue = append(queue[:0], start)
		var sumX, sumY float64
		count := 0
		hasCore := false
		for len(queue) > 0 {
			idx := queue[0]
			queue = queue[1:]
			cx, cy := idx%n, idx/n
			sumX += float64(cx)
			sumY += float64(cy)
			count++
			if r.FlagsAt(cx, cy)&world.FlagCore != 0 {
				hasCore = true
			}
			for _, d := range eightNeighbours {
				nx, ny := cx+d[0], cy+d[1]
				if nx < 0 || nx >= n || ny < 0 || ny >= n {
					continue
				}
				nidx := ny*n + nx
				if owned[nidx] && !visited[nidx] {
					visited[nidx] = true
					queue = append(queue, nidx)
				}
			}
		}
		res.Clusters = append(res.Clusters, Cluster{
			CentroidX: sumX / float64(count),
			CentroidY: sumY / float64(count),
			Tiles:     count,
			HasCore:   hasCore,
		})
	}

	// Border edges: each of the four axis-aligned sides facing a
	// differing-or-out-of-range neighbour contributes one unit edge.
	for _, idx := range cells {
		cx, cy := idx%n, idx/n
		if cy == 0 || !owned[idx-n] {
			res.Borders = append(res.Borders, BorderEdge{X: cx, Y: cy, Side: SideTop})
		}
		if cy == n-1 || !owned[idx+n] {
			res.Borders = append(res.Borders, BorderEdge{X: cx, Y: cy, Side: SideBottom})
		}
		if cx == 0 || !owned[idx-1] {
			res.Borders = append(res.Borders, BorderEdge{X: cx, Y: cy, Side: SideLeft})
		}
		if cx == n-1 || !owned[idx+1] {
			res.Borders = append(res.Borders, BorderEdge{X: cx, Y: cy, Side: SideRight})
		}
	}
	return res
}
