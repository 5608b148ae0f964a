package main

import (
	"flag"
	"fmt"
	"os"
	"runtime"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/feralbyte/gridclaim/internal/app"
	"github.com/feralbyte/gridclaim/internal/cluster"
	"github.com/feralbyte/gridclaim/internal/world"
)

// factionRow is one faction's aggregated territory analysis.
type factionRow struct {
	name     string
	tiles    int
	clusters int
	borders  int
	cores    int
	primary  cluster.Cluster
}

func main() {
	var (
		snapshot string
		seed     int64
		grid     int
		factions string
		top      int
	)
	flag.StringVar(&snapshot, "snapshot", "", "analyse a snapshot file instead of a seeded demo world")
	flag.Int64Var(&seed, "seed", 42, "demo world RNG seed")
	flag.IntVar(&grid, "grid", world.DefaultN, "demo grid edge length")
	flag.StringVar(&factions, "factions", "", "comma-separated faction filter (empty = all)")
	flag.IntVar(&top, "top", 0, "print only the top N factions (0 = all)")
	flag.Parse()

	store, err := loadWorld(snapshot, seed, grid)
	if err != nil {
		fmt.Printf("error: %v\n", err)
		os.Exit(1)
	}

	names := selectFactions(store.Factions().Names(), factions)
	rows, err := analyse(store, names)
	if err != nil {
		fmt.Printf("error: %v\n", err)
		os.Exit(1)
	}

	printReport(store, rows, top)
}

func loadWorld(snapshot string, seed int64, grid int) (*world.Store, error) {
	if snapshot == "" {
		s := world.NewStore(grid)
		app.SeedDemoWorld(s, seed)
		return s, nil
	}
	data, err := os.ReadFile(snapshot)
	if err != nil {
		return nil, err
	}
	snap, err := world.DecodeSnapshot(data)
	if err != nil {
		return nil, err
	}
	s := world.NewStore(snap.N)
	if err := s.FullReplace(snap); err != nil {
		return nil, err
	}
	return s, nil
}

// selectFactions applies the -factions filter, preserving intern order and
// skipping empty and unknown names.
func selectFactions(all []string, filter string) []string {
	if filter == "" {
		out := make([]string, 0, len(all))
		for _, n := range all {
			if n != "" {
				out = append(out, n)
			}
		}
		return out
	}
	known := make(map[string]bool, len(all))
	for _, n := range all {
		known[n] = true
	}
	var out []string
	for _, n := range strings.Split(filter, ",") {
		n = strings.TrimSpace(n)
		if n != "" && known[n] {
			out = append(out, n)
		}
	}
	return out
}

// analyse runs the cluster engine over every faction in parallel.
func analyse(store *world.Store, names []string) ([]factionRow, error) {
	engine := cluster.NewEngine(store.Reader())
	rows := make([]factionRow, len(names))

	var g errgroup.Group
	g.SetLimit(runtime.NumCPU())
	var mu sync.Mutex
	for i, name := range names {
		g.Go(func() error {
			res := engine.Territory(name)
			row := buildRow(name, res, countCores(store.Reader(), name))
			mu.Lock()
			rows[i] = row
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].tiles != rows[j].tiles {
			return rows[i].tiles > rows[j].tiles
		}
		return rows[i].name < rows[j].name
	})
	return rows, nil
}

func buildRow(name string, res *cluster.Result, cores int) factionRow {
	row := factionRow{
		name:     name,
		clusters: len(res.Clusters),
		borders:  len(res.Borders),
		cores:    cores,
	}
	for _, c := range res.Clusters {
		row.tiles += c.Tiles
	}
	row.primary, _ = cluster.Primary(res.Clusters)
	return row
}

func countCores(r world.Reader, faction string) int {
	fi32, ok := r.Factions().IndexOf(faction)
	if !ok || fi32 >= uint32(world.NoFaction) {
		return 0
	}
	fi := uint16(fi32)
	n := r.N()
	cores := 0
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			if r.FactionIndexAt(x, y) == fi && r.FlagsAt(x, y)&world.FlagCore != 0 {
				cores++
			}
		}
	}
	return cores
}

func printReport(store *world.Store, rows []factionRow, top int) {
	n := store.N()
	fmt.Printf("=== Territory Report ===\n")
	fmt.Printf("grid=%dx%d version=%d factions=%d\n\n", n, n, store.Version(), len(rows))

	shown := rows
	if top > 0 && top < len(rows) {
		shown = rows[:top]
	}
	for rank, row := range shown {
		fmt.Println(formatRow(rank+1, row))
	}

	totalOwned := 0
	totalClusters := 0
	largest := factionRow{}
	for _, row := range rows {
		totalOwned += row.tiles
		totalClusters += row.clusters
		if row.tiles > largest.tiles {
			largest = row
		}
	}
	fmt.Printf("\n--- Aggregate ---\n")
	fmt.Printf("owned_tiles=%d coverage=%.1f%% clusters=%d\n",
		totalOwned, coverage(totalOwned, n), totalClusters)
	if largest.name != "" {
		fmt.Printf("largest=%s (%d tiles, %d clusters)\n", largest.name, largest.tiles, largest.clusters)
	}
}

// formatRow renders one report line.
//
//	 1. Verdant Pact        2028 tiles   3 clusters  3 cores  primary=912t@(88.2,41.5) border=1410
func formatRow(rank int, row factionRow) string {
	return fmt.Sprintf("%2d. %-18s %6d tiles %3d clusters %2d cores  primary=%dt@(%.1f,%.1f) border=%d",
		rank, row.name, row.tiles, row.clusters, row.cores,
		row.primary.Tiles, row.primary.CentroidX, row.primary.CentroidY, row.borders)
}

// coverage is the owned share of the grid as a percentage.
func coverage(owned, n int) float64 {
	if n <= 0 {
		return 0
	}
	return float64(owned) / float64(n*n) * 100
}
