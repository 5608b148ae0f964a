package app

import (
	"fmt"
	"sort"
	"strings"

	"github.com/feralbyte/gridclaim/internal/cluster"
)

// factionLine is one row of the territory report.
type factionLine struct {
	name     string
	tiles    int
	clusters int
	hasCore  bool
	primary  cluster.Cluster
}

// BuildTerritoryReport analyses every interned faction and formats a
// plain-text summary, largest territory first. The engine's cache makes
// repeated exports cheap between world changes.
func BuildTerritoryReport(e *cluster.Engine, factions []string) string {
	lines := make([]factionLine, 0, len(factions))
	for _, name := range factions {
		if name == "" {
			continue
		}
		res := e.Territory(name)
		if len(res.Clusters) == 0 {
			continue
		}
		total := 0
		hasCore := false
		for _, c := range res.Clusters {
			total += c.Tiles
			if c.HasCore {
				hasCore = true
			}
		}
		prim, _ := cluster.Primary(res.Clusters)
		lines = append(lines, factionLine{
			name:     name,
			tiles:    total,
			clusters: len(res.Clusters),
			hasCore:  hasCore,
			primary:  prim,
		})
	}
	sort.Slice(lines, func(i, j int) bool {
		if lines[i].tiles != lines[j].tiles {
			return lines[i].tiles > lines[j].tiles
		}
		return lines[i].name < lines[j].name
	})

	var sb strings.Builder
	sb.WriteString("=== Territory Report ===\n")
	fmt.Fprintf(&sb, "factions=%d\n", len(lines))
	for rank, l := range lines {
		core := " "
		if l.hasCore {
			core = "*"
		}
		colorNote := ""
		if hex := demoColorHex(l.name); hex != "" {
			colorNote = "  " + hex
		}
		fmt.Fprintf(&sb, "%2d. %-18s %6d tiles  %3d clusters %s primary=%dt@(%.1f,%.1f)%s\n",
			rank+1, l.name, l.tiles, l.clusters, core,
			l.primary.Tiles, l.primary.CentroidX, l.primary.CentroidY, colorNote)
	}
	return sb.String()
}
