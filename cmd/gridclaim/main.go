package main

import (
	"flag"
	"log"
	"os"

	"github.com/hajimehoshi/ebiten/v2"

	"github.com/feralbyte/gridclaim/internal/app"
	"github.com/feralbyte/gridclaim/internal/cluster"
	"github.com/feralbyte/gridclaim/internal/feed"
	"github.com/feralbyte/gridclaim/internal/render"
	"github.com/feralbyte/gridclaim/internal/world"
)

func main() {
	var (
		feedURL  string
		snapshot string
		seed     int64
		workers  int
		single   bool
	)
	flag.StringVar(&feedURL, "feed", "", "websocket tile-update feed URL (empty = offline)")
	flag.StringVar(&snapshot, "snapshot", "", "load world state from a snapshot file")
	flag.Int64Var(&seed, "seed", 42, "demo world RNG seed (used when no snapshot)")
	flag.IntVar(&workers, "workers", 0, "render worker count (0 = auto)")
	flag.BoolVar(&single, "single", false, "single-threaded render fallback")
	flag.Parse()

	store := world.NewStore(world.DefaultN)
	if snapshot != "" {
		data, err := os.ReadFile(snapshot)
		if err != nil {
			log.Fatalf("read snapshot: %v", err)
		}
		snap, err := world.DecodeSnapshot(data)
		if err != nil {
			log.Fatalf("decode snapshot: %v", err)
		}
		if err := store.FullReplace(snap); err != nil {
			log.Fatalf("load snapshot: %v", err)
		}
	} else {
		app.SeedDemoWorld(store, seed)
	}

	var opts []render.Option
	if workers > 0 {
		opts = append(opts, render.WithWorkers(workers))
	}
	if single {
		opts = append(opts, render.WithSingleThreaded())
	}
	pipe := render.New(store.Reader(), opts...)
	pipe.Start()
	defer pipe.Stop()

	var fc *feed.Client
	if feedURL != "" {
		fc = feed.Dial(feedURL)
		go fc.Run()
		defer fc.Close()
	}

	a := app.New(app.Config{
		Store:     store,
		Engine:    cluster.NewEngine(store.Reader()),
		Pipeline:  pipe,
		Feed:      fc,
		Width:     1280,
		Height:    800,
		Alliances: app.DemoAlliances(store),
	})

	ebiten.SetWindowTitle("Gridclaim")
	ebiten.SetWindowSize(1280, 800)
	if err := ebiten.RunGame(a); err != nil {
		log.Fatal(err)
	}
}
