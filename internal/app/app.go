// Package app is the interactive Ebiten front end: input, HUD, the tile
// inspector, and territory overlays, glued to the store, render pipeline,
// and cluster engine. All mutation funnels through App.Update, which is the
// store's single writer.
package app

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/atotto/clipboard"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/vector"

	"github.com/feralbyte/gridclaim/internal/cluster"
	"github.com/feralbyte/gridclaim/internal/feed"
	"github.com/feralbyte/gridclaim/internal/render"
	"github.com/feralbyte/gridclaim/internal/view"
	"github.com/feralbyte/gridclaim/internal/world"
)

// hudScale is the integer upscale factor applied to HUD text.
const hudScale = 2

// Config wires an App together. Feed may be nil for offline sessions.
type Config struct {
	Store     *world.Store
	Engine    *cluster.Engine
	Pipeline  *render.Pipeline
	Feed      *feed.Client
	Width     int
	Height    int
	Alliances map[uint16]uint32
}

// App implements ebiten.Game over the map engine.
type App struct {
	store     *world.Store
	engine    *cluster.Engine
	pipeline  *render.Pipeline
	feed      *feed.Client
	events    *EventLog
	alliances map[uint16]uint32

	width  int
	height int

	vp        view.Viewport
	mode      render.Mode
	showSeams bool
	showHUD   bool
	showLog   bool

	prevKeys      map[ebiten.Key]bool
	prevMouseLeft bool

	// Presentation: the last front buffer uploaded to the GPU. The pipeline
	// never mutates a presented frame in place, so pointer identity is a
	// sufficient change check.
	frameImg  *ebiten.Image
	lastFront *image.RGBA

	// Re-render triggers.
	renderedVersion uint64
	lastRequest     render.FrameRequest
	requested       bool

	// Hover territory overlay.
	hoverFaction string
	terr         *cluster.Result
	pendingTerr  <-chan *cluster.Result

	inspector Inspector
	inspBuf   *ebiten.Image
	hudBuf    *ebiten.Image
}

// New creates the app. The pipeline must already be started.
func New(cfg Config) *App {
	n := cfg.Store.N()
	a := &App{
		store:     cfg.Store,
		engine:    cfg.Engine,
		pipeline:  cfg.Pipeline,
		feed:      cfg.Feed,
		events:    NewEventLog(),
		alliances: cfg.Alliances,
		width:     cfg.Width,
		height:    cfg.Height,
		vp:        view.Viewport{CenterX: float64(n) / 2, CenterY: float64(n) / 2, Zoom: 1},
		showHUD:   true,
		prevKeys:  make(map[ebiten.Key]bool),
		inspBuf:   ebiten.NewImage(inspBufW, inspBufH),
		hudBuf:    ebiten.NewImage(cfg.Width/hudScale, cfg.Height/hudScale),
	}
	a.vp.Clamp(n)
	return a
}

// Events returns the session event log.
func (a *App) Events() *EventLog { return a.events }

func (a *App) transform() view.Transform {
	return view.NewTransform(a.vp, a.width, a.height, a.store.N())
}

func (a *App) Update() error {
	a.drainFeed()
	a.drainFaults()
	a.handleInput()
	a.pollTerritory()
	a.maybeRequestFrame()
	return nil
}

// drainFeed applies any pending feed updates. The app goroutine is the only
// store writer; the feed client just decodes.
func (a *App) drainFeed() {
	if a.feed == nil {
		return
	}
	for {
		select {
		case batch := <-a.feed.Batches():
			a.store.WriteBatch(batch)
		case snap := <-a.feed.Snapshots():
			if err := a.store.FullReplace(snap); err != nil {
				a.events.Add("snapshot", "%v", err)
			}
		case err := <-a.feed.Errs():
			a.events.Add("feed", "%v", err)
		default:
			return
		}
	}
}

func (a *App) drainFaults() {
	for {
		select {
		case f := <-a.pipeline.Faults():
			a.events.Add("render", "gen %d: %v", f.Gen, f.Err)
		default:
			return
		}
	}
}

// handleInput processes pan, zoom, mode keys, and toggles (edge-triggered
// where appropriate).
func (a *App) handleInput() {
	currentKeys := map[ebiten.Key]bool{}
	pressed := func(k ebiten.Key) bool {
		currentKeys[k] = ebiten.IsKeyPressed(k)
		return currentKeys[k] && !a.prevKeys[k]
	}

	// View mode keys 1-5.
	modeKeys := []ebiten.Key{ebiten.Key1, ebiten.Key2, ebiten.Key3, ebiten.Key4, ebiten.Key5}
	for i, k := range modeKeys {
		if pressed(k) {
			a.mode = render.Mode(i)
		}
	}
	if pressed(ebiten.KeyG) {
		a.showSeams = !a.showSeams
	}
	if pressed(ebiten.KeyH) {
		a.showHUD = !a.showHUD
	}
	if pressed(ebiten.KeyL) {
		a.showLog = !a.showLog
	}
	if pressed(ebiten.KeyC) {
		a.copyReport()
	}

	// Camera pan: WASD or arrow keys, in grid units so speed tracks zoom.
	panSpeed := 6.0 / (view.BaseTilePx * a.vp.Zoom)
	if ebiten.IsKeyPressed(ebiten.KeyW) || ebiten.IsKeyPressed(ebiten.KeyArrowUp) {
		a.vp.CenterY -= panSpeed
	}
	if ebiten.IsKeyPressed(ebiten.KeyS) || ebiten.IsKeyPressed(ebiten.KeyArrowDown) {
		a.vp.CenterY += panSpeed
	}
	if ebiten.IsKeyPressed(ebiten.KeyA) || ebiten.IsKeyPressed(ebiten.KeyArrowLeft) {
		a.vp.CenterX -= panSpeed
	}
	if ebiten.IsKeyPressed(ebiten.KeyD) || ebiten.IsKeyPressed(ebiten.KeyArrowRight) {
		a.vp.CenterX += panSpeed
	}

	// Zoom: mouse wheel anchored on the cursor, or =/- keys about the centre.
	if _, wy := ebiten.Wheel(); wy != 0 {
		mx, my := ebiten.CursorPosition()
		dx := float64(mx) - float64(a.width)/2
		dy := float64(my) - float64(a.height)/2
		oldScale := view.BaseTilePx * a.vp.Zoom
		gx := a.vp.CenterX + dx/oldScale
		gy := a.vp.CenterY + dy/oldScale
		a.vp.Zoom *= math.Pow(1.12, wy)
		if a.vp.Zoom < view.MinZoom {
			a.vp.Zoom = view.MinZoom
		}
		if a.vp.Zoom > view.MaxZoom {
			a.vp.Zoom = view.MaxZoom
		}
		// Recentre so the grid point under the cursor stays put.
		newScale := view.BaseTilePx * a.vp.Zoom
		a.vp.CenterX = gx - dx/newScale
		a.vp.CenterY = gy - dy/newScale
	}
	if pressed(ebiten.KeyEqual) {
		a.vp.Zoom *= 1.25
	}
	if pressed(ebiten.KeyMinus) {
		a.vp.Zoom /= 1.25
	}
	a.vp.Clamp(a.store.N())

	// Left click: select a tile for the inspector.
	if ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft) && !a.prevMouseLeft {
		mx, my := ebiten.CursorPosition()
		a.handleInspectorClick(mx, my)
	}
	a.prevMouseLeft = ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft)

	a.prevKeys = currentKeys
}

// pollTerritory keeps the hover overlay current: when the cursor moves onto a
// different faction (or the world changed under it), a fresh async query is
// issued; its answer is collected without blocking the frame.
func (a *App) pollTerritory() {
	if a.pendingTerr != nil {
		select {
		case res := <-a.pendingTerr:
			a.terr = res
			a.pendingTerr = nil
		default:
		}
	}

	mx, my := ebiten.CursorPosition()
	gx, gy := a.transform().ScreenToGrid(mx, my)
	r := a.store.Reader()
	faction := ""
	if fi := r.FactionIndexAt(gx, gy); fi != world.NoFaction {
		faction, _ = r.Factions().Lookup(uint32(fi))
	}

	if faction == "" {
		a.hoverFaction = ""
		a.terr = nil
		return
	}
	stale := a.terr != nil && a.terr.Version != r.Version()
	if (faction != a.hoverFaction || stale) && a.pendingTerr == nil {
		a.hoverFaction = faction
		a.pendingTerr = a.engine.Query(faction)
	}
}

// maybeRequestFrame issues a render request when anything visible changed:
// viewport, mode, seams, or the store version. The pipeline coalesces bursts.
func (a *App) maybeRequestFrame() {
	req := render.FrameRequest{
		Viewport:  a.vp,
		Width:     a.width,
		Height:    a.height,
		Mode:      a.mode,
		ShowSeams: a.showSeams,
		Alliances: a.alliances,
	}
	version := a.store.Version()
	// The alliance map is fixed at construction, so the comparable fields
	// plus the store version cover every visible input.
	same := a.requested &&
		req.Viewport == a.lastRequest.Viewport &&
		req.Width == a.lastRequest.Width && req.Height == a.lastRequest.Height &&
		req.Mode == a.lastRequest.Mode && req.ShowSeams == a.lastRequest.ShowSeams
	if same && version == a.renderedVersion {
		return
	}
	a.pipeline.Request(req)
	a.lastRequest = req
	a.renderedVersion = version
	a.requested = true
}

func (a *App) copyReport() {
	report := BuildTerritoryReport(a.engine, a.store.Factions().Names())
	if err := clipboard.WriteAll(report); err != nil {
		a.events.Add("clipboard", "%v", err)
		return
	}
	a.events.Add("clipboard", "territory report copied (%d bytes)", len(report))
}

func (a *App) Draw(screen *ebiten.Image) {
	screen.Fill(color.RGBA{R: 10, G: 12, B: 10, A: 255})

	if front := a.pipeline.Front(); front != nil {
		a.present(screen, front)
	}

	a.drawTerritoryOverlay(screen)
	a.drawInspector(screen)
	if a.showHUD {
		a.drawHUD(screen)
	}
	if a.showLog {
		a.drawEventLog(screen)
	}
}

// present uploads the front buffer to the GPU only when the pipeline flipped
// to a new one since the last draw.
func (a *App) present(screen *ebiten.Image, front *image.RGBA) {
	w, h := front.Bounds().Dx(), front.Bounds().Dy()
	if a.frameImg == nil || a.frameImg.Bounds().Dx() != w || a.frameImg.Bounds().Dy() != h {
		a.frameImg = ebiten.NewImage(w, h)
		a.lastFront = nil
	}
	if front != a.lastFront {
		a.frameImg.WritePixels(front.Pix)
		a.lastFront = front
	}
	screen.DrawImage(a.frameImg, nil)
}

// drawTerritoryOverlay strokes the hovered faction's border edges and labels
// its primary cluster.
func (a *App) drawTerritoryOverlay(screen *ebiten.Image) {
	if a.terr == nil || len(a.terr.Clusters) == 0 {
		return
	}
	tr := a.transform()
	edgeCol := color.RGBA{R: 245, G: 245, B: 235, A: 200}
	for _, e := range a.terr.Borders {
		x0, y0, x1, y1 := tr.CellRect(e.X, e.Y)
		fx0, fy0, fx1, fy1 := float32(x0), float32(y0), float32(x1), float32(y1)
		switch e.Side {
		case cluster.SideTop:
			vector.StrokeLine(screen, fx0, fy0, fx1, fy0, 1.0, edgeCol, false)
		case cluster.SideBottom:
			vector.StrokeLine(screen, fx0, fy1, fx1, fy1, 1.0, edgeCol, false)
		case cluster.SideLeft:
			vector.StrokeLine(screen, fx0, fy0, fx0, fy1, 1.0, edgeCol, false)
		case cluster.SideRight:
			vector.StrokeLine(screen, fx1, fy0, fx1, fy1, 1.0, edgeCol, false)
		}
	}

	if prim, ok := cluster.Primary(a.terr.Clusters); ok {
		// Centre of the centroid cell.
		lx, ly := tr.GridToScreen(prim.CentroidX+0.5, prim.CentroidY+0.5)
		drawLabel(screen, a.terr.Faction, lx, ly)
	}
}

// drawHUD renders the key legend and live stats in the bottom-left corner,
// into hudBuf at 1× then composited at hudScale.
func (a *App) drawHUD(screen *ebiten.Image) {
	seams := "off"
	if a.showSeams {
		seams = "on"
	}
	feedState := "offline"
	if a.feed != nil {
		feedState = "live"
	}
	st := a.pipeline.Stats()

	lines := []string{
		fmt.Sprintf("mode: %s  [1-5] switch  [G] seams:%s", render.ModeName(a.mode), seams),
		fmt.Sprintf("zoom: %.2fx  WASD/arrows=pan  scroll=zoom", a.vp.Zoom),
		fmt.Sprintf("feed: %s  v=%d  factions=%d", feedState, a.store.Version(), a.store.Factions().Len()),
		st.String(),
		"[C] copy report  [L] log  [H] hide  click=inspect",
	}
	if a.hoverFaction != "" {
		lines = append(lines, fmt.Sprintf("hover: %s", a.hoverFaction))
	}

	const lineH = 12
	const charW = 6
	const padX = 5
	const padY = 4
	maxLen := 0
	for _, l := range lines {
		if len(l) > maxLen {
			maxLen = len(l)
		}
	}
	boxW := float32(maxLen*charW + padX*2)
	boxH := float32(len(lines)*lineH + padY*2)
	bufH := float32(a.height / hudScale)
	bx := float32(4)
	by := bufH - boxH - 4

	a.hudBuf.Clear()
	vector.FillRect(a.hudBuf, bx, by, boxW, boxH, color.RGBA{R: 6, G: 10, B: 6, A: 210}, false)
	vector.StrokeRect(a.hudBuf, bx, by, boxW, boxH, 1.0, color.RGBA{R: 60, G: 100, B: 60, A: 180}, false)
	vector.StrokeLine(a.hudBuf, bx+1, by+1, bx+boxW-1, by+1, 1.0, color.RGBA{R: 80, G: 140, B: 80, A: 80}, false)
	for i, line := range lines {
		ebitenutil.DebugPrintAt(a.hudBuf, line, int(bx)+padX, int(by)+padY+i*lineH)
	}

	opts := &ebiten.DrawImageOptions{}
	opts.GeoM.Scale(hudScale, hudScale)
	screen.DrawImage(a.hudBuf, opts)
}

// drawEventLog lists the newest session events in the bottom-right corner.
func (a *App) drawEventLog(screen *ebiten.Image) {
	events := a.events.Recent(10)
	if len(events) == 0 {
		return
	}
	const lineH = 14
	y := a.height - len(events)*lineH - 8
	for i, e := range events {
		ebitenutil.DebugPrintAt(screen, e.String(), a.width-440, y+i*lineH)
	}
}

func (a *App) Layout(_, _ int) (int, int) {
	return a.width, a.height
}
