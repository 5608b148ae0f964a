package world

import (
	"sync/atomic"
)

// DefaultN is the production grid edge length.
const DefaultN = 500

// TileWrite describes one cell mutation. Faction and Player are string
// identities resolved through the store's intern tables; an empty Faction
// clears the cell to unowned.
type TileWrite struct {
	Faction   string
	Color     uint32 // 0xRRGGBB
	Player    string // painter, "" for none
	Overpaint uint8
	Flags     uint8
	Expiry    float64
	PaintedAt uint32
}

// BatchWrite is one positioned mutation inside a WriteBatch.
type BatchWrite struct {
	X, Y int
	TileWrite
}

// Store is the single authoritative source of ownership state: a contiguous
// packed array of N×N tile records plus a monotonic version counter.
//
// Concurrency contract: exactly one goroutine (the coordinator) calls the
// mutating methods; any number of goroutines read through Reader with no
// locks. A reader may observe a half-written record during a concurrent
// write; that staleness lasts at most until the next version bump re-renders.
// The version counter is the only cross-task synchronization signal.
type Store struct {
	n        int
	grid     atomic.Pointer[[]byte]
	version  atomic.Uint64
	factions *InternTable
	players  *InternTable
}

// NewStore allocates an n×n store with every cell unowned.
func NewStore(n int) *Store {
	s := &Store{
		n:        n,
		factions: NewInternTable(),
		players:  NewInternTable(""), // index 0 = NoPlayer
	}
	s.grid.Store(newClearedGrid(n))
	return s
}

// newClearedGrid allocates a grid buffer with every faction index set to the
// unowned sentinel (all other fields zero).
func newClearedGrid(n int) *[]byte {
	buf := make([]byte, n*n*RecordSize)
	for off := 0; off < len(buf); off += RecordSize {
		buf[off] = 0xFF
		buf[off+1] = 0xFF
	}
	return &buf
}

// N returns the grid edge length.
func (s *Store) N() int { return s.n }

// Version returns the current store version. It increases by at least one on
// every mutating operation.
func (s *Store) Version() uint64 { return s.version.Load() }

// Factions returns the faction intern table.
func (s *Store) Factions() *InternTable { return s.factions }

// Players returns the player intern table.
func (s *Store) Players() *InternTable { return s.players }

// Reader returns a read-only view of the store for worker tasks.
func (s *Store) Reader() Reader { return Reader{s} }

func (s *Store) inBounds(x, y int) bool {
	return x >= 0 && x < s.n && y >= 0 && y < s.n
}

// Write packs w into the slot at (x, y) and bumps the version. Out-of-range
// coordinates are a silent no-op and leave the version unchanged: pointer and
// viewport math can transiently land outside the grid.
func (s *Store) Write(x, y int, w TileWrite) {
	if !s.writeSlot(x, y, w) {
		return
	}
	s.version.Add(1)
}

// WriteBatch applies every in-range record and bumps the version once for the
// whole batch. A batch that applies nothing leaves the version unchanged.
func (s *Store) WriteBatch(batch []BatchWrite) {
	applied := false
	for _, b := range batch {
		if s.writeSlot(b.X, b.Y, b.TileWrite) {
			applied = true
		}
	}
	if applied {
		s.version.Add(1)
	}
}

// writeSlot resolves identities and packs one record. Returns false when the
// write was skipped (out of range, or the faction table is full).
func (s *Store) writeSlot(x, y int, w TileWrite) bool {
	if !s.inBounds(x, y) {
		return false
	}
	rec := TileRecord{
		FactionIndex: NoFaction,
		ColorRGB:     w.Color,
		PaintedBy:    NoPlayer,
		Overpaint:    w.Overpaint,
		Flags:        w.Flags,
		Expiry:       w.Expiry,
		PaintedAt:    w.PaintedAt,
	}
	if rec.Overpaint > MaxOverpaint {
		rec.Overpaint = MaxOverpaint
	}
	if w.Faction != "" {
		fi := s.factions.Intern(w.Faction)
		if fi >= uint32(NoFaction) {
			// Faction table exhausted the u16 index space; refuse the write
			// rather than corrupt the sentinel.
			return false
		}
		rec.FactionIndex = uint16(fi)
	}
	if w.Player != "" {
		rec.PaintedBy = s.players.Intern(w.Player)
	}
	buf := *s.grid.Load()
	packRecord(buf[(y*s.n+x)*RecordSize:], rec)
	return true
}

// Reader is a read-only, lock-free view of a Store, safe to share with any
// number of concurrent worker tasks. No method allocates.
type Reader struct {
	s *Store
}

// N returns the grid edge length.
func (r Reader) N() int { return r.s.n }

// Version returns the store version at the moment of the call.
func (r Reader) Version() uint64 { return r.s.version.Load() }

// Read unpacks the slot at (x, y). The second result is false for
// out-of-range coordinates ("no tile").
func (r Reader) Read(x, y int) (TileRecord, bool) {
	if !r.s.inBounds(x, y) {
		return TileRecord{}, false
	}
	buf := *r.s.grid.Load()
	return unpackRecord(buf[(y*r.s.n+x)*RecordSize:]), true
}

// FactionIndexAt returns the faction index at (x, y), or NoFaction for
// out-of-range or unowned cells. Render hot path: no unpacking, no allocation.
func (r Reader) FactionIndexAt(x, y int) uint16 {
	if !r.s.inBounds(x, y) {
		return NoFaction
	}
	buf := *r.s.grid.Load()
	off := (y*r.s.n + x) * RecordSize
	return uint16(buf[off]) | uint16(buf[off+1])<<8
}

// ColorAt returns the packed 0xRRGGBB color at (x, y); zero out of range.
func (r Reader) ColorAt(x, y int) uint32 {
	if !r.s.inBounds(x, y) {
		return 0
	}
	buf := *r.s.grid.Load()
	off := (y*r.s.n+x)*RecordSize + offColor
	return uint32(buf[off]) | uint32(buf[off+1])<<8 | uint32(buf[off+2])<<16 | uint32(buf[off+3])<<24
}

// PainterAt returns the painter index at (x, y); NoPlayer out of range.
func (r Reader) PainterAt(x, y int) uint32 {
	if !r.s.inBounds(x, y) {
		return NoPlayer
	}
	buf := *r.s.grid.Load()
	off := (y*r.s.n+x)*RecordSize + offPainter
	return uint32(buf[off]) | uint32(buf[off+1])<<8 | uint32(buf[off+2])<<16 | uint32(buf[off+3])<<24
}

// OverpaintAt returns the overpaint count at (x, y); zero out of range.
func (r Reader) OverpaintAt(x, y int) uint8 {
	if !r.s.inBounds(x, y) {
		return 0
	}
	buf := *r.s.grid.Load()
	return buf[(y*r.s.n+x)*RecordSize+offOverpaint]
}

// FlagsAt returns the flags byte at (x, y); zero out of range.
func (r Reader) FlagsAt(x, y int) uint8 {
	if !r.s.inBounds(x, y) {
		return 0
	}
	buf := *r.s.grid.Load()
	return buf[(y*r.s.n+x)*RecordSize+offFlags]
}

// Factions returns the faction intern table (read methods only).
func (r Reader) Factions() *InternTable { return r.s.factions }

// Players returns the player intern table (read methods only).
func (r Reader) Players() *InternTable { return r.s.players }
