package world

import (
	"encoding/binary"
	"math"
)

// RecordSize is the byte width of one packed tile slot.
const RecordSize = 24

// NoFaction is the sentinel faction index for unowned tiles.
const NoFaction uint16 = 0xFFFF

// NoPlayer marks a tile that has never been painted by a player.
// The player intern table reserves index 0 for it.
const NoPlayer uint32 = 0

// Flag bits stored in the packed flags byte.
const (
	FlagCore    uint8 = 1 << 0 // protected anchor tile
	FlagPending uint8 = 1 << 1 // coreification in progress
)

// MaxOverpaint is the highest stored overpaint count.
const MaxOverpaint uint8 = 4

// Packed slot layout, little-endian:
//
//	off 0  u16  faction index (NoFaction = unowned)
//	off 2  u32  colorRGB (0xRRGGBB)
//	off 6  u32  painter index (NoPlayer = none)
//	off 10 u8   overpaint count (0..MaxOverpaint)
//	off 11 u8   flags
//	off 12 f64  expiry timestamp (meaning depends on flags)
//	off 20 u32  painted-at seconds
const (
	offFaction   = 0
	offColor     = 2
	offPainter   = 6
	offOverpaint = 10
	offFlags     = 11
	offExpiry    = 12
	offPaintedAt = 20
)

// TileRecord is the unpacked view of one grid cell.
type TileRecord struct {
	FactionIndex uint16
	ColorRGB     uint32 // 0xRRGGBB
	PaintedBy    uint32 // player intern index, NoPlayer if none
	Overpaint    uint8  // 0..MaxOverpaint
	Flags        uint8
	Expiry       float64 // core expiry or coreification completion time
	PaintedAt    uint32  // seconds
}

// Owned reports whether the cell belongs to a faction.
func (r TileRecord) Owned() bool { return r.FactionIndex != NoFaction }

// IsCore reports whether the cell is a protected anchor tile.
func (r TileRecord) IsCore() bool { return r.Flags&FlagCore != 0 }

// CorePending reports whether coreification is in progress.
func (r TileRecord) CorePending() bool { return r.Flags&FlagPending != 0 }

// packRecord writes r into a 24-byte slot.
func packRecord(dst []byte, r TileRecord) {
	binary.LittleEndian.PutUint16(dst[offFaction:], r.FactionIndex)
	binary.LittleEndian.PutUint32(dst[offColor:], r.ColorRGB)
	binary.LittleEndian.PutUint32(dst[offPainter:], r.PaintedBy)
	dst[offOverpaint] = r.Overpaint
	dst[offFlags] = r.Flags
	binary.LittleEndian.PutUint64(dst[offExpiry:], math.Float64bits(r.Expiry))
	binary.LittleEndian.PutUint32(dst[offPaintedAt:], r.PaintedAt)
}

// unpackRecord reads a 24-byte slot into a value.
func unpackRecord(src []byte) TileRecord {
	return TileRecord{
		FactionIndex: binary.LittleEndian.Uint16(src[offFaction:]),
		ColorRGB:     binary.LittleEndian.Uint32(src[offColor:]),
		PaintedBy:    binary.LittleEndian.Uint32(src[offPainter:]),
		Overpaint:    src[offOverpaint],
		Flags:        src[offFlags],
		Expiry:       math.Float64frombits(binary.LittleEndian.Uint64(src[offExpiry:])),
		PaintedAt:    binary.LittleEndian.Uint32(src[offPaintedAt:]),
	}
}
