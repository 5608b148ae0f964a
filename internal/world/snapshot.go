package world

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/pierrec/lz4"
)

// Snapshot wire format (lz4 frame over the payload below, little-endian):
//
//	magic "GCSN", u16 format version, u32 grid N, u8 record size,
//	u32 faction count, {u16 len, bytes} per faction,
//	u32 player count, {u16 len, bytes} per player,
//	N*N*RecordSize grid bytes.
//
// Faction and player indices inside the grid refer to the tables carried by
// the snapshot, not to any live intern table; FullReplace remaps them.
const (
	snapshotMagic   = "GCSN"
	snapshotVersion = 1
)

// Snapshot is a decoded full-grid state ready for Store.FullReplace.
type Snapshot struct {
	N        int
	Factions []string
	Players  []string
	Grid     []byte // N*N*RecordSize packed records
}

// EncodeSnapshot serializes the store's full state, lz4-compressed.
func EncodeSnapshot(s *Store) ([]byte, error) {
	var payload bytes.Buffer
	payload.WriteString(snapshotMagic)
	writeU16(&payload, snapshotVersion)
	writeU32(&payload, uint32(s.n))
	payload.WriteByte(RecordSize)

	writeStrings(&payload, s.factions.Names())
	writeStrings(&payload, s.players.Names())
	payload.Write(*s.grid.Load())

	var out bytes.Buffer
	zw := lz4.NewWriter(&out)
	if _, err := zw.Write(payload.Bytes()); err != nil {
		zw.Close()
		return nil, fmt.Errorf("compress snapshot: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("compress snapshot: %w", err)
	}
	return out.Bytes(), nil
}

// DecodeSnapshot parses an encoded snapshot without touching any store.
func DecodeSnapshot(data []byte) (*Snapshot, error) {
	var payload bytes.Buffer
	if _, err := io.Copy(&payload, lz4.NewReader(bytes.NewReader(data))); err != nil {
		return nil, fmt.Errorf("decompress snapshot: %w", err)
	}
	rd := bytes.NewReader(payload.Bytes())

	magic := make([]byte, 4)
	if _, err := io.ReadFull(rd, magic); err != nil || string(magic) != snapshotMagic {
		return nil, fmt.Errorf("snapshot: bad magic")
	}
	ver, err := readU16(rd)
	if err != nil {
		return nil, fmt.Errorf("snapshot: truncated header")
	}
	if ver != snapshotVersion {
		return nil, fmt.Errorf("snapshot: unsupported format version %d", ver)
	}
	n32, err := readU32(rd)
	if err != nil {
		return nil, fmt.Errorf("snapshot: truncated header")
	}
	if n32 == 0 || n32 > 4096 {
		return nil, fmt.Errorf("snapshot: implausible grid size %d", n32)
	}
	recSize, err := rd.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("snapshot: truncated header")
	}
	if recSize != RecordSize {
		return nil, fmt.Errorf("snapshot: record size %d, want %d", recSize, RecordSize)
	}

	factions, err := readStrings(rd)
	if err != nil {
		return nil, fmt.Errorf("snapshot: faction table: %w", err)
	}
	players, err := readStrings(rd)
	if err != nil {
		return nil, fmt.Errorf("snapshot: player table: %w", err)
	}

	n := int(n32)
	grid := make([]byte, n*n*RecordSize)
	if _, err := io.ReadFull(rd, grid); err != nil {
		return nil, fmt.Errorf("snapshot: truncated grid (want %d bytes)", len(grid))
	}

	snap := &Snapshot{N: n, Factions: factions, Players: players, Grid: grid}
	if err := snap.validate(); err != nil {
		return nil, err
	}
	return snap, nil
}

// validate checks every record's intern indices against the carried tables.
func (sn *Snapshot) validate() error {
	nFac := uint32(len(sn.Factions))
	nPl := uint32(len(sn.Players))
	for off := 0; off < len(sn.Grid); off += RecordSize {
		fi := binary.LittleEndian.Uint16(sn.Grid[off+offFaction:])
		if fi != NoFaction && uint32(fi) >= nFac {
			return fmt.Errorf("snapshot: record %d references faction %d outside table of %d", off/RecordSize, fi, nFac)
		}
		pi := binary.LittleEndian.Uint32(sn.Grid[off+offPainter:])
		if pi != NoPlayer && pi >= nPl {
			return fmt.Errorf("snapshot: record %d references player %d outside table of %d", off/RecordSize, pi, nPl)
		}
	}
	return nil
}

// FullReplace atomically swaps the entire grid contents for the snapshot's,
// remapping intern indices into the store's own tables, and bumps the version
// once. On any error the prior grid is retained intact.
func (s *Store) FullReplace(sn *Snapshot) error {
	if sn == nil {
		return fmt.Errorf("full replace: nil snapshot")
	}
	if sn.N != s.n {
		return fmt.Errorf("full replace: snapshot grid is %d, store is %d", sn.N, s.n)
	}
	if len(sn.Grid) != s.n*s.n*RecordSize {
		return fmt.Errorf("full replace: grid is %d bytes, want %d", len(sn.Grid), s.n*s.n*RecordSize)
	}
	if err := sn.validate(); err != nil {
		return fmt.Errorf("full replace: %w", err)
	}

	// Remap snapshot table indices to live intern indices. Interning is
	// append-only, so this never disturbs indices already embedded in the
	// current grid.
	fRemap := make([]uint16, len(sn.Factions))
	for i, name := range sn.Factions {
		fi := s.factions.Intern(name)
		if fi >= uint32(NoFaction) {
			return fmt.Errorf("full replace: faction table overflow at %q", name)
		}
		fRemap[i] = uint16(fi)
	}
	pRemap := make([]uint32, len(sn.Players))
	for i, name := range sn.Players {
		if name == "" {
			pRemap[i] = NoPlayer
			continue
		}
		pRemap[i] = s.players.Intern(name)
	}

	next := make([]byte, len(sn.Grid))
	copy(next, sn.Grid)
	for off := 0; off < len(next); off += RecordSize {
		fi := binary.LittleEndian.Uint16(next[off+offFaction:])
		if fi != NoFaction {
			binary.LittleEndian.PutUint16(next[off+offFaction:], fRemap[fi])
		}
		pi := binary.LittleEndian.Uint32(next[off+offPainter:])
		if pi != NoPlayer {
			binary.LittleEndian.PutUint32(next[off+offPainter:], pRemap[pi])
		}
	}

	s.grid.Store(&next)
	s.version.Add(1)
	return nil
}

func writeU16(b *bytes.Buffer, v uint16) {
	var tmp [2]byte
	binary.LittleEndian.PutUint16(tmp[:], v)
	b.Write(tmp[:])
}

func writeU32(b *bytes.Buffer, v uint32) {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	b.Write(tmp[:])
}

func writeStrings(b *bytes.Buffer, ss []string) {
	writeU32(b, uint32(len(ss)))
	for _, s := range ss {
		writeU16(b, uint16(len(s)))
		b.WriteString(s)
	}
}

func readU16(r *bytes.Reader) (uint16, error) {
	var tmp [2]byte
	if _, err := io.ReadFull(r, tmp[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(tmp[:]), nil
}

func readU32(r *bytes.Reader) (uint32, error) {
	var tmp [4]byte
	if _, err := io.ReadFull(r, tmp[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(tmp[:]), nil
}

func readStrings(r *bytes.Reader) ([]string, error) {
	count, err := readU32(r)
	if err != nil {
		return nil, err
	}
	if int64(count) > int64(r.Len()) {
		return nil, fmt.Errorf("table of %d entries exceeds payload", count)
	}
	out := make([]string, 0, count)
	for i := uint32(0); i < count; i++ {
		l, err := readU16(r)
		if err != nil {
			return nil, err
		}
		buf := make([]byte, l)
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, err
		}
		out = append(out, string(buf))
	}
	return out, nil
}
