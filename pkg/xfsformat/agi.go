package xfsformat

import (
	"bytes"
	"encoding/binary"
)

// AGIInfo is the decoded per-AG inode index header plus the v5-only finobt
// root, which the teacher never wrote (it always fully populates an image,
// so it never needed a free-inode btree) - added fresh here, grounded on
// the same InodeBTRecord shape the teacher already defines.
type AGIInfo struct {
	SeqNo     uint32
	Length    uint32
	Count     uint32
	Root      uint32
	Level     uint32
	FreeCount uint32
	FinobtRoot  uint32
	FinobtLevel uint32
}

const (
	agiV4Size = 40 + 64*4 // header fields + Unlinked[64]
)

// DecodeAGI parses the AGI at the start of buf (buf must be at least one
// sector). hasCRC selects whether the v3 trailer (and finobt fields that
// follow it) are present.
func DecodeAGI(buf []byte, hasCRC bool) (*AGIInfo, error) {
	if len(buf) < agiV4Size {
		return nil, &BadMagic{Expected: AGIMagicNumber, Got: 0, Offset: 0}
	}

	var agi AGI
	if err := binary.Read(bytes.NewReader(buf[:agiV4Size]), binary.BigEndian, &agi); err != nil {
		return nil, err
	}

	if agi.Magic != AGIMagicNumber {
		return nil, &BadMagic{Expected: AGIMagicNumber, Got: agi.Magic, Offset: 0}
	}

	info := &AGIInfo{
		SeqNo:     agi.SeqNo,
		Length:    agi.Length,
		Count:     agi.Count,
		Root:      agi.Root,
		Level:     agi.Level,
		FreeCount: agi.FreeCount,
	}

	if hasCRC {
		trailerOff := agiV4Size
		if len(buf) >= trailerOff+V3HeaderSize {
			if !ValidateCRC(buf, trailerOff) {
				return info, &BadCrc{Offset: int64(trailerOff)}
			}
		}
		finobtOff := trailerOff + V3HeaderSize
		if len(buf) >= finobtOff+8 {
			info.FinobtRoot = binary.BigEndian.Uint32(buf[finobtOff : finobtOff+4])
			info.FinobtLevel = binary.BigEndian.Uint32(buf[finobtOff+4 : finobtOff+8])
		}
	}

	return info, nil
}

// AGFInfo is the decoded per-AG free-space header; the scanner reads this
// only when it needs the AG's extent (§1 Non-goals: free-space btrees are
// otherwise out of scope for a pure metadata walk).
type AGFInfo struct {
	SeqNo      uint32
	Length     uint32
	Roots      [2]uint32
	Levels     [2]uint32
	FreeBlocks uint32
	Longest    uint32
}

const agfV4Size = 64

// DecodeAGF parses the AGF at the start of buf.
func DecodeAGF(buf []byte) (*AGFInfo, error) {
	if len(buf) < agfV4Size {
		return nil, &BadMagic{Expected: AGFMagicNumber, Got: 0, Offset: 0}
	}

	var agf AGF
	if err := binary.Read(bytes.NewReader(buf[:agfV4Size]), binary.BigEndian, &agf); err != nil {
		return nil, err
	}

	if agf.Magic != AGFMagicNumber {
		return nil, &BadMagic{Expected: AGFMagicNumber, Got: agf.Magic, Offset: 0}
	}

	return &AGFInfo{
		SeqNo:      agf.SeqNo,
		Length:     agf.Length,
		Roots:      agf.Roots,
		Levels:     agf.Levels,
		FreeBlocks: agf.FreeBlocks,
		Longest:    agf.Longest,
	}, nil
}

// SparseChunkHolemask decodes the presence bitmap XFS's on-disk format adds
// to a sparse inode-btree record: 16 bits, each covering 4 consecutive
// inodes of the 64-inode chunk, set when that group of 4 is NOT present on
// disk. Only meaningful when the sparse-inodes feature bit is set; callers
// must check SuperblockInfo.HasSparseInos first.
func SparseChunkHolemask(rec InodeBTRecord) uint16 {
	return uint16(rec.FreeCount >> 16)
}

// SparseChunkRealFreeCount masks off the holemask that sparse mode packs
// into the upper 16 bits of the on-disk FreeCount field.
func SparseChunkRealFreeCount(rec InodeBTRecord) uint32 {
	return rec.FreeCount & 0xFFFF
}
