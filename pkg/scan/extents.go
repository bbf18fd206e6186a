package scan

import (
	"context"

	"github.com/sisatech/fxfsp/pkg/elog"
	"github.com/sisatech/fxfsp/pkg/extent"
	"github.com/sisatech/fxfsp/pkg/ioengine"
	"github.com/sisatech/fxfsp/pkg/xfsformat"
)

// AgExtentPhase is the S3 AgExtents phase: for every inode observed in the
// previous phase whose data fork is btree-format, descend its file extent
// B+tree and emit decoded extent records.
type AgExtentPhase struct {
	eng      Engine
	sb       *xfsformat.SuperblockInfo
	log      elog.Logger
	agNumber uint32
	agOffset int64
	agBlocks uint32 // this AG's true block count; may be short for the last AG

	// closed is shared with the downstream AgDirPhase; see AgScanner.closed.
	closed *bool

	btreeInodes []uint64
	dirInodes   []uint64

	done bool
}

// logger returns p.log, falling back to a no-op so a zero-value
// AgExtentPhase (as constructed directly by tests) never needs a nil check
// at call sites.
func (p *AgExtentPhase) logger() elog.Logger {
	if p.log == nil {
		return elog.Noop{}
	}
	return p.log
}

// SkipExtents advances straight to the S4 AgDirs phase without reading any
// extent btrees.
func (p *AgExtentPhase) SkipExtents() (*AgDirPhase, error) {
	if p.done {
		return nil, &AlreadyScanned{Phase: "AgExtents"}
	}
	p.done = true
	return &AgDirPhase{eng: p.eng, sb: p.sb, log: p.log, agNumber: p.agNumber, agOffset: p.agOffset, closed: p.closed, dirInodes: p.dirInodes}, nil
}

// blocksPerAG derives the AG's true block count for extent
// ag_number/ag_block bound-checking (§8 property 2). It prefers the
// authoritative per-AG count captured from the AGF at NextAG time (which
// accounts for a short last AG) and falls back to the uniform superblock
// AGBlocks value only when that wasn't available.
func (p *AgExtentPhase) blocksPerAG() uint64 {
	if p.agBlocks != 0 {
		return uint64(p.agBlocks)
	}
	return uint64(p.sb.AGBlocks)
}

// ScanFileExtents descends each btree-format inode's long-form (64-bit
// pointer) file extent B+tree, one inode at a time, batching read_many for
// all of that inode's leaf blocks, and decodes extent records in logical
// offset order.
func (p *AgExtentPhase) ScanFileExtents(ctx context.Context, cb func(ExtentEvent) Signal[any]) (*AgDirPhase, *ErrorCounters, error) {

	if p.done {
		return nil, nil, &AlreadyScanned{Phase: "AgExtents"}
	}
	p.done = true

	counters := &ErrorCounters{}

	for _, ino := range p.btreeInodes {
		leafBlocks, err := p.bmbtLeafBlocks(ctx, ino)
		if err != nil {
			counters.BadExtent++
			p.logger().Warnf("ag %d: failed to walk extent btree for inode %d: %v", p.agNumber, ino, err)
			continue
		}
		if len(leafBlocks) == 0 {
			continue
		}

		ranges := make([]ioengine.Range, len(leafBlocks))
		for i, blk := range leafBlocks {
			ranges[i] = ioengine.Range{Offset: int64(blk) * int64(p.sb.BlockSize), Length: int64(p.sb.BlockSize)}
		}

		bufs, err := p.eng.ReadMany(ctx, ranges)
		if err != nil {
			return nil, counters, err
		}

		broke := false
		for _, buf := range bufs {
			hdrSize := 16
			if p.sb.HasCRC {
				hdrSize += xfsformat.V3HeaderSize
			}
			if len(buf) < hdrSize {
				counters.BadExtent++
				continue
			}

			numRecs := beUint16(buf[6:8])
			pos := hdrSize
			for i := uint16(0); i < numRecs; i++ {
				if pos+16 > len(buf) {
					counters.BadExtent++
					break
				}
				var raw [16]byte
				copy(raw[:], buf[pos:pos+16])

				e, err := extent.Decode(raw, p.blocksPerAG(), p.sb.AGCount)
				if err != nil {
					counters.BadExtent++
					pos += 16
					continue
				}

				sig := cb(ExtentEvent{
					InodeNumber:   ino,
					LogicalOffset: e.LogicalOffset,
					AGNumber:      e.AGNumber,
					AGBlock:       e.AGBlock,
					Length:        e.Length,
					Unwritten:     e.Unwritten,
				})
				if sig.IsBreak() {
					broke = true
					break
				}
				pos += 16
			}
			if broke {
				break
			}
		}
		if broke {
			break
		}
	}

	return &AgDirPhase{eng: p.eng, sb: p.sb, log: p.log, agNumber: p.agNumber, agOffset: p.agOffset, closed: p.closed, dirInodes: p.dirInodes}, counters, nil
}

// bmbtLeafBlocks reads an inode's data fork out of its on-disk location
// and walks the long-form extent B+tree down to leaf level, returning
// every leaf block's absolute block number. Root-level inline btree
// pointers (stored in the inode literal area) are read directly; this is
// a simplification appropriate for a metadata-only scan, which per §9
// Open Questions treats anything beyond the data fork's own btree as out
// of scope.
func (p *AgExtentPhase) bmbtLeafBlocks(ctx context.Context, ino uint64) ([]uint64, error) {

	agNumber, agRelative := xfsformat.SplitInodeNumber(ino, p.sb.Geometry)
	agBlock := agRelative / uint64(p.sb.InodesPerBlock)
	inodeInBlockOff := (agRelative % uint64(p.sb.InodesPerBlock)) * uint64(p.sb.InodeSize)

	agOffset := int64(agNumber) * int64(p.sb.AGBlocks) * int64(p.sb.BlockSize)
	blockOffset := agOffset + int64(agBlock)*int64(p.sb.BlockSize)

	buf, err := p.eng.Read(ctx, ioengine.Range{Offset: blockOffset, Length: int64(p.sb.BlockSize)})
	if err != nil {
		return nil, err
	}

	off := int(inodeInBlockOff)
	if off+int(p.sb.InodeSize) > len(buf) {
		return nil, &xfsformat.BadMagic{Expected: xfsformat.InodeMagicNumber, Got: 0, Offset: blockOffset}
	}

	di, err := xfsformat.DecodeInode(buf[off:off+int(p.sb.InodeSize)], p.sb.HasCRC, p.sb.HasNrext64)
	if err != nil {
		return nil, err
	}
	if len(di.LiteralArea) < 16 {
		return nil, nil
	}

	// Root bmbt block: BMBTBlock header (24 bytes short+long mixed; use
	// the 16-byte common prefix) followed by NumRecs key/ptr pairs, each
	// an 8-byte key and 8-byte long-form pointer (absolute fs block).
	root := di.LiteralArea
	if len(root) < 16 {
		return nil, nil
	}
	numRecs := beUint16(root[6:8])
	level := beUint16(root[4:6])

	keysStart := 16
	ptrsStart := keysStart + int(numRecs)*8

	var leaves []uint64
	if level == 0 {
		// Root doubles as the only leaf; its own extent records are the
		// file's extents, but those live inline and are already carried
		// on the InodeEvent as InlineExtents for the "extents" format.
		// A level-0 btree-format root is unusual; nothing further to walk.
		return nil, nil
	}

	for i := uint16(0); i < numRecs; i++ {
		ps := ptrsStart + int(i)*8
		if ps+8 > len(root) {
			break
		}
		childBlock := beUint64(root[ps : ps+8])
		sub, err := p.descendBMBT(ctx, childBlock, uint32(level)-1)
		if err != nil {
			continue
		}
		leaves = append(leaves, sub...)
	}

	return leaves, nil
}

func (p *AgExtentPhase) descendBMBT(ctx context.Context, block uint64, level uint32) ([]uint64, error) {

	if level == 0 {
		return []uint64{block}, nil
	}

	buf, err := p.eng.Read(ctx, ioengine.Range{Offset: int64(block) * int64(p.sb.BlockSize), Length: int64(p.sb.BlockSize)})
	if err != nil {
		return nil, err
	}

	hdrSize := 16
	if p.sb.HasCRC {
		hdrSize += xfsformat.V3HeaderSize
	}
	if len(buf) < hdrSize {
		return nil, nil
	}

	numRecs := beUint16(buf[6:8])
	ptrsStart := hdrSize + int(numRecs)*8

	var leaves []uint64
	for i := uint16(0); i < numRecs; i++ {
		ps := ptrsStart + int(i)*8
		if ps+8 > len(buf) {
			break
		}
		child := beUint64(buf[ps : ps+8])
		sub, err := p.descendBMBT(ctx, child, level-1)
		if err != nil {
			continue
		}
		leaves = append(leaves, sub...)
	}
	return leaves, nil
}
