package scan

import (
	"context"

	"github.com/sisatech/fxfsp/pkg/elog"
	"github.com/sisatech/fxfsp/pkg/extent"
	"github.com/sisatech/fxfsp/pkg/ioengine"
	"github.com/sisatech/fxfsp/pkg/xfsdir"
	"github.com/sisatech/fxfsp/pkg/xfsformat"
)

// AgDirPhase is the S4 AgDirs phase: for every inode observed as a
// directory in the inode phase, walk its directory format and emit entry
// records.
type AgDirPhase struct {
	eng      Engine
	sb       *xfsformat.SuperblockInfo
	log      elog.Logger
	agNumber uint32
	agOffset int64

	// closed is shared back up to the FsScanner that issued this AG's
	// chain; setting it true signals the AG has returned to S1 and the
	// next AG may be started (§4.G).
	closed *bool

	dirInodes []uint64

	done bool
}

// logger returns p.log, falling back to a no-op so a zero-value AgDirPhase
// (as constructed directly by tests) never needs a nil check at call sites.
func (p *AgDirPhase) logger() elog.Logger {
	if p.log == nil {
		return elog.Noop{}
	}
	return p.log
}

// SkipDirs completes the AG's phase chain without reading any directory
// blocks.
func (p *AgDirPhase) SkipDirs() error {
	if p.done {
		return &AlreadyScanned{Phase: "AgDirs"}
	}
	p.done = true
	if p.closed != nil {
		*p.closed = true
	}
	return nil
}

// ScanDirEntries walks every directory inode observed earlier in this AG,
// decoding short-form directories inline and reading block/leaf/node
// directories' data blocks through read_many, emitting entries in on-disk
// order (not sorted by name), per §4.G's ordering guarantee.
func (p *AgDirPhase) ScanDirEntries(ctx context.Context, cb func(DirEntryEvent) Signal[any]) (*ErrorCounters, error) {

	if p.done {
		return nil, &AlreadyScanned{Phase: "AgDirs"}
	}
	p.done = true
	if p.closed != nil {
		*p.closed = true
	}

	counters := &ErrorCounters{}

	for _, ino := range p.dirInodes {
		di, err := p.readInode(ctx, ino)
		if err != nil {
			counters.BadInode++
			p.logger().Warnf("ag %d: failed to re-read directory inode %d: %v", p.agNumber, ino, err)
			continue
		}

		var entries []xfsdir.Entry
		var decodeErrs []error

		switch di.DataForkFormat {
		case xfsformat.InodeFormatLocal:
			entries, decodeErrs = xfsdir.DecodeShortForm(di.LiteralArea, ino)
		case xfsformat.InodeFormatExtents, xfsformat.InodeFormatBTree:
			blocks, err := p.dirDataBlocks(ctx, ino, di)
			if err != nil {
				counters.BadDirent++
				continue
			}
			for _, blk := range blocks {
				buf, err := p.eng.Read(ctx, ioengine.Range{Offset: int64(blk) * int64(p.sb.BlockSize), Length: int64(p.sb.BlockSize)})
				if err != nil {
					counters.BadDirent++
					continue
				}
				es, errs := xfsdir.DecodeDataBlock(buf, p.sb.HasFtype)
				entries = append(entries, es...)
				decodeErrs = append(decodeErrs, errs...)
			}
		default:
			continue
		}

		counters.BadDirent += len(decodeErrs)
		for _, derr := range decodeErrs {
			p.logger().Warnf("ag %d: dropping malformed dirent in inode %d: %v", p.agNumber, ino, derr)
		}

		broke := false
		for _, e := range entries {
			ftype := e.FType
			known := p.sb.HasFtype
			if !known {
				ftype = 0
			}
			sig := cb(DirEntryEvent{
				ParentInode: ino,
				ChildInode:  e.Inode,
				Name:        e.Name,
				FType:       ftype,
				FTypeKnown:  known,
			})
			if sig.IsBreak() {
				broke = true
				break
			}
		}
		if broke {
			break
		}
	}

	return counters, nil
}

func (p *AgDirPhase) readInode(ctx context.Context, ino uint64) (*xfsformat.DecodedInode, error) {
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

	return xfsformat.DecodeInode(buf[off:off+int(p.sb.InodeSize)], p.sb.HasCRC, p.sb.HasNrext64)
}

// dirDataBlocks resolves a directory inode's out-of-line data blocks by
// walking its (possibly btree-format) extent list and keeping only
// extents in the data-block virtual-address region, mirroring the
// teacher's virtual-offset convention for distinguishing data, leaf, and
// free-index blocks (pkg/xfs/dir.go's leafOffset/freeIndexOffset).
func (p *AgDirPhase) dirDataBlocks(ctx context.Context, ino uint64, di *xfsformat.DecodedInode) ([]uint64, error) {

	const leafOffsetBlocks = 0x800000000

	var extents [][16]byte
	if di.DataForkFormat == xfsformat.InodeFormatExtents {
		extents = splitExtentArray(di.LiteralArea, int(di.NExtents))
	} else {
		ep := &AgExtentPhase{eng: p.eng, sb: p.sb, log: p.log, agNumber: p.agNumber, agOffset: p.agOffset}
		leafBlocks, err := ep.bmbtLeafBlocks(ctx, ino)
		if err != nil {
			return nil, err
		}
		ranges := make([]ioengine.Range, len(leafBlocks))
		for i, blk := range leafBlocks {
			ranges[i] = ioengine.Range{Offset: int64(blk) * int64(p.sb.BlockSize), Length: int64(p.sb.BlockSize)}
		}
		bufs, err := p.eng.ReadMany(ctx, ranges)
		if err != nil {
			return nil, err
		}
		for _, buf := range bufs {
			hdrSize := 16
			if p.sb.HasCRC {
				hdrSize += xfsformat.V3HeaderSize
			}
			if len(buf) < hdrSize {
				continue
			}
			numRecs := beUint16(buf[6:8])
			pos := hdrSize
			for i := uint16(0); i < numRecs && pos+16 <= len(buf); i++ {
				var rec [16]byte
				copy(rec[:], buf[pos:pos+16])
				extents = append(extents, rec)
				pos += 16
			}
		}
	}

	var blocks []uint64
	for _, raw := range extents {
		e, err := extent.Decode(raw, uint64(p.sb.AGBlocks), p.sb.AGCount)
		if err != nil {
			continue
		}
		if e.LogicalOffset >= leafOffsetBlocks {
			continue // leaf/node index or free-index block, not a data block
		}
		blocks = append(blocks, uint64(e.AGNumber)*uint64(p.sb.AGBlocks)+uint64(e.AGBlock))
	}

	return blocks, nil
}
