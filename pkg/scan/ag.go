package scan

import (
	"context"
	"fmt"

	"github.com/sisatech/fxfsp/pkg/elog"
	"github.com/sisatech/fxfsp/pkg/ioengine"
	"github.com/sisatech/fxfsp/pkg/xfsformat"
)

// AlreadyScanned is raised when a phase method is called a second time on
// the same handle, simulating the compile-time single-use guarantee a
// typestate-capable language would enforce statically (§8 property 6).
type AlreadyScanned struct {
	Phase string
}

func (e *AlreadyScanned) Error() string {
	return fmt.Sprintf("scan: %s phase already consumed", e.Phase)
}

// AGNotClosed is raised by FsScanner.NextAG when the previously issued
// AgScanner's phase chain hasn't yet reached S1 (its AgDirPhase hasn't run
// ScanDirEntries or SkipDirs), enforcing that the next AG cannot start
// until the previous one returns to S1 (§4.G).
type AGNotClosed struct {
	AG uint32
}

func (e *AGNotClosed) Error() string {
	return fmt.Sprintf("scan: ag %d not yet closed, cannot start next ag", e.AG)
}

// inodeChunk is one allocated (or partially sparse) 64-inode chunk
// discovered while walking the inode B+tree.
type inodeChunk struct {
	startIno  uint32
	freeCount uint32
	free      uint64
	holemask  uint16
	sparse    bool
}

// AgScanner is the S2 AgInodes phase for one allocation group.
type AgScanner struct {
	eng      Engine
	sb       *xfsformat.SuperblockInfo
	log      elog.Logger
	agNumber uint32
	agOffset int64
	agBlocks uint32
	agi      *xfsformat.AGIInfo

	// closed is shared with every phase downstream of this AgScanner; the
	// terminal AgDirPhase sets *closed = true when it completes, letting
	// FsScanner.NextAG confirm the previous AG reached S1.
	closed *bool

	done bool
}

// logger returns a.log, falling back to a no-op so a zero-value AgScanner
// (as constructed directly by tests) never needs a nil check at call sites.
func (a *AgScanner) logger() elog.Logger {
	if a.log == nil {
		return elog.Noop{}
	}
	return a.log
}

// inodeBlockOffset converts an AG-relative block number into an absolute
// device byte offset.
func (a *AgScanner) inodeBlockOffset(agBlock uint32) int64 {
	return a.agOffset + int64(agBlock)*int64(a.sb.BlockSize)
}

// walkInodeBTree descends from the AGI root, collecting every leaf record
// (each an inode chunk) in ascending StartIno order. Short-form btree
// blocks are 16-byte headers (xfsformat.BTreeSBlock) followed either by
// key/pointer pairs (interior) or xfsformat.InodeBTRecord entries (leaf).
func (a *AgScanner) walkInodeBTree(ctx context.Context, root uint32, level uint32) ([]inodeChunk, error) {

	buf, err := a.eng.Read(ctx, ioengine.Range{Offset: a.inodeBlockOffset(root), Length: int64(a.sb.BlockSize)})
	if err != nil {
		return nil, err
	}

	hdrSize := 16
	if a.sb.HasCRC {
		hdrSize += xfsformat.V3HeaderSize
	}

	if len(buf) < hdrSize {
		return nil, &xfsformat.BadMagic{Expected: xfsformat.IBT3MagicNumber, Got: 0, Offset: a.inodeBlockOffset(root)}
	}

	magic := beUint32(buf[0:4])
	wantMagic := uint32(xfsformat.IBTMagicNumber)
	if a.sb.HasCRC {
		wantMagic = xfsformat.IBT3MagicNumber
	}
	if magic != wantMagic {
		return nil, &xfsformat.BadMagic{Expected: wantMagic, Got: magic, Offset: a.inodeBlockOffset(root)}
	}

	numRecs := beUint16(buf[6:8])
	blkLevel := beUint16(buf[4:6])

	pos := hdrSize
	var chunks []inodeChunk

	if blkLevel == 0 {
		for i := uint16(0); i < numRecs; i++ {
			if pos+16 > len(buf) {
				break
			}
			startIno := beUint32(buf[pos : pos+4])
			freeCount := beUint32(buf[pos+4 : pos+8])
			free := beUint64(buf[pos+8 : pos+16])

			c := inodeChunk{startIno: startIno, free: free}
			if a.sb.HasSparseInos {
				c.holemask = uint16(freeCount >> 16)
				c.freeCount = freeCount & 0xFFFF
				c.sparse = c.holemask != 0
			} else {
				c.freeCount = freeCount
			}
			chunks = append(chunks, c)
			pos += 16
		}
		return chunks, nil
	}

	// Interior node: numRecs key/ptr pairs, keys first then pointers
	// (short-form btree convention), each 4 bytes.
	keysStart := pos
	ptrsStart := pos + int(numRecs)*4
	for i := uint16(0); i < numRecs; i++ {
		ks := keysStart + int(i)*4
		ps := ptrsStart + int(i)*4
		if ps+4 > len(buf) {
			break
		}
		_ = beUint32(buf[ks : ks+4])
		childBlock := beUint32(buf[ps : ps+4])

		sub, err := a.walkInodeBTree(ctx, childBlock, uint32(blkLevel)-1)
		if err != nil {
			return chunks, err
		}
		chunks = append(chunks, sub...)
	}

	return chunks, nil
}

// ScanInodes traverses the AG's inode B+tree, batches reads for each
// inode chunk's backing blocks, decodes every allocated inode, and
// invokes cb in ascending inode-number order. It consumes this
// AgScanner and returns the S3 AgExtents phase.
func (a *AgScanner) ScanInodes(ctx context.Context, cb func(InodeEvent) Signal[any]) (*AgExtentPhase, *ErrorCounters, error) {

	if a.done {
		return nil, nil, &AlreadyScanned{Phase: "AgInodes"}
	}
	a.done = true

	counters := &ErrorCounters{}

	chunks, err := a.walkInodeBTree(ctx, a.agi.Root, a.agi.Level)
	if err != nil {
		return nil, counters, err
	}

	inodesPerChunk := uint32(64)
	blocksPerChunk := inodesPerChunk / uint32(a.sb.InodesPerBlock)
	if blocksPerChunk == 0 {
		blocksPerChunk = 1
	}

	windowBudget := int64(2 * 1024 * 1024 * 64) // max_merged * queue_depth / 2, using documented defaults
	var btreeInodes []uint64
	var dirInodes []uint64

	var pending []ioengine.Range
	var pendingChunks []inodeChunk
	pendingBytes := int64(0)

	flush := func() error {
		if len(pending) == 0 {
			return nil
		}
		bufs, err := a.eng.ReadMany(ctx, pending)
		if err != nil {
			return err
		}

		for ci, chunkBuf := range bufs {
			chunk := pendingChunks[ci]
			for j := uint32(0); j < inodesPerChunk; j++ {
				if chunk.sparse && chunk.holemask&(1<<(j/4)) != 0 {
					continue
				}
				if chunk.free&(1<<j) != 0 {
					continue // unallocated
				}

				off := int(j) * int(a.sb.InodeSize)
				if off+int(a.sb.InodeSize) > len(chunkBuf) {
					counters.BadInode++
					continue
				}

				di, err := xfsformat.DecodeInode(chunkBuf[off:off+int(a.sb.InodeSize)], a.sb.HasCRC, a.sb.HasNrext64)
				if err != nil {
					if _, ok := err.(*xfsformat.BadCrc); ok {
						counters.BadCrc++
						a.logger().Warnf("ag %d: crc mismatch decoding inode at chunk %d slot %d: %v", a.agNumber, chunk.startIno, j, err)
					} else {
						counters.BadInode++
						a.logger().Warnf("ag %d: dropping malformed inode at chunk %d slot %d: %v", a.agNumber, chunk.startIno, j, err)
						continue
					}
				}

				ino := xfsformat.JoinInodeNumber(a.agNumber, uint64(chunk.startIno+j), a.sb.Geometry)

				ev := InodeEvent{
					InodeNumber:    ino,
					Mode:           di.Core.Mode,
					UID:            di.Core.UID,
					GID:            di.Core.GID,
					Size:           uint64(di.Core.Size),
					Nlink:          di.Core.Nlink,
					AccessTime:     int64(di.Core.ATime.Sec),
					ModTime:        int64(di.Core.MTime.Sec),
					ChangeTime:     int64(di.Core.CTime.Sec),
					ExtentCount:    di.NExtents,
					DataForkFormat: di.DataForkFormat,
					AttrForkFormat: di.AttrForkFormat,
					Flags:          di.Core.Flags,
				}

				if di.DataForkFormat == xfsformat.InodeFormatBTree {
					btreeInodes = append(btreeInodes, ino)
				} else if di.DataForkFormat == xfsformat.InodeFormatExtents && len(di.LiteralArea) >= 16 {
					ev.InlineExtents = splitExtentArray(di.LiteralArea, int(di.NExtents))
				}

				if di.IsDirectory() {
					dirInodes = append(dirInodes, ino)
				}

				sig := cb(ev)
				if sig.IsBreak() {
					return errBreak
				}
			}
		}

		pending = pending[:0]
		pendingChunks = pendingChunks[:0]
		pendingBytes = 0
		return nil
	}

	for _, c := range chunks {
		r := ioengine.Range{
			Offset: a.inodeBlockOffset(c.startIno / uint32(a.sb.InodesPerBlock)),
			Length: int64(blocksPerChunk) * int64(a.sb.BlockSize),
		}
		pending = append(pending, r)
		pendingChunks = append(pendingChunks, c)
		pendingBytes += r.Length

		if pendingBytes >= windowBudget {
			if err := flush(); err != nil {
				if err == errBreak {
					return &AgExtentPhase{eng: a.eng, sb: a.sb, log: a.logger(), agNumber: a.agNumber, agOffset: a.agOffset, agBlocks: a.agBlocks, closed: a.closed, btreeInodes: btreeInodes, dirInodes: dirInodes}, counters, nil
				}
				return nil, counters, err
			}
		}
	}

	if err := flush(); err != nil && err != errBreak {
		return nil, counters, err
	}

	return &AgExtentPhase{eng: a.eng, sb: a.sb, log: a.logger(), agNumber: a.agNumber, agOffset: a.agOffset, agBlocks: a.agBlocks, closed: a.closed, btreeInodes: btreeInodes, dirInodes: dirInodes}, counters, nil
}

var errBreak = fmt.Errorf("scan: phase broken by callback")

func splitExtentArray(buf []byte, n int) [][16]byte {
	var out [][16]byte
	for i := 0; i < n && (i+1)*16 <= len(buf); i++ {
		var rec [16]byte
		copy(rec[:], buf[i*16:(i+1)*16])
		out = append(out, rec)
	}
	return out
}

func beUint16(b []byte) uint16 { return uint16(b[0])<<8 | uint16(b[1]) }
func beUint32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}
func beUint64(b []byte) uint64 {
	return uint64(beUint32(b[0:4]))<<32 | uint64(beUint32(b[4:8]))
}
