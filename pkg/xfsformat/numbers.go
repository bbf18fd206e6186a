package xfsformat

// Geometry carries the handful of superblock-derived shift amounts needed
// to split and join inode and block numbers. It mirrors the teacher's
// compiler-side `constants` type (pkg/xfs/xfs.go), which builds absolute
// inode/block numbers by left-shifting an AG index and OR-ing in an
// AG-relative value; SplitInodeNumber/SplitBlockNumber here perform the
// inverse shift-and-mask a scanner needs.
type Geometry struct {
	AGBlocksLog   uint8 // log2(blocks per AG)
	InodesPerBlockLog uint8 // log2(inodes per block) = blockSizeLog - inodeSizeLog
	AGCount       uint32
	AGBlocks      uint32 // blocks in a full AG (last AG may be short)
}

// InoBits returns the number of low bits of an absolute inode number that
// are AG-relative; the remaining high bits are the AG index.
func (g Geometry) InoBits() uint {
	return uint(g.AGBlocksLog) + uint(g.InodesPerBlockLog)
}

// SplitInodeNumber decomposes a filesystem-wide inode number into its AG
// index and AG-relative value, the inverse of the teacher's
// constants.inodeNumber(ag, rel).
func SplitInodeNumber(ino uint64, g Geometry) (agNumber uint32, agRelative uint64) {
	bits := g.InoBits()
	agNumber = uint32(ino >> bits)
	mask := (uint64(1) << bits) - 1
	agRelative = ino & mask
	return
}

// JoinInodeNumber is the inverse of SplitInodeNumber, used by tests to
// synthesize fixtures and round-trip the split.
func JoinInodeNumber(agNumber uint32, agRelative uint64, g Geometry) uint64 {
	bits := g.InoBits()
	return (uint64(agNumber) << bits) | agRelative
}

// SplitBlockNumber decomposes an absolute (filesystem-wide) block number
// into (ag_number, ag_block), the inverse of constants.blockNumber(ag, rel).
func SplitBlockNumber(block uint64, g Geometry) (agNumber uint32, agBlock uint32) {
	agNumber = uint32(block >> g.AGBlocksLog)
	mask := (uint64(1) << g.AGBlocksLog) - 1
	agBlock = uint32(block & mask)
	return
}

// BlocksInAG returns the block count of AG number ag, accounting for the
// last AG in the filesystem commonly being short of a full AGBlocks.
func BlocksInAG(ag uint32, g Geometry, totalBlocks uint64) uint32 {
	if ag != g.AGCount-1 {
		return g.AGBlocks
	}
	full := uint64(g.AGBlocks) * uint64(g.AGCount-1)
	if totalBlocks <= full {
		return 0
	}
	return uint32(totalBlocks - full)
}
