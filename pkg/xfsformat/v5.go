package xfsformat

// V5 adds a CRC-protected "v3" header to most metadata block types and a
// trailing extension to the superblock and inode core. The field order here
// follows the placeholder the teacher's compiler already sketched (as a
// commented-out block trailing SuperBlock) rather than inventing a new
// layout: RWFeatureFlags/ROFeatureFlags/RWIncompatFlags/Checksum/
// SparseInodeAlignment/ProjectQuotaInode/LastLogSeqNo/UUID2/RMBTInode, in
// that order, immediately after BadFeatures.
type V5SuperBlockExt struct {
	RWFeatureFlags       uint32   // 208
	ROFeatureFlags       uint32   // 212
	RWIncompatFlags      uint32   // 216
	RWIncompatLogFlags   uint32   // 220
	Checksum             uint32   // 224
	SparseInodeAlignment uint32   // 228
	ProjectQuotaInode    uint64   // 232
	LastLogSeqNo         uint64   // 240
	UUID2                [16]byte // 248
	RMBTInode            uint64   // 264
} // 272 total with the v4 prefix

// V3Header ("short header") is the CRC-protected trailer the v5 format adds
// to free-space and inode btree blocks, and to the AGF/AGI. Every v3 block
// carries it at a type-specific offset following the v4 header it extends.
type V3Header struct {
	CRC        uint32   // checksum of the whole block, computed with this field zeroed
	BlockNo    uint64   // verifies the block wasn't shuffled to another location
	LSN        uint64   // log sequence number of last write
	UUID       [16]byte // filesystem UUID, verifies the block belongs to this fs
	Owner      uint64   // owning AG or inode number, meaning depends on block type
}

// V3HeaderSize is V3Header's packed on-disk size in bytes.
const V3HeaderSize = 4 + 8 + 8 + 16 + 8

// V3InodeExt is appended after InodeCore on v5 (di_version == 3) inodes,
// between the core and the start of the literal area (data/attr forks).
type V3InodeExt struct {
	CRC          uint32    // 100
	ChangeCount  uint64    // 104
	LogSeqNo     uint64    // 112
	Flags2       uint64    // 120
	CowExtSize   uint32    // 128
	Pad          [12]byte  // 132
	CRTime       Timestamp // 144
	Ino          uint64    // 152
	UUID         [16]byte  // 160
} // 176 total with the v4 core prefix

// V3InodeExtSize is V3InodeExt's packed on-disk size in bytes.
const V3InodeExtSize = 4 + 8 + 8 + 8 + 4 + 12 + 8 + 8 + 16

// NREXT64 widens the in-core extent counters from int32/int16 (NExtents,
// ANExtents) to two uint64 fields occupying the same offset range; callers
// must know the feature bit before deciding which shape to decode.
type NRext64Counts struct {
	NExtents  uint64
	ANExtents uint64
}
