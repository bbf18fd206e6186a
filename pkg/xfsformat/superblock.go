package xfsformat

import (
	"bytes"
	"encoding/binary"

	"github.com/google/uuid"
)

// SuperblockInfo is the owned, immutable-after-decode view of the
// superblock §3 of the spec describes: everything downstream parsing needs,
// already converted out of the packed on-disk byte order.
type SuperblockInfo struct {
	BlockSize      uint32
	SectorSize     uint16
	InodeSize      uint16
	InodesPerBlock uint16
	AGBlocks       uint32
	AGCount        uint32
	DataBlocks     uint64
	UUID           uuid.UUID
	RootInode      uint64
	LogStart       uint64

	VersionNum   uint16
	MoreFeatures uint32

	IsV5          bool
	HasCRC        bool
	HasFtype      bool
	HasNrext64    bool
	HasSparseInos bool

	Geometry Geometry
}

// DecodeSuperblock parses the primary superblock out of a 512-byte-or-larger
// buffer (buf must contain at least the first sector of the image). It
// validates the magic number and, for v5 images, the embedded CRC.
func DecodeSuperblock(buf []byte) (*SuperblockInfo, error) {

	if len(buf) < 208 {
		return nil, &BadMagic{Expected: SBMagicNumber, Got: 0, Offset: 0}
	}

	var sb SuperBlock
	if err := binary.Read(bytes.NewReader(buf[:208]), binary.BigEndian, &sb); err != nil {
		return nil, err
	}

	if sb.MagicNumber != SBMagicNumber {
		return nil, &BadMagic{Expected: SBMagicNumber, Got: sb.MagicNumber, Offset: 0}
	}

	versionNumber := sb.VersionNum & 0x000F
	if versionNumber != VersionNumber && versionNumber != Version5Number {
		return nil, &UnsupportedVersion{VersionNum: sb.VersionNum}
	}

	fsUUID, err := uuid.FromBytes(sb.UUID[:])
	if err != nil {
		return nil, err
	}

	info := &SuperblockInfo{
		BlockSize:      sb.BlockSize,
		SectorSize:     sb.SectorSize,
		InodeSize:      sb.InodeSize,
		InodesPerBlock: sb.InodesPerBlock,
		AGBlocks:       sb.AGBlocks,
		AGCount:        sb.AGCount,
		DataBlocks:     sb.DataBlocks,
		UUID:           fsUUID,
		RootInode:      sb.RootInode,
		LogStart:       sb.LogStart,
		VersionNum:     sb.VersionNum,
		MoreFeatures:   sb.MoreFeatures,
		IsV5:           versionNumber == Version5Number,
	}

	info.HasFtype = sb.VersionNum&VersionMoreBitsBit != 0 && sb.MoreFeatures&Version2Ftype != 0

	if info.IsV5 {
		if len(buf) < 208+4 {
			return nil, &BadMagic{Expected: SBMagicNumber, Got: sb.MagicNumber, Offset: 0}
		}
		var ext V5SuperBlockExt
		if err := binary.Read(bytes.NewReader(buf[208:]), binary.BigEndian, &ext); err != nil {
			return nil, err
		}
		info.HasCRC = true
		info.HasFtype = info.HasFtype || ext.RWIncompatFlags&IncompatFtype != 0
		info.HasNrext64 = ext.RWIncompatFlags&IncompatNrext64 != 0
		info.HasSparseInos = ext.RWIncompatFlags&IncompatSparseInos != 0

		if unknown := ext.RWIncompatFlags &^ (IncompatFtype | IncompatSparseInos | IncompatNrext64); unknown != 0 {
			return nil, &UnsupportedFeature{Bits: unknown}
		}

		if !ValidateCRC(buf[:sbCRCBufferLen(info.SectorSize)], 224) {
			return nil, &BadCrc{Offset: 224}
		}
	}

	info.Geometry = Geometry{
		AGBlocksLog:       log2Uint32(sb.AGBlocks),
		InodesPerBlockLog: log2Uint16(sb.InodesPerBlock),
		AGCount:           sb.AGCount,
		AGBlocks:          sb.AGBlocks,
	}

	return info, nil
}

// sbCRCBufferLen returns how much of the superblock sector participates in
// the CRC: the whole sector the superblock occupies, per XFS convention.
func sbCRCBufferLen(sectorSize uint16) int {
	if sectorSize == 0 {
		return SectorSize
	}
	return int(sectorSize)
}

func log2Uint32(x uint32) uint8 {
	var n uint8
	for x > 1 {
		x >>= 1
		n++
	}
	return n
}

func log2Uint16(x uint16) uint8 {
	var n uint8
	for x > 1 {
		x >>= 1
		n++
	}
	return n
}
