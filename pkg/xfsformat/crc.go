package xfsformat

import (
	"encoding/binary"
	"hash/crc32"
)

// crc32cTable is the Castagnoli polynomial table XFS v5 uses for every
// on-disk CRC. hash/crc32 with crc32.MakeTable(crc32.Castagnoli) is the same
// primitive the rest of the retrieval pack reaches for when validating an
// on-disk filesystem CRC32C (ext4, for one) - this isn't a stdlib fallback,
// it's the idiomatic choice.
var crc32cTable = crc32.MakeTable(crc32.Castagnoli)

// ValidateCRC recomputes the CRC-32C of buf with the 4 bytes at crcOffset
// zeroed (XFS's documented convention: the CRC field reads as zero during
// its own computation) and compares it against the stored value.
func ValidateCRC(buf []byte, crcOffset int) bool {
	if crcOffset < 0 || crcOffset+4 > len(buf) {
		return false
	}

	stored := binary.BigEndian.Uint32(buf[crcOffset : crcOffset+4])

	scratch := make([]byte, len(buf))
	copy(scratch, buf)
	scratch[crcOffset] = 0
	scratch[crcOffset+1] = 0
	scratch[crcOffset+2] = 0
	scratch[crcOffset+3] = 0

	computed := crc32.Checksum(scratch, crc32cTable)

	return computed == stored
}
