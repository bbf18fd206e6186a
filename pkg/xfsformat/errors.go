package xfsformat

import "fmt"

// BadMagic is raised whenever a parser reads a block whose magic number
// doesn't match what the block type and feature set predict.
type BadMagic struct {
	Expected uint32
	Got      uint32
	Offset   int64
}

func (e *BadMagic) Error() string {
	return fmt.Sprintf("xfsformat: bad magic at offset %d: expected 0x%x, got 0x%x", e.Offset, e.Expected, e.Got)
}

// BadCrc is raised when a v5 block's embedded CRC-32C doesn't match its
// contents. It is non-fatal: the caller reports it and moves on to the next
// sibling block.
type BadCrc struct {
	Offset int64
}

func (e *BadCrc) Error() string {
	return fmt.Sprintf("xfsformat: crc mismatch at offset %d", e.Offset)
}

// UnsupportedVersion is raised when the superblock's version field names a
// format this package doesn't know (anything other than v4 or v5).
type UnsupportedVersion struct {
	VersionNum uint16
}

func (e *UnsupportedVersion) Error() string {
	return fmt.Sprintf("xfsformat: unsupported superblock version number 0x%x", e.VersionNum)
}

// UnsupportedFeature is raised when a required incompat feature bit isn't
// recognized; parsing stops rather than silently misinterpreting the image.
type UnsupportedFeature struct {
	Bits uint32
}

func (e *UnsupportedFeature) Error() string {
	return fmt.Sprintf("xfsformat: unsupported incompat feature bits 0x%x", e.Bits)
}
