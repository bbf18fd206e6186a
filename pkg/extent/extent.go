// Package extent decodes XFS's packed 128-bit file-extent record, the exact
// inverse of the bit-packing the teacher's image compiler performs when it
// builds an extent record for a freshly-written inode
// (pkg/xfs/xfs.go:popInode, the xblocks/xnumber/xoffset/xe sequence):
//
//	xblocks.L = uint64(e.length) & 0x1FFFFF;            xblocks <<= 0
//	xnumber.L = uint64(e.first)  & 0x0FFFFFFFFFFFFF;    xnumber <<= 21
//	xoffset.L = uint64(e.offset) & 0x3FFFFFFFFFFFFF;    xoffset <<= 73
//	xe = xblocks | xnumber | xoffset
//
// which packs, big-endian, MSB-first: 1 unwritten bit, 54 bits of logical
// offset, 52 bits of physical block, 21 bits of length.
package extent

import (
	"encoding/binary"
	"fmt"

	"github.com/davidminor/uint128"
)

// BadExtent is raised for a structurally-invalid decoded extent record:
// zero length, or a physical block resolving outside the AG count.
type BadExtent struct {
	Reason string
}

func (e *BadExtent) Error() string {
	return fmt.Sprintf("extent: %s", e.Reason)
}

// Extent is the owned, decoded view of one packed extent record.
type Extent struct {
	LogicalOffset uint64 // file blocks
	AGNumber      uint32
	AGBlock       uint32
	Length        uint32 // file blocks
	Unwritten     bool
}

const (
	lengthBits = 21
	physBits   = 52
	offsetBits = 54

	lengthMask = (uint64(1) << lengthBits) - 1
	physMask   = (uint64(1) << physBits) - 1
	offsetMask = (uint64(1) << offsetBits) - 1
)

var (
	lengthMaskU128 = uint128.Uint128{L: lengthMask}
	physMaskU128   = uint128.Uint128{L: physMask}
	offsetMaskU128 = uint128.Uint128{L: offsetMask}
)

// Decode unpacks a 16-byte big-endian packed extent record. blocksPerAG and
// agCount come from the filesystem's geometry and are used to validate the
// physical block resolves to a real AG, per §4.E steps 2-3.
//
// This mirrors the teacher's encode side (pkg/xfs/xfs.go's
// xblocks/xnumber/xoffset construction via Uint128.ShiftLeft/Or) in
// reverse: the packed value is shifted right past each lower field and
// masked off with Uint128.And, one field at a time.
func Decode(raw [16]byte, blocksPerAG uint64, agCount uint32) (Extent, error) {

	hi := binary.BigEndian.Uint64(raw[0:8])
	lo := binary.BigEndian.Uint64(raw[8:16])

	packed := uint128.Uint128{H: hi, L: lo}

	unwritten := packed.ShiftRight(127).L&1 != 0

	length := packed.And(lengthMaskU128).L

	phys := packed.ShiftRight(lengthBits).And(physMaskU128).L

	offset := packed.ShiftRight(lengthBits + physBits).And(offsetMaskU128).L

	if length == 0 {
		return Extent{}, &BadExtent{Reason: "length is zero"}
	}

	if blocksPerAG == 0 {
		return Extent{}, &BadExtent{Reason: "blocksPerAG is zero"}
	}

	agNumber := phys / blocksPerAG
	agBlock := phys % blocksPerAG

	if agNumber >= uint64(agCount) {
		return Extent{}, &BadExtent{Reason: "ag_number out of range"}
	}

	return Extent{
		LogicalOffset: offset,
		AGNumber:      uint32(agNumber),
		AGBlock:       uint32(agBlock),
		Length:        uint32(length),
		Unwritten:     unwritten,
	}, nil
}
