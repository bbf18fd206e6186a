// Package xfsdir decodes XFS directory block formats into a stream of
// name/inode/ftype records. The entry layout and the short-form header
// mirror the encoders in the teacher's pkg/xfs/dir.go
// (generateShortFormDirectoryData, writeDir2Dentries, addDentry) run in
// reverse; hashname is ported byte-for-byte from the same file.
package xfsdir

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strings"
)

// BadDirent is raised for a structurally invalid directory entry: a
// zero-length name, or a name containing NUL or '/'.
type BadDirent struct {
	Offset int64
	Reason string
}

func (e *BadDirent) Error() string {
	return fmt.Sprintf("xfsdir: bad dirent at offset %d: %s", e.Offset, e.Reason)
}

// Entry is one decoded directory entry.
type Entry struct {
	Inode uint64
	Name  string
	FType uint8 // FTypeUnknown (0) when the ftype feature is off
}

// hashname is the real XFS directory hash function: rotate-left-7,
// 4 bytes at a time, ported from the teacher's compiler so synthesized
// fixtures in tests can assert recovered entries sort into the same hash
// order a real mkfs would have produced.
func hashname(name string) uint32 {

	var hash uint32

	rol32 := func(word uint32, shift int) uint32 {
		return (word << (shift & 31)) | (word >> ((-shift) & 31))
	}

	for {
		switch len(name) {
		case 0:
			return hash
		case 1:
			hash = (uint32(name[0]) << 0) ^ rol32(hash, 7*1)
			name = name[1:]
		case 2:
			hash = (uint32(name[0]) << 7) ^ (uint32(name[1]) << 0) ^ rol32(hash, 7*2)
			name = name[2:]
		case 3:
			hash = (uint32(name[0]) << 14) ^ (uint32(name[1]) << 7) ^ (uint32(name[2]) << 0) ^ rol32(hash, 7*3)
			name = name[3:]
		default:
			hash = (uint32(name[0]) << 21) ^ (uint32(name[1]) << 14) ^ (uint32(name[2]) << 7) ^ (uint32(name[3]) << 0) ^ rol32(hash, 7*4)
			name = name[4:]
		}
	}

}

// Hashname exposes the dirhash algorithm for tests that want to check
// recovered entries against the order a real mkfs would have produced.
func Hashname(name string) uint32 { return hashname(name) }

func validName(name string) error {
	if len(name) == 0 || len(name) > 255 {
		return fmt.Errorf("length %d out of range", len(name))
	}
	if strings.ContainsAny(name, "\x00/") {
		return fmt.Errorf("contains NUL or '/'")
	}
	return nil
}

// DecodeShortForm decodes an inline short-form directory out of an inode's
// data fork literal area. Layout: 1-byte entry count, 1 byte pad, 4-byte
// parent inode, then that many variable-length entries of
// {namelen(u8), offset(u16), name bytes, inode(u32)}.
func DecodeShortForm(buf []byte, parentInode uint64) ([]Entry, []error) {

	var errs []error
	var entries []Entry

	if len(buf) < 6 {
		return nil, []error{&BadDirent{Offset: 0, Reason: "short-form header truncated"}}
	}

	count := buf[0]
	off := int64(6)

	entries = append(entries, Entry{Inode: parentInode, Name: ".", FType: 2})

	r := bytes.NewReader(buf[2:6])
	var parent uint32
	_ = binary.Read(r, binary.BigEndian, &parent)
	entries = append(entries, Entry{Inode: uint64(parent), Name: "..", FType: 2})

	pos := int(off)
	for i := uint8(0); i < count; i++ {
		if pos+3 > len(buf) {
			errs = append(errs, &BadDirent{Offset: int64(pos), Reason: "entry header truncated"})
			break
		}

		namelen := int(buf[pos])
		nameStart := pos + 3
		nameEnd := nameStart + namelen

		if namelen == 0 || nameEnd+4 > len(buf) {
			errs = append(errs, &BadDirent{Offset: int64(pos), Reason: "entry truncated or zero-length name"})
			break
		}

		name := string(buf[nameStart:nameEnd])
		if err := validName(name); err != nil {
			errs = append(errs, &BadDirent{Offset: int64(pos), Reason: err.Error()})
			pos = nameEnd + 4
			continue
		}

		var ino uint32
		_ = binary.Read(bytes.NewReader(buf[nameEnd:nameEnd+4]), binary.BigEndian, &ino)

		entries = append(entries, Entry{Inode: uint64(ino), Name: name, FType: 0})

		pos = nameEnd + 4
	}

	return entries, errs
}

// DecodeDataBlock decodes one XFS_DIR2_DATA-format block (used standalone
// for the "block" directory format, and repeated per data block in the
// leaf/node formats). hasFtype selects whether a trailing file-type byte
// follows each entry's name, per the ftype feature bit. Unused-entry
// markers (freetag == 0xFFFF) are skipped.
func DecodeDataBlock(buf []byte, hasFtype bool) ([]Entry, []error) {

	var entries []Entry
	var errs []error

	// Skip the 16-byte Dir2Header (magic + best-free array); real parsing
	// starts right after it.
	if len(buf) < 16 {
		return nil, []error{&BadDirent{Offset: 0, Reason: "data block header truncated"}}
	}

	pos := 16
	for pos+8 <= len(buf) {

		freeTag := binary.BigEndian.Uint16(buf[pos : pos+2])
		if freeTag == 0xFFFF {
			length := binary.BigEndian.Uint16(buf[pos+2 : pos+4])
			if length == 0 {
				break
			}
			pos += int(length)
			continue
		}

		if pos+9 > len(buf) {
			errs = append(errs, &BadDirent{Offset: int64(pos), Reason: "entry header truncated"})
			break
		}

		ino := binary.BigEndian.Uint64(buf[pos : pos+8])
		namelen := int(buf[pos+8])

		nameStart := pos + 9
		nameEnd := nameStart + namelen

		if namelen == 0 || nameEnd > len(buf) {
			errs = append(errs, &BadDirent{Offset: int64(pos), Reason: "zero-length or truncated name"})
			break
		}

		name := string(buf[nameStart:nameEnd])

		cursor := nameEnd
		var ftype uint8
		if hasFtype {
			if cursor >= len(buf) {
				errs = append(errs, &BadDirent{Offset: int64(pos), Reason: "truncated ftype byte"})
				break
			}
			ftype = buf[cursor]
			cursor++
		}

		// tag (u16) follows, then padding out to the next 8-byte boundary;
		// total record length determines the next entry's offset.
		recLen := align(int64(cursor+2-pos), 8)

		if err := validName(name); err != nil {
			errs = append(errs, &BadDirent{Offset: int64(pos), Reason: err.Error()})
			pos += int(recLen)
			continue
		}

		entries = append(entries, Entry{Inode: ino, Name: name, FType: ftype})

		pos += int(recLen)
	}

	return entries, errs
}

func align(x, y int64) int64 {
	return ((x + y - 1) / y) * y
}
