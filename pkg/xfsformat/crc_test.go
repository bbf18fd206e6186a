package xfsformat

import (
	"hash/crc32"
	"testing"
)

func TestValidateCRCRoundTrip(t *testing.T) {
	buf := make([]byte, 64)
	for i := range buf {
		buf[i] = byte(i)
	}
	crcOffset := 8
	buf[crcOffset] = 0
	buf[crcOffset+1] = 0
	buf[crcOffset+2] = 0
	buf[crcOffset+3] = 0

	sum := crc32.Checksum(buf, crc32cTable)
	buf[crcOffset] = byte(sum >> 24)
	buf[crcOffset+1] = byte(sum >> 16)
	buf[crcOffset+2] = byte(sum >> 8)
	buf[crcOffset+3] = byte(sum)

	if !ValidateCRC(buf, crcOffset) {
		t.Fatalf("expected freshly computed CRC to validate")
	}
}

func TestValidateCRCDetectsBitFlip(t *testing.T) {
	buf := make([]byte, 64)
	for i := range buf {
		buf[i] = byte(i)
	}
	crcOffset := 8
	sum := crc32.Checksum(buf, crc32cTable)
	buf[crcOffset] = byte(sum >> 24)
	buf[crcOffset+1] = byte(sum >> 16)
	buf[crcOffset+2] = byte(sum >> 8)
	buf[crcOffset+3] = byte(sum)

	buf[40] ^= 0x01 // flip a single bit outside the CRC field

	if ValidateCRC(buf, crcOffset) {
		t.Fatalf("expected bit flip to invalidate the CRC")
	}
}

func TestValidateCRCRejectsShortBuffer(t *testing.T) {
	if ValidateCRC([]byte{1, 2, 3}, 0) {
		t.Fatalf("expected a too-short buffer to fail validation")
	}
}
