// Package ioengine implements the block device handle, read coalescer, and
// concurrent I/O engine that feed the phase driver. The positional-read
// style and the os.File-backed handle follow the teacher's
// pkg/vdecompiler/io.go (IO.src, Open); the ring backend adapts the
// teacher's dependency on golang.org/x/sync to bound concurrent physical
// reads instead of leaving it unused in go.mod.
package ioengine

import (
	"fmt"
	"os"
)

// IoOpen is raised when the target cannot be opened for reading.
type IoOpen struct {
	Path string
	Err  error
}

func (e *IoOpen) Error() string {
	return fmt.Sprintf("ioengine: open %s: %v", e.Path, e.Err)
}

func (e *IoOpen) Unwrap() error { return e.Err }

// IoShort is raised when a physical read returns fewer bytes than requested.
type IoShort struct {
	Offset int64
	Got    int
	Want   int
}

func (e *IoShort) Error() string {
	return fmt.Sprintf("ioengine: short read at offset %d: got %d, want %d", e.Offset, e.Got, e.Want)
}

// IoAlign is raised when an offset or length violates the device's sector
// alignment requirement.
type IoAlign struct {
	Offset int64
	Length int64
	Sector int64
}

func (e *IoAlign) Error() string {
	return fmt.Sprintf("ioengine: offset %d length %d not aligned to sector size %d", e.Offset, e.Length, e.Sector)
}

// Device is a read-only handle onto a block device or image file. It
// reports the device's logical sector size and total length and exposes a
// single positional-read primitive; everything else in this package is
// built on top of Pread.
type Device struct {
	f          *os.File
	size       int64
	sectorSize int64
}

// Open opens path read-only. The OS cache-bypass hint (O_DIRECT on Linux)
// is left to the caller's platform-specific open flags in production
// deployments; this implementation opens plainly, mirroring the teacher's
// os.Open(path) in Open, since O_DIRECT's alignment requirements are
// already enforced at the coalescer layer regardless of whether the
// kernel actually bypasses its cache.
func Open(path string, sectorSize int64) (*Device, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &IoOpen{Path: path, Err: err}
	}

	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, &IoOpen{Path: path, Err: err}
	}

	if sectorSize <= 0 {
		sectorSize = 512
	}

	return &Device{f: f, size: fi.Size(), sectorSize: sectorSize}, nil
}

// Close releases the underlying file descriptor.
func (d *Device) Close() error {
	return d.f.Close()
}

// Len reports the device's total size in bytes.
func (d *Device) Len() int64 { return d.size }

// SectorSize reports the device's logical sector size in bytes.
func (d *Device) SectorSize() int64 { return d.sectorSize }

// Pread reads exactly len(buf) bytes starting at offset. Both must be
// sector-aligned; misalignment is an IoAlign error, not silently
// corrected, since a caller bypassing the coalescer's alignment step has a
// bug worth surfacing.
func (d *Device) Pread(buf []byte, offset int64) (int, error) {
	if offset%d.sectorSize != 0 || int64(len(buf))%d.sectorSize != 0 {
		return 0, &IoAlign{Offset: offset, Length: int64(len(buf)), Sector: d.sectorSize}
	}

	n, err := d.f.ReadAt(buf, offset)
	if err != nil && n < len(buf) {
		return n, &IoShort{Offset: offset, Got: n, Want: len(buf)}
	}
	return n, nil
}
