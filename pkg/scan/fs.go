package scan

import (
	"context"

	"github.com/sisatech/fxfsp/pkg/config"
	"github.com/sisatech/fxfsp/pkg/elog"
	"github.com/sisatech/fxfsp/pkg/ioengine"
	"github.com/sisatech/fxfsp/pkg/xfsformat"
)

// Engine is the subset of *ioengine.Engine the phase driver depends on,
// narrowed so tests can supply a fake without constructing a real device.
type Engine interface {
	Read(ctx context.Context, r ioengine.Range) ([]byte, error)
	ReadMany(ctx context.Context, ranges []ioengine.Range) ([][]byte, error)
}

// ParseSuperblock reads and decodes the primary superblock using the
// documented default configuration, returning the S1 FsReady phase handle.
// Equivalent to ParseSuperblockWithConfig(ctx, eng, config.Default()).
func ParseSuperblock(ctx context.Context, eng Engine) (*xfsformat.SuperblockInfo, *FsScanner, error) {
	return ParseSuperblockWithConfig(ctx, eng, config.Default())
}

// ParseSuperblockWithConfig is the single entry point into the scan:
// everything downstream is reached only by consuming the phase returned
// here. cfg.Logger is threaded through every subsequent phase; cfg.MaxAG
// bounds how many allocation groups NextAG will produce.
func ParseSuperblockWithConfig(ctx context.Context, eng Engine, cfg config.Config) (*xfsformat.SuperblockInfo, *FsScanner, error) {

	log := cfg.Logger
	if log == nil {
		log = elog.Noop{}
	}

	buf, err := eng.Read(ctx, ioengine.Range{Offset: 0, Length: int64(xfsformat.SectorSize)})
	if err != nil {
		return nil, nil, err
	}

	sb, err := xfsformat.DecodeSuperblock(buf)
	if err != nil {
		return nil, nil, err
	}

	log.Debugf("parsed superblock: ag_count=%d ag_blocks=%d block_size=%d v5=%v", sb.AGCount, sb.AGBlocks, sb.BlockSize, sb.IsV5)

	fs := &FsScanner{
		eng:    eng,
		sb:     sb,
		log:    log,
		maxAG:  cfg.MaxAG,
		nextAG: 0,
	}

	return sb, fs, nil
}

// FsScanner is the S1 FsReady phase: repeatedly call NextAG to walk
// allocation groups in order. It is safe to call NextAG any number of
// times; each call produces a fresh, single-use AgScanner.
type FsScanner struct {
	eng    Engine
	sb     *xfsformat.SuperblockInfo
	log    elog.Logger
	maxAG  uint32
	nextAG uint32

	// outstanding tracks whether the most recently issued AgScanner's
	// phase chain has reached S1. nil means no AG has been issued yet.
	outstanding *bool
}

// NextAG produces the next allocation group's S2 AgInodes phase handle,
// or (nil, nil) once every AG has been produced (or, if the configuration
// set MaxAG, once that cap is reached). Per §4.G, the previously issued
// AG's phase chain must have reached S1 (its AgDirPhase must have run
// ScanDirEntries or SkipDirs) before a new one is handed out.
func (fs *FsScanner) NextAG(ctx context.Context) (*AgScanner, error) {

	if fs.outstanding != nil && !*fs.outstanding {
		return nil, &AGNotClosed{AG: fs.nextAG - 1}
	}

	if fs.nextAG >= fs.sb.AGCount {
		return nil, nil
	}
	if fs.maxAG > 0 && fs.nextAG >= fs.maxAG {
		fs.log.Debugf("stopping at ag cap %d", fs.maxAG)
		return nil, nil
	}

	agNumber := fs.nextAG
	fs.nextAG++

	agBlocks := xfsformat.BlocksInAG(agNumber, fs.sb.Geometry, fs.sb.DataBlocks)
	agOffset := int64(agNumber) * int64(fs.sb.AGBlocks) * int64(fs.sb.BlockSize)

	agiBuf, err := fs.eng.Read(ctx, ioengine.Range{Offset: agOffset + int64(fs.sb.SectorSize), Length: int64(fs.sb.SectorSize)})
	if err != nil {
		return nil, err
	}

	agi, err := xfsformat.DecodeAGI(agiBuf, fs.sb.HasCRC)
	if err != nil {
		return nil, err
	}

	agfBuf, err := fs.eng.Read(ctx, ioengine.Range{Offset: agOffset, Length: int64(fs.sb.SectorSize)})
	if err != nil {
		return nil, err
	}
	if agf, err := xfsformat.DecodeAGF(agfBuf); err == nil && agf.Length != 0 {
		agBlocks = agf.Length
	} else if err != nil {
		fs.log.Debugf("ag %d: agf unreadable, falling back to computed block count: %v", agNumber, err)
	}

	fs.log.Debugf("ag %d: inode btree root=%d level=%d count=%d blocks=%d", agNumber, agi.Root, agi.Level, agi.Count, agBlocks)

	closed := new(bool)
	fs.outstanding = closed

	return &AgScanner{
		eng:      fs.eng,
		sb:       fs.sb,
		log:      fs.log,
		agNumber: agNumber,
		agOffset: agOffset,
		agBlocks: agBlocks,
		closed:   closed,
		agi:      agi,
	}, nil
}
