package scan

import (
	"bytes"
	"context"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sisatech/fxfsp/pkg/config"
	"github.com/sisatech/fxfsp/pkg/elog"
	"github.com/sisatech/fxfsp/pkg/ioengine"
	"github.com/sisatech/fxfsp/pkg/xfsformat"
)

// fakeEngine is a minimal in-memory Engine backing ParseSuperblockWithConfig
// and NextAG tests: a map from byte offset to the exact buffer a read at
// that offset should return, zero-padded or zero-filled otherwise.
type fakeEngine struct {
	blocks map[int64][]byte
}

func (f *fakeEngine) Read(ctx context.Context, r ioengine.Range) ([]byte, error) {
	out := make([]byte, r.Length)
	if buf, ok := f.blocks[r.Offset]; ok {
		copy(out, buf)
	}
	return out, nil
}

func (f *fakeEngine) ReadMany(ctx context.Context, ranges []ioengine.Range) ([][]byte, error) {
	out := make([][]byte, len(ranges))
	for i, r := range ranges {
		b, err := f.Read(ctx, r)
		if err != nil {
			return nil, err
		}
		out[i] = b
	}
	return out, nil
}

func buildV4Superblock(agCount, agBlocks, blockSize uint32) []byte {
	sb := xfsformat.SuperBlock{
		MagicNumber:    xfsformat.SBMagicNumber,
		BlockSize:      blockSize,
		AGBlocks:       agBlocks,
		AGCount:        agCount,
		VersionNum:     xfsformat.VersionNumber,
		SectorSize:     512,
		InodeSize:      256,
		InodesPerBlock: uint16(blockSize / 256),
	}
	buf := new(bytes.Buffer)
	if err := binary.Write(buf, binary.BigEndian, &sb); err != nil {
		panic(err)
	}
	out := buf.Bytes()
	if len(out) < int(xfsformat.SectorSize) {
		out = append(out, make([]byte, int(xfsformat.SectorSize)-len(out))...)
	}
	return out
}

func buildAGI(root uint32) []byte {
	agi := xfsformat.AGI{
		Magic: xfsformat.AGIMagicNumber,
		Root:  root,
	}
	buf := new(bytes.Buffer)
	if err := binary.Write(buf, binary.BigEndian, &agi); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// closeAG fully drives ag's phase chain to S1 without touching any inode,
// extent, or directory data: ScanInodes with a callback that never breaks,
// then SkipExtents, then SkipDirs. NextAG refuses to hand back a new
// AgScanner until this chain has run (§4.G).
func closeAG(t *testing.T, ag *AgScanner) {
	t.Helper()

	extents, _, err := ag.ScanInodes(context.Background(), func(InodeEvent) Signal[any] { return Continue[any]() })
	require.NoError(t, err)

	dirs, err := extents.SkipExtents()
	require.NoError(t, err)

	require.NoError(t, dirs.SkipDirs())
}

// TestMaxAGCapsNextAG exercises config.Config.MaxAG end to end: a 4-AG
// image configured with MaxAG=2 must stop NextAG after two allocation
// groups, even though the superblock itself reports four.
func TestMaxAGCapsNextAG(t *testing.T) {
	const (
		agCount   = 4
		agBlocks  = 1000
		blockSize = 4096
	)

	eng := &fakeEngine{blocks: map[int64][]byte{
		0: buildV4Superblock(agCount, agBlocks, blockSize),
	}}

	for ag := uint32(0); ag < agCount; ag++ {
		agOffset := int64(ag) * int64(agBlocks) * int64(blockSize)
		eng.blocks[agOffset+int64(xfsformat.SectorSize)] = buildAGI(1)
	}

	cfg := config.Default()
	cfg.MaxAG = 2
	cfg.Logger = elog.Noop{}

	_, fs, err := ParseSuperblockWithConfig(context.Background(), eng, cfg)
	require.NoError(t, err)

	count := 0
	for {
		ag, err := fs.NextAG(context.Background())
		require.NoError(t, err)
		if ag == nil {
			break
		}
		closeAG(t, ag)
		count++
	}

	require.Equal(t, 2, count, "expected MaxAG=2 to cap the walk at 2 AGs")
}

// TestParseSuperblockDefaultsWalkEveryAG confirms that the plain
// ParseSuperblock entry point (no explicit config) imposes no AG cap.
func TestParseSuperblockDefaultsWalkEveryAG(t *testing.T) {
	const (
		agCount   = 3
		agBlocks  = 1000
		blockSize = 4096
	)

	eng := &fakeEngine{blocks: map[int64][]byte{
		0: buildV4Superblock(agCount, agBlocks, blockSize),
	}}
	for ag := uint32(0); ag < agCount; ag++ {
		agOffset := int64(ag) * int64(agBlocks) * int64(blockSize)
		eng.blocks[agOffset+int64(xfsformat.SectorSize)] = buildAGI(1)
	}

	_, fs, err := ParseSuperblock(context.Background(), eng)
	require.NoError(t, err)

	count := 0
	for {
		ag, err := fs.NextAG(context.Background())
		require.NoError(t, err)
		if ag == nil {
			break
		}
		closeAG(t, ag)
		count++
	}

	require.Equal(t, agCount, count, "expected all AGs to be walked")
}

// TestNextAGRejectsUnclosedPrevious confirms the §4.G gate: calling NextAG
// again before the previously issued AgScanner's phase chain has reached
// S1 fails with *AGNotClosed instead of silently handing out a new AG.
func TestNextAGRejectsUnclosedPrevious(t *testing.T) {
	const (
		agCount   = 2
		agBlocks  = 1000
		blockSize = 4096
	)

	eng := &fakeEngine{blocks: map[int64][]byte{
		0: buildV4Superblock(agCount, agBlocks, blockSize),
	}}
	for ag := uint32(0); ag < agCount; ag++ {
		agOffset := int64(ag) * int64(agBlocks) * int64(blockSize)
		eng.blocks[agOffset+int64(xfsformat.SectorSize)] = buildAGI(1)
	}

	_, fs, err := ParseSuperblock(context.Background(), eng)
	require.NoError(t, err)

	first, err := fs.NextAG(context.Background())
	require.NoError(t, err)
	require.NotNil(t, first)

	_, err = fs.NextAG(context.Background())
	require.Error(t, err)
	require.IsType(t, &AGNotClosed{}, err)

	closeAG(t, first)

	second, err := fs.NextAG(context.Background())
	require.NoError(t, err)
	require.NotNil(t, second)
}
