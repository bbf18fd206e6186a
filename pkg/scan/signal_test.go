package scan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignalContinue(t *testing.T) {
	s := Continue[int]()
	assert.False(t, s.IsBreak(), "expected Continue to not be a break")
}

func TestSignalBreakCarriesValue(t *testing.T) {
	s := Break(42)
	assert.True(t, s.IsBreak(), "expected Break to report IsBreak")
	assert.Equal(t, 42, s.Value())
}

func TestPhaseRejectsSecondScan(t *testing.T) {
	p := &AgExtentPhase{}

	_, err := p.SkipExtents()
	require.NoError(t, err, "first SkipExtents should succeed")

	_, err = p.SkipExtents()
	require.Error(t, err, "expected second SkipExtents to fail the single-use guard")
	assert.IsType(t, &AlreadyScanned{}, err)
}

func TestDirPhaseRejectsSecondScan(t *testing.T) {
	p := &AgDirPhase{}

	err := p.SkipDirs()
	require.NoError(t, err, "first SkipDirs should succeed")

	err = p.SkipDirs()
	require.Error(t, err, "expected second SkipDirs to fail the single-use guard")
	assert.IsType(t, &AlreadyScanned{}, err)
}
