// Package config is the single configuration record the spec's external
// interfaces section describes: a plain value struct passed by the caller,
// plus the optional FromEnv helper a future sample binary (out of scope for
// this library) could call to map FXFSP_* environment variables onto it.
// The core scan/ioengine packages never read os.Getenv themselves.
package config

import (
	"os"
	"strconv"

	"github.com/sisatech/fxfsp/pkg/elog"
	"github.com/sisatech/fxfsp/pkg/ioengine"
)

// Config bundles the I/O engine's tunables with the scan driver's own
// knobs (MaxAG, Logger) into the one record that flows from a caller,
// through ParseSuperblockWithConfig, to every phase.
type Config struct {
	IOEngine ioengine.Config

	// MaxAG caps how many allocation groups NextAG will produce, 0 meaning
	// no cap (walk every AG the superblock reports). Mirrors
	// FXFSP_MAX_AG, useful for smoke-testing a scan against only the
	// first few AGs of a large image.
	MaxAG uint32

	Logger elog.Logger
}

// Default returns the documented defaults: ioengine.DefaultConfig(), no AG
// cap, and a no-op logger.
func Default() Config {
	return Config{
		IOEngine: ioengine.DefaultConfig(),
		Logger:   elog.Noop{},
	}
}

// FromEnv starts from Default() and applies FXFSP_MERGE_GAP_KB,
// FXFSP_MAX_MERGED_KB, and FXFSP_MAX_AG overrides where present and
// well-formed; a malformed value is ignored and the default is kept rather
// than failing the whole configuration.
func FromEnv() Config {
	cfg := Default()

	if v, ok := lookupInt64("FXFSP_MERGE_GAP_KB"); ok {
		cfg.IOEngine.MergeGapBytes = v * 1024
	}
	if v, ok := lookupInt64("FXFSP_MAX_MERGED_KB"); ok {
		cfg.IOEngine.MaxMergedBytes = v * 1024
	}
	if v, ok := lookupUint32("FXFSP_MAX_AG"); ok {
		cfg.MaxAG = v
	}

	return cfg
}

func lookupInt64(name string) (int64, bool) {
	s := os.Getenv(name)
	if s == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

func lookupUint32(name string) (uint32, bool) {
	s := os.Getenv(name)
	if s == "" {
		return 0, false
	}
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, false
	}
	return uint32(n), true
}
