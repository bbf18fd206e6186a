package ioengine

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Backend selects which physical-read strategy Engine.ReadMany uses.
type Backend int

const (
	// BackendAuto picks Ring when QueueDepth > 1, Sync otherwise.
	BackendAuto Backend = iota
	BackendSync
	BackendRing
)

// Config mirrors the configuration record described for the scan: merge
// and size thresholds for the coalescer plus the engine's concurrency
// budget.
type Config struct {
	MergeGapBytes  int64
	MaxMergedBytes int64
	QueueDepth     int
	Backend        Backend
}

// DefaultConfig matches the documented defaults: 256 KiB merge gap, 2 MiB
// max merged read, queue depth 128, automatic backend selection.
func DefaultConfig() Config {
	return Config{
		MergeGapBytes:  256 * 1024,
		MaxMergedBytes: 2 * 1024 * 1024,
		QueueDepth:     128,
		Backend:        BackendAuto,
	}
}

// Engine wraps a Device and a Coalescer, exposing read and read_many. The
// "ring" backend here is a bounded-goroutine-pool stand-in for an
// io_uring submission ring: golang.org/x/sync/errgroup.Group.SetLimit
// gives the same queue-depth-bounded, await-all contract §4.C asks for
// without requiring real ring syscalls, and is the one dependency the
// teacher's go.mod lists but never imports - adopted here rather than
// dropped, per the rule that a teacher dependency is only cut when
// nothing in the rebuilt spec can use it.
type Engine struct {
	dev  *Device
	cfg  Config
	pool *Coalescer
}

// New constructs an Engine over dev using cfg's thresholds.
func New(dev *Device, cfg Config) *Engine {
	return &Engine{
		dev: dev,
		cfg: cfg,
		pool: &Coalescer{
			MergeGap:  cfg.MergeGapBytes,
			MaxMerged: cfg.MaxMergedBytes,
			Sector:    dev.SectorSize(),
		},
	}
}

func (e *Engine) backend() Backend {
	if e.cfg.Backend != BackendAuto {
		return e.cfg.Backend
	}
	if e.cfg.QueueDepth > 1 {
		return BackendRing
	}
	return BackendSync
}

// Read is a single-shot convenience wrapping ReadMany for one range.
func (e *Engine) Read(ctx context.Context, r Range) ([]byte, error) {
	bufs, err := e.ReadMany(ctx, []Range{r})
	if err != nil {
		return nil, err
	}
	return bufs[0], nil
}

// ReadMany coalesces ranges into physical reads, issues them through the
// selected backend, and demultiplexes the results back into one
// independently owned buffer per input range. Both backends submit and
// await physical reads in the coalescer's sorted order so rotational head
// movement stays monotonic within the batch; the ring backend additionally
// bounds in-flight reads at QueueDepth.
func (e *Engine) ReadMany(ctx context.Context, ranges []Range) ([][]byte, error) {

	if len(ranges) == 0 {
		return nil, nil
	}

	physicals, locations := e.pool.Coalesce(ranges)

	physBufs := make([][]byte, len(physicals))

	switch e.backend() {
	case BackendRing:
		g, gctx := errgroup.WithContext(ctx)
		depth := e.cfg.QueueDepth
		if depth <= 0 {
			depth = 1
		}
		g.SetLimit(depth)

		for i, p := range physicals {
			i, p := i, p
			g.Go(func() error {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				buf := make([]byte, p.Length)
				if _, err := e.dev.Pread(buf, p.Offset); err != nil {
					return err
				}
				physBufs[i] = buf
				return nil
			})
		}

		if err := g.Wait(); err != nil {
			return nil, err
		}

	default:
		for i, p := range physicals {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			buf := make([]byte, p.Length)
			if _, err := e.dev.Pread(buf, p.Offset); err != nil {
				return nil, err
			}
			physBufs[i] = buf
		}
	}

	out := make([][]byte, len(ranges))
	for i, r := range ranges {
		loc := locations[i]
		src := physBufs[loc.PhysicalIndex]
		owned := make([]byte, r.Length)
		copy(owned, src[loc.InnerOffset:loc.InnerOffset+r.Length])
		out[i] = owned
	}

	return out, nil
}

// Close releases the underlying device.
func (e *Engine) Close() error { return e.dev.Close() }
