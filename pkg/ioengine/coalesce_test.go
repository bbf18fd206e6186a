package ioengine

import "testing"

func TestCoalesceMergesAdjacentRanges(t *testing.T) {
	c := &Coalescer{MergeGap: 4096, MaxMerged: 1 << 20, Sector: 512}

	physicals, locs := c.Coalesce([]Range{
		{Offset: 0, Length: 512},
		{Offset: 512, Length: 512},
		{Offset: 100000, Length: 512},
	})

	if len(physicals) != 2 {
		t.Fatalf("expected 2 physical reads, got %d: %+v", len(physicals), physicals)
	}
	if physicals[0].Offset != 0 || physicals[0].Length != 1024 {
		t.Errorf("expected first physical {0,1024}, got %+v", physicals[0])
	}
	if len(locs) != 3 {
		t.Fatalf("expected 3 locations, got %d", len(locs))
	}
	if locs[0].PhysicalIndex != 0 || locs[1].PhysicalIndex != 0 {
		t.Errorf("expected first two ranges to land in physical 0, got %+v %+v", locs[0], locs[1])
	}
	if locs[2].PhysicalIndex != 1 {
		t.Errorf("expected third range to land in its own physical, got %+v", locs[2])
	}
}

func TestCoalesceRespectsMaxMerged(t *testing.T) {
	c := &Coalescer{MergeGap: 1 << 20, MaxMerged: 1024, Sector: 512}

	physicals, _ := c.Coalesce([]Range{
		{Offset: 0, Length: 512},
		{Offset: 512, Length: 512},
		{Offset: 1024, Length: 512},
	})

	if len(physicals) != 2 {
		t.Fatalf("expected max_merged to force a split into 2 reads, got %d: %+v", len(physicals), physicals)
	}
}

func TestCoalesceSortsByOffset(t *testing.T) {
	c := &Coalescer{MergeGap: 0, MaxMerged: 0, Sector: 512}

	physicals, _ := c.Coalesce([]Range{
		{Offset: 1024, Length: 512},
		{Offset: 0, Length: 512},
	})

	for i := 1; i < len(physicals); i++ {
		if physicals[i].Offset < physicals[i-1].Offset {
			t.Fatalf("physical reads not sorted by offset: %+v", physicals)
		}
	}
}

func TestCoalesceZeroGapDisablesMerging(t *testing.T) {
	c := &Coalescer{MergeGap: 0, MaxMerged: 0, Sector: 512}

	physicals, _ := c.Coalesce([]Range{
		{Offset: 0, Length: 512},
		{Offset: 512, Length: 512},
	})

	if len(physicals) != 1 {
		t.Errorf("adjacent ranges (gap 0) should still merge when touching, got %d reads", len(physicals))
	}
}

// TestCoalesceLaw checks the three properties a coalesced plan must satisfy
// regardless of input shape: every physical read covers the original range
// it was built from, physical reads never overlap, and no physical read
// exceeds MaxMerged.
func TestCoalesceLaw(t *testing.T) {
	c := &Coalescer{MergeGap: 4096, MaxMerged: 8192, Sector: 512}

	ranges := []Range{
		{Offset: 37, Length: 200},
		{Offset: 600, Length: 900},
		{Offset: 20000, Length: 50},
		{Offset: 20100, Length: 4000},
		{Offset: 24200, Length: 4000},
		{Offset: 28300, Length: 4000},
	}

	physicals, locs := c.Coalesce(ranges)

	if len(locs) != len(ranges) {
		t.Fatalf("expected one location per range, got %d for %d ranges", len(locs), len(ranges))
	}

	for i, r := range ranges {
		loc := locs[i]
		if loc.PhysicalIndex < 0 || loc.PhysicalIndex >= len(physicals) {
			t.Fatalf("location %d has out-of-range physical index %d", i, loc.PhysicalIndex)
		}
		phys := physicals[loc.PhysicalIndex]
		start := phys.Offset + loc.InnerOffset
		end := start + r.Length
		if start < phys.Offset || end > phys.Offset+phys.Length {
			t.Errorf("range %d {%d,%d} not fully covered by physical %+v at inner offset %d", i, r.Offset, r.Length, phys, loc.InnerOffset)
		}
	}

	for i := 1; i < len(physicals); i++ {
		prevEnd := physicals[i-1].Offset + physicals[i-1].Length
		if physicals[i].Offset < prevEnd {
			t.Fatalf("physical reads overlap: %+v", physicals)
		}
	}

	for _, phys := range physicals {
		if phys.Length > c.MaxMerged {
			t.Errorf("physical read %+v exceeds MaxMerged %d", phys, c.MaxMerged)
		}
	}
}

func TestCoalesceNoOverlaps(t *testing.T) {
	c := &Coalescer{MergeGap: 256, MaxMerged: 4096, Sector: 512}

	physicals, _ := c.Coalesce([]Range{
		{Offset: 0, Length: 512},
		{Offset: 2048, Length: 512},
		{Offset: 5000, Length: 512},
	})

	for i := 1; i < len(physicals); i++ {
		prevEnd := physicals[i-1].Offset + physicals[i-1].Length
		if physicals[i].Offset < prevEnd {
			t.Fatalf("physical reads overlap: %+v", physicals)
		}
	}
}
