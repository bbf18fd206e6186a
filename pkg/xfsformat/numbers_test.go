package xfsformat

import "testing"

func TestInodeNumberRoundTrip(t *testing.T) {
	g := Geometry{AGBlocksLog: 10, InodesPerBlockLog: 3, AGCount: 4, AGBlocks: 1 << 10}

	ino := JoinInodeNumber(2, 12345, g)
	ag, rel := SplitInodeNumber(ino, g)

	if ag != 2 || rel != 12345 {
		t.Errorf("round trip mismatch: got ag=%d rel=%d", ag, rel)
	}
}

func TestSplitBlockNumber(t *testing.T) {
	g := Geometry{AGBlocksLog: 8, AGCount: 4, AGBlocks: 1 << 8}

	ag, block := SplitBlockNumber(uint64(3)<<8|17, g)
	if ag != 3 || block != 17 {
		t.Errorf("expected ag=3 block=17, got ag=%d block=%d", ag, block)
	}
}

func TestBlocksInAGAccountsForShortLastAG(t *testing.T) {
	g := Geometry{AGBlocksLog: 0, AGCount: 3, AGBlocks: 100}

	if n := BlocksInAG(0, g, 250); n != 100 {
		t.Errorf("expected full AG size 100 for AG 0, got %d", n)
	}
	if n := BlocksInAG(2, g, 250); n != 50 {
		t.Errorf("expected short last AG of 50, got %d", n)
	}
}
