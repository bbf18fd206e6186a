package scan

// InodeEvent is the owned record emitted once per allocated inode visited
// during an AG's inode phase.
type InodeEvent struct {
	InodeNumber uint64
	Mode        uint16
	UID, GID    uint32
	Size        uint64
	Nlink       uint32
	AccessTime  int64
	ModTime     int64
	ChangeTime  int64

	ExtentCount     uint64
	DataForkFormat  uint8
	AttrForkFormat  uint8
	Flags           uint16

	// InlineExtents carries the packed extent array when the data fork is
	// "extents" format and fits inline in the inode's literal area; nil
	// otherwise (the extents phase will descend the btree instead).
	InlineExtents [][16]byte
}

// ExtentEvent is the owned record emitted once per decoded file extent
// during an inode's extents phase.
type ExtentEvent struct {
	InodeNumber   uint64
	LogicalOffset uint64
	AGNumber      uint32
	AGBlock       uint32
	Length        uint32
	Unwritten     bool
}

// DirEntryEvent is the owned record emitted once per directory entry
// during a directory inode's dirs phase.
type DirEntryEvent struct {
	ParentInode uint64
	ChildInode  uint64
	Name        string
	FType       uint8 // FTypeUnknown when the ftype feature is off
	FTypeKnown  bool
}

// ErrorCounters tallies record-level faults observed during a phase; they
// never interrupt emission, per the propagation policy.
type ErrorCounters struct {
	BadInode  int
	BadExtent int
	BadDirent int
	BadCrc    int
}
