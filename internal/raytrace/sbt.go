package raytrace

// Align rounds size up to a multiple of alignment, which must be a power
// of two. An alignment of zero leaves size unchanged.
func Align(size, alignment uint32) uint32 {
	if alignment == 0 {
		return size
	}
	return (size + alignment - 1) &^ (alignment - 1)
}

// Table is one shader binding table region.
type Table struct {
	// Count is the number of handles in the table.
	Count uint32
	// Offset is where the table's first handle starts in the handle
	// storage returned by Device.ShaderGroupHandles.
	Offset uint32
	// CopySize is the number of handle bytes copied into the table.
	CopySize uint32
	// BufferSize is the size of the table's buffer.
	BufferSize uint32
	// Stride and Size describe the region passed to trace rays.
	Stride uint64
	Size   uint64
}

// SBTLayout is the shader binding table arrangement for a pipeline whose
// groups are ordered raygen, miss, hit.
type SBTLayout struct {
	HandleSize    uint32
	Alignment     uint32
	AlignedHandle uint32

	RayGen Table
	Miss   Table
	Hit    Table
}

// NewSBTLayout computes the table layout for the given group counts.
func NewSBTLayout(handleSize, alignment, raygen, miss, hit uint32) SBTLayout {
	aligned := Align(handleSize, alignment)
	table := func(count, offset uint32) Table {
		return Table{
			Count:      count,
			Offset:     offset,
			CopySize:   handleSize * count,
			BufferSize: Align(handleSize*count, alignment),
			Stride:     uint64(aligned),
			Size:       uint64(count) * uint64(aligned),
		}
	}
	return SBTLayout{
		HandleSize:    handleSize,
		Alignment:     alignment,
		AlignedHandle: aligned,
		RayGen:        table(raygen, 0),
		Miss:          table(miss, aligned*raygen),
		Hit:           table(hit, aligned*(raygen+miss)),
	}
}

// GroupCount is the total number of shader groups.
func (l SBTLayout) GroupCount() uint32 {
	return l.RayGen.Count + l.Miss.Count + l.Hit.Count
}

// StorageSize is the size of the buffer that receives all group handles.
func (l SBTLayout) StorageSize() uint32 {
	return l.GroupCount() * l.AlignedHandle
}

// Tables returns the three tables in group order.
func (l SBTLayout) Tables() [3]Table {
	return [3]Table{l.RayGen, l.Miss, l.Hit}
}
