package raytrace

import (
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/rtfilters/internal/shader"
)

// Properties are the device limits relevant to pipeline and SBT setup.
type Properties struct {
	ShaderGroupHandleSize      uint32
	ShaderGroupHandleAlignment uint32
	ShaderGroupBaseAlignment   uint32
	MaxRecursionDepth          uint32
}

// AccelerationStructure is a built bottom or top level structure.
type AccelerationStructure interface {
	hal.NativeHandle
	// Address is the device address instances use to reference it.
	Address() uint64
}

// Pipeline is a ray tracing pipeline.
type Pipeline interface {
	hal.NativeHandle
}

// TriangleGeometry describes one triangle mesh for a bottom level build.
type TriangleGeometry struct {
	VertexBuffer hal.Buffer
	VertexFormat gputypes.VertexFormat
	VertexStride uint64
	VertexCount  uint32
	IndexBuffer  hal.Buffer
	IndexFormat  gputypes.IndexFormat
	IndexCount   uint32
	Opaque       bool
}

// BLASDescriptor describes a bottom level build.
type BLASDescriptor struct {
	Label    string
	Geometry []TriangleGeometry
}

// IdentityTransform is a row-major 3x4 identity matrix.
var IdentityTransform = [12]float32{
	1, 0, 0, 0,
	0, 1, 0, 0,
	0, 0, 1, 0,
}

// Instance places a bottom level structure in a top level one.
type Instance struct {
	Transform   [12]float32
	CustomIndex uint32
	Mask        uint8
	BLAS        AccelerationStructure
}

// TLASDescriptor describes a top level build.
type TLASDescriptor struct {
	Label     string
	Instances []Instance
}

// GroupKind is the type of a shader group.
type GroupKind uint8

const (
	// GroupGeneral holds a single raygen or miss stage.
	GroupGeneral GroupKind = iota
	// GroupTriangles is a triangle hit group.
	GroupTriangles
)

// Unused marks an absent stage index in a Group.
const Unused = ^uint32(0)

// Group references stages by index in PipelineDescriptor.Stages.
type Group struct {
	Kind       GroupKind
	General    uint32
	ClosestHit uint32
	AnyHit     uint32
}

// GeneralGroup returns a group for one raygen or miss stage.
func GeneralGroup(stage uint32) Group {
	return Group{Kind: GroupGeneral, General: stage, ClosestHit: Unused, AnyHit: Unused}
}

// HitGroup returns a triangle hit group with a closest-hit stage.
func HitGroup(closestHit uint32) Group {
	return Group{Kind: GroupTriangles, General: Unused, ClosestHit: closestHit, AnyHit: Unused}
}

// StageDescriptor is one shader stage of a ray tracing pipeline.
type StageDescriptor struct {
	Stage      shader.Stage
	Module     hal.ShaderModule
	EntryPoint string
}

// PipelineDescriptor describes a ray tracing pipeline.
type PipelineDescriptor struct {
	Label             string
	Layout            hal.PipelineLayout
	Stages            []StageDescriptor
	Groups            []Group
	MaxRecursionDepth uint32
}

// BindGroupLayoutDescriptor is a bind group layout with an acceleration
// structure slot in addition to the regular entries.
type BindGroupLayoutDescriptor struct {
	Label                 string
	AccelerationStructure uint32
	Entries               []gputypes.BindGroupLayoutEntry
}

// BindGroupDescriptor binds a top level structure plus regular entries.
type BindGroupDescriptor struct {
	Label                 string
	Layout                hal.BindGroupLayout
	AccelerationStructure AccelerationStructure
	Binding               uint32
	Entries               []gputypes.BindGroupEntry
}

// StridedRegion is a device-address range of an SBT.
type StridedRegion struct {
	Address uint64
	Stride  uint64
	Size    uint64
}

// TraceRaysDescriptor is one trace rays dispatch. The device binds the
// pipeline and group before dispatching.
type TraceRaysDescriptor struct {
	Pipeline  Pipeline
	Layout    hal.PipelineLayout
	BindGroup hal.BindGroup
	RayGen    StridedRegion
	Miss      StridedRegion
	Hit       StridedRegion
	Callable  StridedRegion
	Width     uint32
	Height    uint32
	Depth     uint32
}

// Device is the ray tracing extension of a hal.Device.
type Device interface {
	Features() Features
	Properties() Properties

	CreateBLAS(desc *BLASDescriptor) (AccelerationStructure, error)
	CreateTLAS(desc *TLASDescriptor) (AccelerationStructure, error)
	DestroyAccelerationStructure(as AccelerationStructure)

	CreatePipeline(desc *PipelineDescriptor) (Pipeline, error)
	DestroyPipeline(p Pipeline)
	// ShaderGroupHandles copies groupCount handles starting at firstGroup
	// into dst, each at a multiple of the aligned handle size.
	ShaderGroupHandles(p Pipeline, firstGroup, groupCount uint32, dst []byte) error

	CreateBindGroupLayout(desc *BindGroupLayoutDescriptor) (hal.BindGroupLayout, error)
	DestroyBindGroupLayout(l hal.BindGroupLayout)
	CreateBindGroup(desc *BindGroupDescriptor) (hal.BindGroup, error)
	DestroyBindGroup(g hal.BindGroup)

	// BufferAddress returns the device address of a buffer created with
	// device-address usage.
	BufferAddress(buf hal.Buffer) uint64

	TraceRays(enc hal.CommandEncoder, desc *TraceRaysDescriptor) error
}
