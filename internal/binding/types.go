package binding

import (
	"github.com/gogpu/gputypes"

	"github.com/gogpu/rtfilters/internal/attachment"
)

// Access is how a pass touches an attachment.
type Access uint8

const (
	ReadOnly Access = iota
	WriteOnly
	ReadWrite
)

var accessNames = [...]string{
	ReadOnly:  "ReadOnly",
	WriteOnly: "WriteOnly",
	ReadWrite: "ReadWrite",
}

func (a Access) String() string {
	if int(a) < len(accessNames) {
		return accessNames[a]
	}
	return "Unknown"
}

// Kind is how an attachment is bound to the pipeline.
type Kind uint8

const (
	// StorageImage is a read/write image accessed with load/store operations.
	StorageImage Kind = iota
	// Sampled is a texture read through a sampler, or a color target when
	// written.
	Sampled
	// SubpassOutput is a render-pass attachment with no descriptor.
	SubpassOutput
)

var kindNames = [...]string{
	StorageImage:  "StorageImage",
	Sampled:       "Sampled",
	SubpassOutput: "SubpassOutput",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "Unknown"
}

// SamplerKind selects one of the two shared samplers for a Sampled binding.
type SamplerKind uint8

const (
	// Direct is nearest filtering with unnormalized texel addressing.
	Direct SamplerKind = iota
	// Normalized is linear filtering with mipmaps.
	Normalized
)

func (s SamplerKind) String() string {
	switch s {
	case Direct:
		return "Direct"
	case Normalized:
		return "Normalized"
	}
	return "Unknown"
}

// Layout is the state an image is in while a pass uses it. Each layout maps
// to the texture usage the backend tracks for barriers.
type Layout uint8

const (
	Undefined Layout = iota
	General
	ShaderRead
	ColorAttachment
	DepthStencilAttachment
	TransferSrc
	TransferDst
)

var layoutNames = [...]string{
	Undefined:              "Undefined",
	General:                "General",
	ShaderRead:             "ShaderRead",
	ColorAttachment:        "ColorAttachment",
	DepthStencilAttachment: "DepthStencilAttachment",
	TransferSrc:            "TransferSrc",
	TransferDst:            "TransferDst",
}

func (l Layout) String() string {
	if int(l) < len(layoutNames) {
		return layoutNames[l]
	}
	return "Unknown"
}

// Usage returns the texture usage a barrier uses for this layout.
func (l Layout) Usage() gputypes.TextureUsage {
	switch l {
	case General:
		return gputypes.TextureUsageStorageBinding
	case ShaderRead:
		return gputypes.TextureUsageTextureBinding
	case ColorAttachment, DepthStencilAttachment:
		return gputypes.TextureUsageRenderAttachment
	case TransferSrc:
		return gputypes.TextureUsageCopySrc
	case TransferDst:
		return gputypes.TextureUsageCopyDst
	}
	return gputypes.TextureUsageNone
}

// DescriptorKind is the descriptor type a binding consumes from a pool.
type DescriptorKind uint8

const (
	DescriptorStorageImage DescriptorKind = iota
	DescriptorCombinedImageSampler
	DescriptorUniformBuffer
	DescriptorStorageBuffer
	DescriptorAccelerationStructure
	descriptorKindCount
)

var descriptorKindNames = [...]string{
	DescriptorStorageImage:          "StorageImage",
	DescriptorCombinedImageSampler:  "CombinedImageSampler",
	DescriptorUniformBuffer:         "UniformBuffer",
	DescriptorStorageBuffer:         "StorageBuffer",
	DescriptorAccelerationStructure: "AccelerationStructure",
}

func (k DescriptorKind) String() string {
	if int(k) < len(descriptorKindNames) {
		return descriptorKindNames[k]
	}
	return "Unknown"
}

// PoolSize is the number of descriptors of one kind a list needs.
type PoolSize struct {
	Kind  DescriptorKind
	Count uint32
}

// Tally merges pool sizes, keeping one entry per kind in kind order and
// dropping zero counts.
func Tally(sizes ...[]PoolSize) []PoolSize {
	var counts [descriptorKindCount]uint32
	for _, group := range sizes {
		for _, s := range group {
			counts[s.Kind] += s.Count
		}
	}
	var out []PoolSize
	for k, n := range counts {
		if n > 0 {
			out = append(out, PoolSize{Kind: DescriptorKind(k), Count: n})
		}
	}
	return out
}

// LoadOp is what happens to an attachment when a render pass begins.
type LoadOp uint8

const (
	LoadDontCare LoadOp = iota
	Load
	Clear
)

// StoreOp is what happens to an attachment when a render pass ends.
type StoreOp uint8

const (
	StoreDontCare StoreOp = iota
	Store
)

// GPU maps the load op to the backend value. Don't-care becomes a clear,
// the closest defined behavior.
func (op LoadOp) GPU() gputypes.LoadOp {
	if op == Load {
		return gputypes.LoadOpLoad
	}
	return gputypes.LoadOpClear
}

// GPU maps the store op to the backend value.
func (op StoreOp) GPU() gputypes.StoreOp {
	if op == Store {
		return gputypes.StoreOpStore
	}
	return gputypes.StoreOpDiscard
}

// AttachmentDescription describes one render-pass attachment derived from a
// binding.
type AttachmentDescription struct {
	Key            attachment.Key
	Format         gputypes.TextureFormat
	LoadOp         LoadOp
	StoreOp        StoreOp
	StencilLoadOp  LoadOp
	StencilStoreOp StoreOp
	InitialLayout  Layout
	FinalLayout    Layout
}

// AttachmentReference points at a description by index.
type AttachmentReference struct {
	Attachment uint32
	Layout     Layout
}
