package binding

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/rtfilters/internal/attachment"
)

// List is an ordered set of bindings. Order fixes both descriptor binding
// indices and attachment indices.
type List []*Binding

// Resolve resolves every binding against reg.
func (l List) Resolve(device hal.Device, reg *attachment.Registry) error {
	for _, b := range l {
		if err := b.Resolve(device, reg); err != nil {
			return err
		}
	}
	return nil
}

// Release releases every binding.
func (l List) Release(device hal.Device) {
	for _, b := range l {
		b.Release(device)
	}
}

// Validate checks that the list reads at least one attachment and writes at
// least one.
func (l List) Validate() error {
	var read, write bool
	for _, b := range l {
		read = read || b.ReadAccess()
		write = write || b.WriteAccess()
	}
	if !read {
		return ErrNoRead
	}
	if !write {
		return ErrNoWrite
	}
	return nil
}

// DescriptorCount returns how many bindings use a descriptor.
func (l List) DescriptorCount() int {
	n := 0
	for _, b := range l {
		if b.UsesDescriptor() {
			n++
		}
	}
	return n
}

// LayoutBindings returns one layout entry per descriptor user. Indices start
// at base and advance only for descriptor users.
func (l List) LayoutBindings(base uint32, stages gputypes.ShaderStages) []gputypes.BindGroupLayoutEntry {
	entries := make([]gputypes.BindGroupLayoutEntry, 0, len(l))
	index := base
	for _, b := range l {
		if !b.UsesDescriptor() {
			continue
		}
		entries = append(entries, b.layoutEntry(index, stages))
		index++
	}
	return entries
}

// PoolSizes tallies the descriptors the list needs, one entry per kind.
// Kinds with no descriptors are omitted.
func (l List) PoolSizes() []PoolSize {
	var counts [descriptorKindCount]uint32
	for _, b := range l {
		if b.UsesDescriptor() {
			counts[b.DescriptorKind()]++
		}
	}
	var sizes []PoolSize
	for k, n := range counts {
		if n > 0 {
			sizes = append(sizes, PoolSize{Kind: DescriptorKind(k), Count: n})
		}
	}
	return sizes
}

// Write is one descriptor write derived from a binding.
type Write struct {
	Binding uint32
	Kind    DescriptorKind
	View    hal.TextureView
	// Sampler is nil for storage images.
	Sampler hal.Sampler
	Layout  Layout
}

// Writes returns one write per descriptor user with positional indices
// starting at base. Sampled bindings get the direct or normalized sampler
// according to their sampler kind. The list must be resolved.
func (l List) Writes(direct, normalized hal.Sampler, base uint32) ([]Write, error) {
	writes := make([]Write, 0, len(l))
	index := base
	for _, b := range l {
		if !b.UsesDescriptor() {
			continue
		}
		if !b.resolved {
			return nil, fmt.Errorf("%w: %s", ErrUnresolved, b)
		}
		w := Write{
			Binding: index,
			Kind:    b.DescriptorKind(),
			View:    b.view,
			Layout:  b.Work,
		}
		if b.Kind == Sampled {
			w.Sampler = direct
			if b.Sampler == Normalized {
				w.Sampler = normalized
			}
		}
		writes = append(writes, w)
		index++
	}
	return writes, nil
}

// Entries converts writes into bind group entries.
func Entries(writes []Write) []gputypes.BindGroupEntry {
	entries := make([]gputypes.BindGroupEntry, len(writes))
	for i, w := range writes {
		entries[i] = gputypes.BindGroupEntry{
			Binding:  w.Binding,
			Resource: gputypes.TextureViewBinding{TextureView: w.View.NativeHandle()},
		}
	}
	return entries
}

// AttachmentDescriptions returns one description per binding that is a
// render-pass attachment, in list order, together with the input and output
// references into the description slice. Reads load and discard; writes
// discard on load and store.
func (l List) AttachmentDescriptions() (descs []AttachmentDescription, inputs, outputs []AttachmentReference) {
	for _, b := range l {
		if !b.UsesAttachmentDescription() {
			continue
		}
		d := AttachmentDescription{
			Key:            b.Key,
			Format:         b.format(),
			StencilLoadOp:  LoadDontCare,
			StencilStoreOp: StoreDontCare,
			InitialLayout:  b.Work,
			FinalLayout:    b.Post,
		}
		ref := AttachmentReference{Attachment: uint32(len(descs)), Layout: b.Work} //nolint:gosec // G115: list length is small
		switch {
		case b.ReadAccess():
			d.LoadOp, d.StoreOp = Load, StoreDontCare
			inputs = append(inputs, ref)
		case b.WriteAccess():
			d.LoadOp, d.StoreOp = LoadDontCare, Store
			outputs = append(outputs, ref)
		}
		descs = append(descs, d)
	}
	return descs, inputs, outputs
}

// AttachmentBindings returns the bindings that are render-pass attachments,
// in list order. Their views form the framebuffer.
func (l List) AttachmentBindings() List {
	var out List
	for _, b := range l {
		if b.UsesAttachmentDescription() {
			out = append(out, b)
		}
	}
	return out
}

// Barriers returns a pre-to-post layout barrier for every resolved binding
// that requires a transition.
func (l List) Barriers() []hal.TextureBarrier {
	var barriers []hal.TextureBarrier
	for _, b := range l {
		if !b.RequiresImageTransition() || b.att == nil {
			continue
		}
		barriers = append(barriers, b.barrier(b.Pre, b.Post))
	}
	return barriers
}

func (b *Binding) barrier(from, to Layout) hal.TextureBarrier {
	aspect := b.Aspect
	if aspect == gputypes.TextureAspectUndefined {
		aspect = gputypes.TextureAspectAll
	}
	return hal.TextureBarrier{
		Texture: b.att.Texture,
		Range: hal.TextureRange{
			Aspect:          aspect,
			MipLevelCount:   1,
			ArrayLayerCount: 1,
		},
		Usage: hal.TextureUsageTransition{OldUsage: from.Usage(), NewUsage: to.Usage()},
	}
}

// EmitBarriers records the list's barriers on enc. It does nothing when no
// binding requires a transition.
func (l List) EmitBarriers(enc hal.CommandEncoder) {
	if barriers := l.Barriers(); len(barriers) > 0 {
		enc.TransitionTextures(barriers)
	}
}
