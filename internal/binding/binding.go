package binding

import (
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/rtfilters/internal/attachment"
)

// Configuration errors reported by List.Validate.
var (
	ErrNoRead  = errors.New("binding: no read binding declared")
	ErrNoWrite = errors.New("binding: no write binding declared")
)

// ErrUnresolved is returned when derived objects need a resolved view.
var ErrUnresolved = errors.New("binding: not resolved")

// Binding declares how one pass uses one attachment.
//
// A Binding is configuration: it is built with the attachment key only and
// resolved against a registry when its pass prepares. It never owns the
// attachment, only an optional aspect view created during Resolve.
type Binding struct {
	Key     attachment.Key
	Access  Access
	Kind    Kind
	Sampler SamplerKind
	Pre     Layout
	Work    Layout
	Post    Layout
	Aspect  gputypes.TextureAspect

	att        *attachment.FrameBufferAttachment
	view       hal.TextureView
	customView bool
	generation uint64
	resolved   bool
}

// Option configures a Binding.
type Option func(*Binding)

// WithLayouts sets the layouts before, during and after the pass.
func WithLayouts(pre, work, post Layout) Option {
	return func(b *Binding) {
		b.Pre, b.Work, b.Post = pre, work, post
	}
}

// WithSampler selects the sampler for a Sampled binding.
func WithSampler(s SamplerKind) Option {
	return func(b *Binding) {
		b.Sampler = s
	}
}

// WithAspect restricts the binding to one aspect of the image. Any aspect
// other than TextureAspectAll gets its own view at resolve time.
func WithAspect(a gputypes.TextureAspect) Option {
	return func(b *Binding) {
		b.Aspect = a
	}
}

// New returns a binding for key. Layouts default to General and the aspect
// to the whole image.
func New(key attachment.Key, access Access, kind Kind, opts ...Option) *Binding {
	b := &Binding{
		Key:     key,
		Access:  access,
		Kind:    kind,
		Sampler: Direct,
		Pre:     General,
		Work:    General,
		Post:    General,
		Aspect:  gputypes.TextureAspectAll,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// UsesDescriptor reports whether the binding occupies a descriptor slot.
// Storage images always do; sampled images only when the pass never
// writes them, so a written image is never also a descriptor.
func (b *Binding) UsesDescriptor() bool {
	switch b.Kind {
	case StorageImage:
		return true
	case Sampled:
		return !b.WriteAccess()
	}
	return false
}

// UsesAttachmentDescription reports whether the binding is a render-pass
// attachment rather than a descriptor.
func (b *Binding) UsesAttachmentDescription() bool {
	switch b.Kind {
	case Sampled:
		return b.Access != ReadOnly
	case SubpassOutput:
		return true
	}
	return false
}

// RequiresImageTransition reports whether the image must change layout
// before the pass runs.
func (b *Binding) RequiresImageTransition() bool {
	return b.Pre != b.Work
}

// ReadAccess reports whether the pass reads the attachment.
func (b *Binding) ReadAccess() bool {
	return b.Access == ReadOnly || b.Access == ReadWrite
}

// WriteAccess reports whether the pass writes the attachment.
func (b *Binding) WriteAccess() bool {
	return b.Access == WriteOnly || b.Access == ReadWrite
}

// DescriptorKind returns the pool kind the binding consumes. Only
// meaningful when UsesDescriptor is true.
func (b *Binding) DescriptorKind() DescriptorKind {
	if b.Kind == StorageImage {
		return DescriptorStorageImage
	}
	return DescriptorCombinedImageSampler
}

// Resolve looks the attachment up in reg. While the registry generation is
// unchanged a second call is a no-op, so the same view is kept and no view
// is created twice.
func (b *Binding) Resolve(device hal.Device, reg *attachment.Registry) error {
	if b.resolved && b.generation == reg.Generation() {
		return nil
	}
	b.Release(device)

	a := reg.Get(b.Key)
	view := a.View
	custom := false
	if b.Aspect != gputypes.TextureAspectAll && b.Aspect != gputypes.TextureAspectUndefined {
		v, err := device.CreateTextureView(a.Texture, &hal.TextureViewDescriptor{
			Label:           b.Key.String() + "_aspect_view",
			Format:          a.Format,
			Dimension:       gputypes.TextureViewDimension2D,
			Aspect:          b.Aspect,
			MipLevelCount:   1,
			ArrayLayerCount: 1,
		})
		if err != nil {
			return fmt.Errorf("create %s aspect view: %w", b.Key, err)
		}
		view = v
		custom = true
	}

	b.att = a
	b.view = view
	b.customView = custom
	b.generation = reg.Generation()
	b.resolved = true
	return nil
}

// Release destroys the aspect view, if any, and forgets the resolved
// attachment.
func (b *Binding) Release(device hal.Device) {
	if b.customView && b.view != nil {
		device.DestroyTextureView(b.view)
	}
	b.att = nil
	b.view = nil
	b.customView = false
	b.resolved = false
}

// Resolved reports whether Resolve has succeeded since the last Release.
func (b *Binding) Resolved() bool { return b.resolved }

// Attachment returns the resolved attachment, or nil.
func (b *Binding) Attachment() *attachment.FrameBufferAttachment { return b.att }

// View returns the view the binding binds: the aspect view if one was
// created, otherwise the attachment's default view.
func (b *Binding) View() hal.TextureView { return b.view }

func (b *Binding) format() gputypes.TextureFormat {
	if b.att != nil {
		return b.att.Format
	}
	return attachment.SpecOf(b.Key).Format
}

// layoutEntry returns the bind group layout entry for a descriptor user.
func (b *Binding) layoutEntry(index uint32, stages gputypes.ShaderStages) gputypes.BindGroupLayoutEntry {
	e := gputypes.BindGroupLayoutEntry{Binding: index, Visibility: stages}
	if b.Kind == StorageImage {
		e.StorageTexture = &gputypes.StorageTextureBindingLayout{
			Access:        storageAccess(b.Access),
			Format:        b.format(),
			ViewDimension: gputypes.TextureViewDimension2D,
		}
		return e
	}
	e.Texture = &gputypes.TextureBindingLayout{
		SampleType:    sampleType(b.format(), b.Aspect),
		ViewDimension: gputypes.TextureViewDimension2D,
	}
	return e
}

func storageAccess(a Access) gputypes.StorageTextureAccess {
	switch a {
	case ReadOnly:
		return gputypes.StorageTextureAccessReadOnly
	case WriteOnly:
		return gputypes.StorageTextureAccessWriteOnly
	}
	return gputypes.StorageTextureAccessReadWrite
}

func sampleType(f gputypes.TextureFormat, aspect gputypes.TextureAspect) gputypes.TextureSampleType {
	switch {
	case aspect == gputypes.TextureAspectStencilOnly:
		return gputypes.TextureSampleTypeUint
	case f.HasDepth():
		return gputypes.TextureSampleTypeDepth
	case f == gputypes.TextureFormatR32Uint:
		return gputypes.TextureSampleTypeUint
	case f == gputypes.TextureFormatR32Float,
		f == gputypes.TextureFormatRG32Float,
		f == gputypes.TextureFormatRGBA32Float:
		return gputypes.TextureSampleTypeUnfilterableFloat
	}
	return gputypes.TextureSampleTypeFloat
}

// String describes the binding for logs.
func (b *Binding) String() string {
	return fmt.Sprintf("%s(%s,%s)", b.Key, b.Access, b.Kind)
}
