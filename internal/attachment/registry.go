package attachment

import (
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// ErrInvalidKey is the panic value (wrapped) for lookups with a key outside
// the table. Passing such a key is a wiring mistake, not a runtime condition.
var ErrInvalidKey = errors.New("attachment: invalid key")

// ErrZeroExtent is returned when creating attachments with a zero dimension.
var ErrZeroExtent = errors.New("attachment: zero extent")

// FrameBufferAttachment is the physical resource behind a Key.
// It is owned by the Registry; holders must not destroy it.
type FrameBufferAttachment struct {
	Key     Key
	Texture hal.Texture
	View    hal.TextureView
	Format  gputypes.TextureFormat
	Usage   gputypes.TextureUsage
	Width   uint32
	Height  uint32
}

// Extent returns the attachment size as a copy extent.
func (a *FrameBufferAttachment) Extent() hal.Extent3D {
	return hal.Extent3D{Width: a.Width, Height: a.Height, DepthOrArrayLayers: 1}
}

// Registry is the single owner of the shared attachments.
//
// Registry is not safe for concurrent use; it is driven from the thread that
// prepares and tears down passes.
type Registry struct {
	device     hal.Device
	slots      [KeyCount]*FrameBufferAttachment
	width      uint32
	height     uint32
	generation uint64
	created    bool
}

// New returns an empty registry bound to device. Call Create before Get.
func New(device hal.Device) *Registry {
	return &Registry{device: device}
}

// Create allocates every attachment at the given size. Either all
// attachments are created or none are: on failure everything allocated so
// far is released and the error is returned.
func (r *Registry) Create(width, height uint32) error {
	if width == 0 || height == 0 {
		return fmt.Errorf("%w: %dx%d", ErrZeroExtent, width, height)
	}
	if r.created {
		r.release()
	}

	var slots [KeyCount]*FrameBufferAttachment
	for _, k := range Keys() {
		a, err := r.createOne(k, width, height)
		if err != nil {
			for _, done := range slots[:k] {
				r.destroyOne(done)
			}
			return fmt.Errorf("create attachment %s: %w", k, err)
		}
		slots[k] = a
	}

	r.slots = slots
	r.width, r.height = width, height
	r.generation++
	r.created = true
	slogger().Debug("attachments created",
		"count", int(KeyCount), "width", width, "height", height, "generation", r.generation)
	return nil
}

func (r *Registry) createOne(k Key, width, height uint32) (*FrameBufferAttachment, error) {
	spec := specs[k]
	tex, err := r.device.CreateTexture(&hal.TextureDescriptor{
		Label:         k.String(),
		Size:          hal.Extent3D{Width: width, Height: height, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        spec.Format,
		Usage:         spec.Usage,
	})
	if err != nil {
		return nil, fmt.Errorf("texture: %w", err)
	}
	view, err := r.device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label:           k.String() + "_view",
		Format:          spec.Format,
		Dimension:       gputypes.TextureViewDimension2D,
		Aspect:          gputypes.TextureAspectAll,
		MipLevelCount:   1,
		ArrayLayerCount: 1,
	})
	if err != nil {
		r.device.DestroyTexture(tex)
		return nil, fmt.Errorf("view: %w", err)
	}
	return &FrameBufferAttachment{
		Key:     k,
		Texture: tex,
		View:    view,
		Format:  spec.Format,
		Usage:   spec.Usage,
		Width:   width,
		Height:  height,
	}, nil
}

func (r *Registry) destroyOne(a *FrameBufferAttachment) {
	if a == nil {
		return
	}
	if a.View != nil {
		r.device.DestroyTextureView(a.View)
		a.View = nil
	}
	if a.Texture != nil {
		r.device.DestroyTexture(a.Texture)
		a.Texture = nil
	}
}

// Get returns the attachment for k. The result is borrowed and becomes
// invalid after Resize or Destroy. Get panics on an invalid key or when the
// registry holds no attachments.
func (r *Registry) Get(k Key) *FrameBufferAttachment {
	mustValid(k)
	a := r.slots[k]
	if a == nil {
		panic(fmt.Sprintf("attachment: %s requested before Create", k))
	}
	return a
}

// Resize destroys every attachment and recreates it at the new size.
// Key identity is preserved; the generation counter advances so that
// resolved bindings can detect the change.
func (r *Registry) Resize(width, height uint32) error {
	slogger().Info("attachments resize", "from_w", r.width, "from_h", r.height, "to_w", width, "to_h", height)
	r.release()
	return r.Create(width, height)
}

// Destroy releases every attachment. Calling it again is a no-op.
func (r *Registry) Destroy() {
	if !r.created {
		return
	}
	r.release()
}

func (r *Registry) release() {
	for i := len(r.slots) - 1; i >= 0; i-- {
		r.destroyOne(r.slots[i])
		r.slots[i] = nil
	}
	r.created = false
}

// Extent returns the current attachment size.
func (r *Registry) Extent() (width, height uint32) {
	return r.width, r.height
}

// Generation returns a counter that changes every time the attachments are
// recreated.
func (r *Registry) Generation() uint64 {
	return r.generation
}

// Device returns the device the registry allocates from.
func (r *Registry) Device() hal.Device {
	return r.device
}
