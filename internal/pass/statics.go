package pass

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/rtfilters/internal/shader"
)

// Statics holds the objects every post-process pass shares: the shader
// library with its passthrough vertex stage and the direct and normalized
// samplers. It is owned by the Manager and handed to each pass through
// Env. The reference count only tracks which passes hold it.
type Statics struct {
	device     hal.Device
	library    *shader.Library
	direct     hal.Sampler
	normalized hal.Sampler
	refs       int
}

// NewStatics creates the shared samplers on device. The library is owned
// by the returned Statics and closed with it.
func NewStatics(device hal.Device, library *shader.Library) (*Statics, error) {
	direct, err := device.CreateSampler(&hal.SamplerDescriptor{
		Label:        "statics_direct",
		AddressModeU: gputypes.AddressModeClampToEdge,
		AddressModeV: gputypes.AddressModeClampToEdge,
		AddressModeW: gputypes.AddressModeClampToEdge,
		MagFilter:    gputypes.FilterModeNearest,
		MinFilter:    gputypes.FilterModeNearest,
		MipmapFilter: gputypes.FilterModeNearest,
		LodMaxClamp:  1,
	})
	if err != nil {
		return nil, fmt.Errorf("create direct sampler: %w", err)
	}
	normalized, err := device.CreateSampler(&hal.SamplerDescriptor{
		Label:        "statics_normalized",
		AddressModeU: gputypes.AddressModeClampToEdge,
		AddressModeV: gputypes.AddressModeClampToEdge,
		AddressModeW: gputypes.AddressModeClampToEdge,
		MagFilter:    gputypes.FilterModeLinear,
		MinFilter:    gputypes.FilterModeLinear,
		MipmapFilter: gputypes.FilterModeLinear,
		LodMaxClamp:  1,
	})
	if err != nil {
		device.DestroySampler(direct)
		return nil, fmt.Errorf("create normalized sampler: %w", err)
	}
	return &Statics{device: device, library: library, direct: direct, normalized: normalized}, nil
}

// Acquire registers a pass as a holder.
func (s *Statics) Acquire() { s.refs++ }

// Release unregisters a holder.
func (s *Statics) Release() {
	if s.refs == 0 {
		slogger().Warn("pass: statics released more often than acquired")
		return
	}
	s.refs--
}

// Refs returns the number of holders.
func (s *Statics) Refs() int { return s.refs }

// Library returns the shared shader library.
func (s *Statics) Library() *shader.Library { return s.library }

// Passthrough returns the full-screen vertex stage.
func (s *Statics) Passthrough() (hal.ShaderModule, error) {
	return s.library.Module("passthrough", shader.Vertex)
}

// Samplers returns the direct and normalized samplers.
func (s *Statics) Samplers() (direct, normalized hal.Sampler) {
	return s.direct, s.normalized
}

// Close destroys the samplers and every cached shader module.
func (s *Statics) Close() {
	if s.refs != 0 {
		slogger().Warn("pass: statics closed while held", "refs", s.refs)
	}
	if s.direct != nil {
		s.device.DestroySampler(s.direct)
		s.direct = nil
	}
	if s.normalized != nil {
		s.device.DestroySampler(s.normalized)
		s.normalized = nil
	}
	s.library.Close()
}
