package binding_test

import (
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

var halSamplerDesc = hal.SamplerDescriptor{
	Label:        "test_sampler",
	AddressModeU: gputypes.AddressModeClampToEdge,
	AddressModeV: gputypes.AddressModeClampToEdge,
	AddressModeW: gputypes.AddressModeClampToEdge,
	MagFilter:    gputypes.FilterModeNearest,
	MinFilter:    gputypes.FilterModeNearest,
}
