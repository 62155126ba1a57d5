package pass

import (
	"encoding/binary"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// pushBlockSize is the size of the small uniform block that carries
// per-pass constants. The hal encoders have no push constants, so passes
// upload it with a recorded buffer write instead.
const pushBlockSize = 16

// pushBlock mirrors the shaders' Push struct.
type pushBlock struct {
	Width      uint32
	Height     uint32
	Frame      uint32
	VertexSize uint32
}

func (b pushBlock) bytes() []byte {
	var buf [pushBlockSize]byte
	binary.LittleEndian.PutUint32(buf[0:], b.Width)
	binary.LittleEndian.PutUint32(buf[4:], b.Height)
	binary.LittleEndian.PutUint32(buf[8:], b.Frame)
	binary.LittleEndian.PutUint32(buf[12:], b.VertexSize)
	return buf[:]
}

func createPushBuffer(device hal.Device, label string) (hal.Buffer, error) {
	buf, err := device.CreateBuffer(&hal.BufferDescriptor{
		Label: label + "_push",
		Size:  pushBlockSize,
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("create %s push block: %w", label, err)
	}
	return buf, nil
}

func pushLayoutEntry(index uint32, stages gputypes.ShaderStages) gputypes.BindGroupLayoutEntry {
	return gputypes.BindGroupLayoutEntry{
		Binding:    index,
		Visibility: stages,
		Buffer: &gputypes.BufferBindingLayout{
			Type:           gputypes.BufferBindingTypeUniform,
			MinBindingSize: pushBlockSize,
		},
	}
}

func pushEntry(index uint32, buf hal.Buffer) gputypes.BindGroupEntry {
	return gputypes.BindGroupEntry{
		Binding:  index,
		Resource: gputypes.BufferBinding{Buffer: buf.NativeHandle(), Size: pushBlockSize},
	}
}
