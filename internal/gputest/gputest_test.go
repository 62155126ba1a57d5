package gputest

import (
	"errors"
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

func TestLiveIgnoresInjectedFailures(t *testing.T) {
	dev, _ := NewDevice(t)
	dev.FailAt["CreateBuffer"] = 2
	desc := &hal.BufferDescriptor{Label: "test", Size: 16, Usage: gputypes.BufferUsageUniform}

	buf, err := dev.CreateBuffer(desc)
	if err != nil {
		t.Fatalf("first CreateBuffer: %v", err)
	}
	if _, err := dev.CreateBuffer(desc); !errors.Is(err, ErrInjected) {
		t.Fatalf("second CreateBuffer error = %v, want ErrInjected", err)
	}
	if got := dev.Live("Buffer"); got != 1 {
		t.Errorf("Live(Buffer) = %d, want 1", got)
	}
	dev.DestroyBuffer(buf)
	if got := dev.Live("Buffer"); got != 0 {
		t.Errorf("Live(Buffer) after destroy = %d, want 0", got)
	}
	if got := dev.Calls["CreateBuffer"]; got != 2 {
		t.Errorf("Calls[CreateBuffer] = %d, want 2", got)
	}
}
