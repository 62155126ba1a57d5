package raytrace

import (
	"errors"
	"strings"
	"testing"
)

func TestNewSBTLayout(t *testing.T) {
	l := NewSBTLayout(32, 64, 1, 2, 1)

	if l.AlignedHandle != 64 {
		t.Errorf("AlignedHandle = %d, want 64", l.AlignedHandle)
	}
	tests := []struct {
		name   string
		table  Table
		offset uint32
		copy   uint32
		size   uint64
	}{
		{"raygen", l.RayGen, 0, 32, 64},
		{"miss", l.Miss, 64, 64, 128},
		{"hit", l.Hit, 192, 32, 64},
	}
	for _, tt := range tests {
		if tt.table.BufferSize != 64 {
			t.Errorf("%s BufferSize = %d, want 64", tt.name, tt.table.BufferSize)
		}
		if tt.table.Offset != tt.offset {
			t.Errorf("%s Offset = %d, want %d", tt.name, tt.table.Offset, tt.offset)
		}
		if tt.table.CopySize != tt.copy {
			t.Errorf("%s CopySize = %d, want %d", tt.name, tt.table.CopySize, tt.copy)
		}
		if tt.table.Stride != 64 || tt.table.Size != tt.size {
			t.Errorf("%s region = {%d, %d}, want {64, %d}", tt.name, tt.table.Stride, tt.table.Size, tt.size)
		}
	}
	if l.GroupCount() != 4 || l.StorageSize() != 256 {
		t.Errorf("GroupCount = %d, StorageSize = %d", l.GroupCount(), l.StorageSize())
	}
}

func TestAlign(t *testing.T) {
	tests := []struct{ size, align, want uint32 }{
		{32, 64, 64},
		{64, 64, 64},
		{65, 64, 128},
		{32, 0, 32},
		{0, 16, 0},
	}
	for _, tt := range tests {
		if got := Align(tt.size, tt.align); got != tt.want {
			t.Errorf("Align(%d, %d) = %d, want %d", tt.size, tt.align, got, tt.want)
		}
	}
}

type featureDevice struct {
	Device
	features Features
}

func (d featureDevice) Features() Features { return d.features }

func TestRequireFeatures(t *testing.T) {
	all := Features{true, true, true, true, true}
	if err := RequireFeatures(featureDevice{features: all}); err != nil {
		t.Errorf("RequireFeatures(all) = %v", err)
	}

	partial := all
	partial.RayTracingPipeline = false
	partial.NonUniformIndexing = false
	err := RequireFeatures(featureDevice{features: partial})
	if !errors.Is(err, ErrMissingFeature) {
		t.Fatalf("RequireFeatures(partial) = %v, want ErrMissingFeature", err)
	}
	for _, name := range []string{"ray-tracing-pipeline", "non-uniform-indexing"} {
		if !strings.Contains(err.Error(), name) {
			t.Errorf("error %q does not name %s", err, name)
		}
	}

	if err := RequireFeatures(nil); !errors.Is(err, ErrMissingFeature) {
		t.Errorf("RequireFeatures(nil) = %v", err)
	}
	if n := len(Features{}.Missing()); n != 5 {
		t.Errorf("Missing() on zero Features = %d names, want 5", n)
	}
}
