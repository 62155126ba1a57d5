package raytrace

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMissingFeature is returned when the device lacks a required feature.
var ErrMissingFeature = errors.New("raytrace: missing device feature")

// Features lists the device capabilities the path tracer requires.
type Features struct {
	BufferDeviceAddress    bool
	RayTracingPipeline     bool
	AccelerationStructure  bool
	RuntimeDescriptorArray bool
	NonUniformIndexing     bool
}

// Missing returns the names of the unsupported features.
func (f Features) Missing() []string {
	var missing []string
	check := func(ok bool, name string) {
		if !ok {
			missing = append(missing, name)
		}
	}
	check(f.BufferDeviceAddress, "buffer-device-address")
	check(f.RayTracingPipeline, "ray-tracing-pipeline")
	check(f.AccelerationStructure, "acceleration-structure")
	check(f.RuntimeDescriptorArray, "runtime-descriptor-array")
	check(f.NonUniformIndexing, "non-uniform-indexing")
	return missing
}

// RequireFeatures fails with ErrMissingFeature naming every feature dev
// does not support. A nil device supports nothing.
func RequireFeatures(dev Device) error {
	var f Features
	if dev != nil {
		f = dev.Features()
	}
	if missing := f.Missing(); len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingFeature, strings.Join(missing, ", "))
	}
	return nil
}
