// Package raytrace defines the ray tracing device extension the path
// tracer is built on, together with the shader binding table layout.
//
// The hal layer exposes raster and compute only. A backend that supports
// hardware ray tracing provides a Device alongside its hal.Device; the
// path tracer never reaches below this interface.
package raytrace
