// Package shader loads shader modules by name.
//
// WGSL sources for every raster and compute stage are embedded in the
// package and compiled to SPIR-V with naga on first use. Precompiled
// bytecode can be supplied through an fs.FS overlay; ray tracing stages
// are only available that way. Compiled modules are cached per device and
// destroyed when evicted or when the library is closed.
package shader
