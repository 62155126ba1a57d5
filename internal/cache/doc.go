// Package cache provides a generic LRU cache for GPU objects.
//
// Entries are created on demand with [Cache.GetOrCreate] and released
// through an eviction callback, so the cache can own resources such as
// shader modules that must be destroyed explicitly:
//
//	modules := cache.New[string, hal.ShaderModule](64, func(_ string, m hal.ShaderModule) {
//	    device.DestroyShaderModule(m)
//	})
//	m, err := modules.GetOrCreate("gauss", compile)
//
// Cache is safe for concurrent use and must not be copied after creation.
package cache
