package shader

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/rtfilters/internal/cache"
)

// DefaultCacheSize is the number of modules a Library keeps alive.
const DefaultCacheSize = 64

type moduleKey struct {
	name  string
	stage Stage
}

// Library creates and caches shader modules for one device.
type Library struct {
	device  hal.Device
	overlay fs.FS
	source  bool
	modules *cache.Cache[moduleKey, hal.ShaderModule]
}

// Option configures a Library.
type Option func(*Library)

// WithFS adds an overlay searched before the embedded sources. It may
// hold "<name>.spv" bytecode or "<name>.wgsl" source.
func WithFS(fsys fs.FS) Option {
	return func(l *Library) {
		l.overlay = fsys
	}
}

// WithSourceMode hands WGSL to the device instead of compiling it with
// naga. Bytecode from the overlay is still passed as SPIR-V.
func WithSourceMode() Option {
	return func(l *Library) {
		l.source = true
	}
}

// WithCacheSize limits the number of cached modules. Zero means unlimited.
func WithCacheSize(n int) Option {
	return func(l *Library) {
		if n >= 0 {
			l.modules = l.newCache(n)
		}
	}
}

// NewLibrary returns a library that creates modules on device.
func NewLibrary(device hal.Device, opts ...Option) *Library {
	l := &Library{device: device}
	l.modules = l.newCache(DefaultCacheSize)
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Library) newCache(limit int) *cache.Cache[moduleKey, hal.ShaderModule] {
	return cache.New(limit, func(k moduleKey, m hal.ShaderModule) {
		slogger().Debug("shader: destroy module", "name", k.name, "stage", k.stage)
		l.device.DestroyShaderModule(m)
	})
}

// Module returns the module for name and stage, creating it on first use.
func (l *Library) Module(name string, stage Stage) (hal.ShaderModule, error) {
	return l.modules.GetOrCreate(moduleKey{name, stage}, func() (hal.ShaderModule, error) {
		src, err := l.load(name, stage)
		if err != nil {
			return nil, err
		}
		m, err := l.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
			Label:  name + "." + stage.String(),
			Source: src,
		})
		if err != nil {
			return nil, fmt.Errorf("create shader module %s: %w", name, err)
		}
		slogger().Debug("shader: module created", "name", name, "stage", stage, "spirv", len(src.SPIRV) > 0)
		return m, nil
	})
}

func (l *Library) load(name string, stage Stage) (hal.ShaderSource, error) {
	if l.overlay != nil {
		data, err := fs.ReadFile(l.overlay, name+".spv")
		switch {
		case err == nil:
			words, err := Words(data)
			if err != nil {
				return hal.ShaderSource{}, fmt.Errorf("%s: %w", name, err)
			}
			return hal.ShaderSource{SPIRV: words}, nil
		case !errors.Is(err, fs.ErrNotExist):
			return hal.ShaderSource{}, fmt.Errorf("read %s.spv: %w", name, err)
		}
		if data, err := fs.ReadFile(l.overlay, name+".wgsl"); err == nil {
			return l.fromWGSL(name, string(data))
		}
	}
	if stage.RayTracing() {
		return hal.ShaderSource{}, fmt.Errorf("%w: %s (%s stages need precompiled bytecode)", ErrNotFound, name, stage)
	}
	wgsl, err := Source(name)
	if err != nil {
		return hal.ShaderSource{}, err
	}
	return l.fromWGSL(name, wgsl)
}

func (l *Library) fromWGSL(name, wgsl string) (hal.ShaderSource, error) {
	if l.source {
		return hal.ShaderSource{WGSL: wgsl}, nil
	}
	words, err := Compile(wgsl)
	if err != nil {
		return hal.ShaderSource{}, fmt.Errorf("%s: %w", name, err)
	}
	return hal.ShaderSource{SPIRV: words}, nil
}

// Release destroys the cached module for name and stage, if any.
func (l *Library) Release(name string, stage Stage) {
	l.modules.Delete(moduleKey{name, stage})
}

// Stats reports cache statistics.
func (l *Library) Stats() cache.Stats {
	return l.modules.Stats()
}

// Close destroys every cached module.
func (l *Library) Close() {
	l.modules.Clear()
}
