package rtfilters

import (
	"io/fs"

	"github.com/gogpu/wgpu/hal"
)

// Option configures a Renderer.
type Option func(*options)

type options struct {
	template       Template
	scene          Scene
	rayTracer      RayTracer
	computeQueue   hal.Queue
	shaderFS       fs.FS
	shaderSource   bool
	cacheSize      int
	semaphoreCount int
	drawFlags      DrawFlags
}

func defaultOptions() options {
	return options{
		template:  RasterOnly,
		drawFlags: DrawBindImages,
	}
}

// WithTemplate selects the initial queue template. Default is RasterOnly.
func WithTemplate(t Template) Option {
	return func(o *options) { o.template = t }
}

// WithScene sets the geometry provider. Required.
func WithScene(s Scene) Option {
	return func(o *options) { o.scene = s }
}

// WithRayTracer enables the path traced templates.
func WithRayTracer(rt RayTracer) Option {
	return func(o *options) { o.rayTracer = rt }
}

// WithComputeQueue runs the regression pass on a separate queue.
func WithComputeQueue(q hal.Queue) Option {
	return func(o *options) { o.computeQueue = q }
}

// WithShaderFS adds a shader overlay searched before the embedded
// sources. Ray tracing stages must come from here as .spv files.
func WithShaderFS(fsys fs.FS) Option {
	return func(o *options) { o.shaderFS = fsys }
}

// WithShaderSource passes WGSL to the device instead of compiling it.
func WithShaderSource() Option {
	return func(o *options) { o.shaderSource = true }
}

// WithShaderCacheSize bounds the number of cached shader modules.
func WithShaderCacheSize(n int) Option {
	return func(o *options) { o.cacheSize = n }
}

// WithSemaphoreCount declares the number of inter-pass semaphores the
// caller expects. A mismatch with the template is logged.
func WithSemaphoreCount(n int) Option {
	return func(o *options) { o.semaphoreCount = n }
}

// WithDrawFlags sets the flags the scene receives when drawing.
func WithDrawFlags(f DrawFlags) Option {
	return func(o *options) { o.drawFlags = f }
}
