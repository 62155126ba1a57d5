// Package rtfilters renders a scene through a chain of raster, path tracing
// and denoising passes on a wgpu hal device.
//
// A Renderer runs one queue template at a time:
//
//   - RasterOnly: G-buffer fill and display composite
//   - PathtracerOnly: G-buffer, one sample per pixel path tracing, composite
//   - SVGF: path tracing filtered by temporal accumulation and an à-trous
//     wavelet filter
//   - BMFR: path tracing filtered by blockwise multi-order feature
//     regression in a compute pass
//
// Each pass is recorded once at prepare time and replayed every frame.
// Passes are chained by semaphores so the composite is submitted last and
// signals the driver's render-complete semaphore.
//
// The path traced templates need a RayTracer, the ray tracing extension of
// the device, passed with WithRayTracer. Without one only RasterOnly is
// available.
//
// # Quick start
//
//	scene, err := rtfilters.NewMeshScene(device, queue, rtfilters.Cube())
//	if err != nil {
//	    return err
//	}
//	defer scene.Close()
//
//	driver := rtfilters.NewDriver(device, queue, 1280, 720)
//	r, err := rtfilters.New(driver, rtfilters.WithScene(scene))
//	if err != nil {
//	    return err
//	}
//	defer r.Close()
//
//	for running {
//	    if err := r.Draw(nil); err != nil {
//	        return err
//	    }
//	}
//
// # Display
//
// The composite shows two attachments split by a vertical line. SetDisplay
// selects them by index into AttachmentNames of the active template and
// SetSplit moves the line. Bind routes key and resize events from a
// gpucontext.EventSource.
//
// # Logging
//
// Nothing is logged by default. See SetLogger.
package rtfilters
