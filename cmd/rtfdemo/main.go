// Command rtfdemo renders a cube offscreen through one of the rtfilters
// queue templates and reports the frame submissions.
package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	_ "github.com/gogpu/wgpu/hal/allbackends"

	"github.com/gogpu/rtfilters"
)

func main() {
	var (
		width    = flag.Uint("width", 800, "attachment width")
		height   = flag.Uint("height", 600, "attachment height")
		frames   = flag.Int("frames", 60, "frames to render")
		template = flag.String("template", "raster", "queue template: raster, pathtracer, svgf or bmfr")
		backend  = flag.String("backend", "auto", "hal backend: auto, vulkan or noop")
		wgsl     = flag.Bool("wgsl", false, "pass WGSL to the device instead of SPIR-V")
		shaders  = flag.String("shaders", "", "directory searched for shaders before the embedded ones")
		verbose  = flag.Bool("v", false, "log at debug level")
	)
	flag.Parse()

	if *verbose {
		rtfilters.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})))
	}

	if err := run(*backend, *template, uint32(*width), uint32(*height), *frames, *wgsl, *shaders); err != nil { //nolint:gosec // G115: flag values are small extents
		log.Fatal(err)
	}
}

func run(backend, template string, width, height uint32, frames int, wgsl bool, shaders string) error {
	tmpl, err := rtfilters.ParseTemplate(template)
	if err != nil {
		return fmt.Errorf("invalid template: %w", err)
	}

	dev, err := openDevice(backend)
	if err != nil {
		return fmt.Errorf("open device: %w", err)
	}
	defer dev.close()

	scene, err := rtfilters.NewMeshScene(dev.device, dev.queue, rtfilters.Cube())
	if err != nil {
		return fmt.Errorf("upload scene: %w", err)
	}
	defer scene.Close()

	opts := []rtfilters.Option{rtfilters.WithScene(scene)}
	if wgsl {
		opts = append(opts, rtfilters.WithShaderSource())
	}
	if shaders != "" {
		opts = append(opts, rtfilters.WithShaderFS(os.DirFS(shaders)))
	}

	r, err := rtfilters.New(rtfilters.NewDriver(dev.device, dev.queue, width, height), opts...)
	if err != nil {
		return fmt.Errorf("create renderer: %w", err)
	}
	defer r.Close()

	switch {
	case tmpl == rtfilters.RasterOnly:
	case !r.Available(tmpl):
		log.Printf("Template %s unavailable on %s, rendering raster only", tmpl, dev.name)
	default:
		if err := r.SetTemplate(tmpl); err != nil {
			return fmt.Errorf("select template: %w", err)
		}
	}

	start := time.Now()
	for range frames {
		if err := r.Draw(nil); err != nil {
			return fmt.Errorf("frame %d: %w", r.Frame(), err)
		}
	}
	elapsed := time.Since(start)

	for _, s := range r.Submissions() {
		log.Printf("  %-24s wait=%-24v signal=%v", s.Pass, s.Wait, s.Signal)
	}
	log.Printf("Rendered %d frames of %s at %dx%d on %s in %v (%s)",
		r.Frame(), r.Template(), width, height, dev.name, elapsed.Round(time.Millisecond), perFrame(elapsed, frames))
	return nil
}

func perFrame(d time.Duration, frames int) string {
	if frames == 0 {
		return "no frames"
	}
	return fmt.Sprintf("%v/frame", (d / time.Duration(frames)).Round(time.Microsecond))
}

type device struct {
	name     string
	instance hal.Instance
	device   hal.Device
	queue    hal.Queue
}

func (d *device) close() {
	_ = d.device.WaitIdle()
	d.device.Destroy()
	d.instance.Destroy()
}

func openDevice(name string) (*device, error) {
	var (
		backend hal.Backend
		err     error
	)
	switch name {
	case "auto":
		backend, err = hal.SelectBestBackend()
	case "vulkan", "noop":
		variant := gputypes.BackendVulkan
		if name == "noop" {
			variant = gputypes.BackendEmpty
		}
		var ok bool
		if backend, ok = hal.GetBackend(variant); !ok {
			err = fmt.Errorf("%s backend not available", name)
		}
	default:
		err = fmt.Errorf("unknown backend %q", name)
	}
	if err != nil {
		return nil, err
	}

	instance, err := backend.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return nil, fmt.Errorf("create instance: %w", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, fmt.Errorf("no GPU adapters found")
	}

	selected := &adapters[0]
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
			adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			selected = &adapters[i]
			break
		}
	}

	openDev, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return nil, fmt.Errorf("open device: %w", err)
	}
	return &device{
		name:     selected.Info.Name,
		instance: instance,
		device:   openDev.Device,
		queue:    openDev.Queue,
	}, nil
}
