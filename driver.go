package rtfilters

import (
	"math"
	"time"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/wgpu/hal"
)

// timerPeriod is the length of one animation cycle of Driver.Timer.
const timerPeriod = 10 * time.Second

// Driver is a FrameDriver for offscreen rendering on a hal device.
type Driver struct {
	device        hal.Device
	queue         hal.Queue
	width, height uint32
	start         time.Time

	present *Semaphore
	render  *Semaphore
}

// NewDriver returns a driver rendering width x height frames.
func NewDriver(device hal.Device, queue hal.Queue, width, height uint32) *Driver {
	return &Driver{
		device:  device,
		queue:   queue,
		width:   width,
		height:  height,
		start:   time.Now(),
		present: NewSemaphore("present_complete"),
		render:  NewSemaphore("render_complete"),
	}
}

func (d *Driver) Device() hal.Device             { return d.device }
func (d *Driver) Queue() hal.Queue               { return d.queue }
func (d *Driver) Extent() (width, height uint32) { return d.width, d.height }
func (d *Driver) PresentComplete() *Semaphore    { return d.present }
func (d *Driver) RenderComplete() *Semaphore     { return d.render }
func (d *Driver) SetExtent(width, height uint32) { d.width, d.height = width, height }

// Timer returns the position in the animation cycle in [0, 1).
func (d *Driver) Timer() float32 {
	return float32(math.Mod(time.Since(d.start).Seconds()/timerPeriod.Seconds(), 1))
}

// NewFromProvider renders on the device of a host application. The
// provider must implement HalDevice() any and HalQueue() any returning
// hal.Device and hal.Queue.
func NewFromProvider(provider gpucontext.DeviceProvider, width, height uint32, opts ...Option) (*Renderer, error) {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, ErrNoHalProvider
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, ErrNoHalProvider
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, ErrNoHalProvider
	}
	Logger().Debug("rtfilters: using provider device", "width", width, "height", height)
	return New(NewDriver(device, queue, width, height), opts...)
}
