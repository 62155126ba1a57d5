package attachment

import (
	"fmt"

	"github.com/gogpu/gputypes"
)

// Key identifies one shared attachment slot.
type Key uint8

const (
	// G-buffer outputs
	Position Key = iota
	Normal
	Albedo
	Depth
	MeshID
	MotionVector

	// Ray tracing and filter outputs
	RTOutput
	FilterOutput
	Intermediate
	ComputeOutput

	// Temporal history
	PrevPosition
	PrevNormal
	PrevAccumulated
	HistoryLength
	PrevHistoryLength
	PrevRegression

	// Scratch target for the a-trous iterations
	AtrousPing

	// Display is the composed frame handed to the frame driver.
	Display

	// KeyCount is the number of valid keys. It is not a slot.
	KeyCount
)

var keyNames = [...]string{
	Position:          "position",
	Normal:            "normal",
	Albedo:            "albedo",
	Depth:             "depth",
	MeshID:            "mesh_id",
	MotionVector:      "motion_vector",
	RTOutput:          "rt_output",
	FilterOutput:      "filter_output",
	Intermediate:      "intermediate",
	ComputeOutput:     "compute_output",
	PrevPosition:      "prev_position",
	PrevNormal:        "prev_normal",
	PrevAccumulated:   "prev_accumulated",
	HistoryLength:     "history_length",
	PrevHistoryLength: "prev_history_length",
	PrevRegression:    "prev_regression",
	AtrousPing:        "atrous_ping",
	Display:           "display",
}

// String returns the lower-case name of the key.
func (k Key) String() string {
	if k.Valid() {
		return keyNames[k]
	}
	return fmt.Sprintf("Key(%d)", uint8(k))
}

// Valid reports whether k names a slot.
func (k Key) Valid() bool {
	return k < KeyCount
}

// Keys returns every valid key in declaration order.
func Keys() []Key {
	keys := make([]Key, KeyCount)
	for i := range keys {
		keys[i] = Key(i)
	}
	return keys
}

// Spec is the format and usage of one attachment slot.
type Spec struct {
	Format gputypes.TextureFormat
	Usage  gputypes.TextureUsage
}

const (
	colorUsage = gputypes.TextureUsageRenderAttachment |
		gputypes.TextureUsageTextureBinding |
		gputypes.TextureUsageStorageBinding |
		gputypes.TextureUsageCopySrc |
		gputypes.TextureUsageCopyDst

	historyUsage = gputypes.TextureUsageTextureBinding |
		gputypes.TextureUsageStorageBinding |
		gputypes.TextureUsageRenderAttachment |
		gputypes.TextureUsageCopyDst

	depthUsage = gputypes.TextureUsageRenderAttachment |
		gputypes.TextureUsageTextureBinding |
		gputypes.TextureUsageCopySrc
)

// specs is indexed by Key. Every key below KeyCount has an entry.
var specs = [KeyCount]Spec{
	Position:          {gputypes.TextureFormatRGBA32Float, colorUsage},
	Normal:            {gputypes.TextureFormatRGBA32Float, colorUsage},
	Albedo:            {gputypes.TextureFormatRGBA8Unorm, colorUsage},
	Depth:             {gputypes.TextureFormatDepth24PlusStencil8, depthUsage},
	MeshID:            {gputypes.TextureFormatR32Uint, colorUsage},
	MotionVector:      {gputypes.TextureFormatRG32Float, colorUsage},
	RTOutput:          {gputypes.TextureFormatRGBA32Float, colorUsage},
	FilterOutput:      {gputypes.TextureFormatRGBA32Float, colorUsage},
	Intermediate:      {gputypes.TextureFormatRGBA32Float, colorUsage},
	ComputeOutput:     {gputypes.TextureFormatRGBA32Float, colorUsage},
	PrevPosition:      {gputypes.TextureFormatRGBA32Float, historyUsage},
	PrevNormal:        {gputypes.TextureFormatRGBA32Float, historyUsage},
	PrevAccumulated:   {gputypes.TextureFormatRGBA32Float, historyUsage},
	HistoryLength:     {gputypes.TextureFormatR32Float, colorUsage},
	PrevHistoryLength: {gputypes.TextureFormatR32Float, historyUsage},
	PrevRegression:    {gputypes.TextureFormatRGBA32Float, historyUsage},
	AtrousPing:        {gputypes.TextureFormatRGBA32Float, colorUsage},
	Display:           {gputypes.TextureFormatRGBA8Unorm, colorUsage},
}

// SpecOf returns the table entry for k. It panics on an invalid key.
func SpecOf(k Key) Spec {
	mustValid(k)
	return specs[k]
}

func mustValid(k Key) {
	if !k.Valid() {
		panic(fmt.Errorf("%w: %d", ErrInvalidKey, uint8(k)))
	}
}

// Names returns the name of every key in declaration order.
func Names() []string {
	names := make([]string, KeyCount)
	for i := range names {
		names[i] = Key(i).String()
	}
	return names
}
