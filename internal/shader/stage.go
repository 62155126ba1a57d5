package shader

import "github.com/gogpu/gputypes"

// Stage is a pipeline stage a module is loaded for.
type Stage uint8

const (
	Vertex Stage = iota
	Fragment
	Compute
	RayGen
	Miss
	ClosestHit
)

var stageNames = [...]string{"vertex", "fragment", "compute", "raygen", "miss", "closest_hit"}

func (s Stage) String() string {
	if int(s) < len(stageNames) {
		return stageNames[s]
	}
	return "unknown"
}

// EntryPoint is the function name the module exports for the stage.
// Ray tracing bytecode uses "main".
func (s Stage) EntryPoint() string {
	switch s {
	case Vertex:
		return "vs_main"
	case Fragment:
		return "fs_main"
	case Compute:
		return "cs_main"
	}
	return "main"
}

// Visibility returns the bind group visibility for raster and compute
// stages. Ray tracing stages have no gputypes equivalent and return
// ShaderStageNone.
func (s Stage) Visibility() gputypes.ShaderStages {
	switch s {
	case Vertex:
		return gputypes.ShaderStageVertex
	case Fragment:
		return gputypes.ShaderStageFragment
	case Compute:
		return gputypes.ShaderStageCompute
	}
	return gputypes.ShaderStageNone
}

// RayTracing reports whether the stage belongs to a ray tracing pipeline.
func (s Stage) RayTracing() bool {
	return s >= RayGen && s <= ClosestHit
}
