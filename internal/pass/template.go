package pass

import "fmt"

// Template selects the pass chain the manager runs.
type Template uint8

const (
	RasterOnly Template = iota
	PathtracerOnly
	SVGF
	BMFR
	templateCount
)

var templateNames = [templateCount]string{"raster", "pathtracer", "svgf", "bmfr"}

func (t Template) String() string {
	if t < templateCount {
		return templateNames[t]
	}
	return fmt.Sprintf("Template(%d)", t)
}

// Valid reports whether t names a template.
func (t Template) Valid() bool { return t < templateCount }

// NeedsRayTracer reports whether the template contains the path tracer.
func (t Template) NeedsRayTracer() bool { return t != RasterOnly }

// Templates returns every template in order.
func Templates() []Template {
	return []Template{RasterOnly, PathtracerOnly, SVGF, BMFR}
}

// ParseTemplate returns the template named s.
func ParseTemplate(s string) (Template, error) {
	for i, name := range templateNames {
		if name == s {
			return Template(i), nil //nolint:gosec // G115: index below templateCount
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrNoTemplate, s)
}
