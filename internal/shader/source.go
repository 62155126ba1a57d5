package shader

import (
	"embed"
	"encoding/binary"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/gogpu/naga"
)

//go:embed shaders/*.wgsl
var embedded embed.FS

// Errors returned while locating or compiling a shader.
var (
	ErrNotFound     = errors.New("shader: not found")
	ErrInvalidSPIRV = errors.New("shader: SPIR-V length is not a multiple of 4")
)

// Source returns the embedded WGSL source for name.
func Source(name string) (string, error) {
	data, err := embedded.ReadFile(path.Join("shaders", name+".wgsl"))
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return string(data), nil
}

// Names lists the embedded shaders in lexical order.
func Names() []string {
	entries, err := fs.ReadDir(embedded, "shaders")
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), ".wgsl"))
	}
	sort.Strings(names)
	return names
}

// Compile compiles WGSL source to SPIR-V words.
func Compile(wgsl string) ([]uint32, error) {
	spirv, err := naga.Compile(wgsl)
	if err != nil {
		return nil, fmt.Errorf("compile shader: %w", err)
	}
	return Words(spirv)
}

// Words converts little-endian SPIR-V bytes to words.
func Words(spirv []byte) ([]uint32, error) {
	if len(spirv)%4 != 0 {
		return nil, fmt.Errorf("%w (%d bytes)", ErrInvalidSPIRV, len(spirv))
	}
	words := make([]uint32, len(spirv)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(spirv[i*4:])
	}
	return words, nil
}
