package rtfilters

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"golang.org/x/image/math/f32"

	"github.com/gogpu/rtfilters/internal/ubo"
)

// meshVertexStride is the size of one vertex: position, normal and color,
// three float32 each.
const meshVertexStride = 36

// ErrEmptyMesh is returned by NewMeshScene for a mesh without triangles.
var ErrEmptyMesh = errors.New("rtfilters: empty mesh")

// MeshVertex is one vertex of a MeshScene.
type MeshVertex struct {
	Position f32.Vec3
	Normal   f32.Vec3
	Color    f32.Vec3
}

// Mesh is indexed triangle geometry.
type Mesh struct {
	Vertices []MeshVertex
	Indices  []uint32
	// Albedo is the material color stored in the material buffer.
	Albedo f32.Vec4
}

// Cube returns a unit cube centered on the origin with one color per face.
func Cube() Mesh {
	faces := []struct {
		normal, u, v, color f32.Vec3
	}{
		{f32.Vec3{0, 0, 1}, f32.Vec3{1, 0, 0}, f32.Vec3{0, 1, 0}, f32.Vec3{0.9, 0.2, 0.2}},
		{f32.Vec3{0, 0, -1}, f32.Vec3{-1, 0, 0}, f32.Vec3{0, 1, 0}, f32.Vec3{0.2, 0.9, 0.2}},
		{f32.Vec3{1, 0, 0}, f32.Vec3{0, 0, -1}, f32.Vec3{0, 1, 0}, f32.Vec3{0.2, 0.2, 0.9}},
		{f32.Vec3{-1, 0, 0}, f32.Vec3{0, 0, 1}, f32.Vec3{0, 1, 0}, f32.Vec3{0.9, 0.9, 0.2}},
		{f32.Vec3{0, 1, 0}, f32.Vec3{1, 0, 0}, f32.Vec3{0, 0, -1}, f32.Vec3{0.2, 0.9, 0.9}},
		{f32.Vec3{0, -1, 0}, f32.Vec3{1, 0, 0}, f32.Vec3{0, 0, 1}, f32.Vec3{0.9, 0.2, 0.9}},
	}
	corners := [4][2]float32{{-1, -1}, {1, -1}, {1, 1}, {-1, 1}}

	var m Mesh
	m.Albedo = f32.Vec4{1, 1, 1, 1}
	for _, f := range faces {
		base := uint32(len(m.Vertices)) //nolint:gosec // G115: at most 24 vertices
		for _, c := range corners {
			var p f32.Vec3
			for i := range p {
				p[i] = 0.5 * (f.normal[i] + c[0]*f.u[i] + c[1]*f.v[i])
			}
			m.Vertices = append(m.Vertices, MeshVertex{Position: p, Normal: f.normal, Color: f.color})
		}
		m.Indices = append(m.Indices, base, base+1, base+2, base, base+2, base+3)
	}
	return m
}

// MeshScene is a Scene holding one mesh. It has a single node, so
// DrawPreTransform has no effect.
type MeshScene struct {
	device hal.Device

	vertices, indices, materials hal.Buffer
	vertexCount, indexCount      uint32

	transform      *ubo.Managed[f32.Mat4]
	uniformsLayout hal.BindGroupLayout
	imagesLayout   hal.BindGroupLayout
	uniforms       hal.BindGroup
	images         hal.BindGroup
}

// NewMeshScene uploads mesh to device through queue.
func NewMeshScene(device hal.Device, queue hal.Queue, mesh Mesh) (*MeshScene, error) {
	if len(mesh.Vertices) == 0 || len(mesh.Indices) == 0 {
		return nil, ErrEmptyMesh
	}
	s := &MeshScene{
		device:      device,
		vertexCount: uint32(len(mesh.Vertices)), //nolint:gosec // G115: mesh sizes fit in uint32
		indexCount:  uint32(len(mesh.Indices)),  //nolint:gosec // G115: mesh sizes fit in uint32
		transform:   ubo.New("mesh_transform", Identity()),
	}
	if err := s.create(queue, mesh); err != nil {
		s.Close()
		return nil, err
	}
	Logger().Debug("rtfilters: mesh scene uploaded", "vertices", s.vertexCount, "indices", s.indexCount)
	return s, nil
}

func (s *MeshScene) create(queue hal.Queue, mesh Mesh) error {
	usage := gputypes.BufferUsageStorage | gputypes.BufferUsageCopyDst
	var err error
	if s.vertices, err = s.upload(queue, "mesh_vertices", usage|gputypes.BufferUsageVertex, vertexBytes(mesh.Vertices)); err != nil {
		return err
	}
	if s.indices, err = s.upload(queue, "mesh_indices", usage|gputypes.BufferUsageIndex, indexBytes(mesh.Indices)); err != nil {
		return err
	}
	if s.materials, err = s.upload(queue, "mesh_materials", usage, floatBytes(mesh.Albedo[:])); err != nil {
		return err
	}

	if err := s.transform.Prepare(s.device, queue); err != nil {
		return err
	}
	stages := gputypes.ShaderStageVertex | gputypes.ShaderStageFragment
	s.uniformsLayout, err = s.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label:   "mesh_uniforms",
		Entries: []gputypes.BindGroupLayoutEntry{s.transform.LayoutEntry(0, stages)},
	})
	if err != nil {
		return fmt.Errorf("create mesh uniforms layout: %w", err)
	}
	s.uniforms, err = s.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:   "mesh_uniforms",
		Layout:  s.uniformsLayout,
		Entries: []gputypes.BindGroupEntry{s.transform.Entry(0)},
	})
	if err != nil {
		return fmt.Errorf("create mesh uniforms group: %w", err)
	}

	// The mesh is untextured; the images group is bound empty.
	s.imagesLayout, err = s.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{Label: "mesh_images"})
	if err != nil {
		return fmt.Errorf("create mesh images layout: %w", err)
	}
	s.images, err = s.device.CreateBindGroup(&hal.BindGroupDescriptor{Label: "mesh_images", Layout: s.imagesLayout})
	if err != nil {
		return fmt.Errorf("create mesh images group: %w", err)
	}
	return nil
}

func (s *MeshScene) upload(queue hal.Queue, label string, usage gputypes.BufferUsage, data []byte) (hal.Buffer, error) {
	buf, err := s.device.CreateBuffer(&hal.BufferDescriptor{
		Label: label,
		Size:  uint64(len(data)),
		Usage: usage,
	})
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", label, err)
	}
	if err := queue.WriteBuffer(buf, 0, data); err != nil {
		s.device.DestroyBuffer(buf)
		return nil, fmt.Errorf("write %s: %w", label, err)
	}
	return buf, nil
}

func (s *MeshScene) VertexBuffer() hal.Buffer   { return s.vertices }
func (s *MeshScene) IndexBuffer() hal.Buffer    { return s.indices }
func (s *MeshScene) MaterialBuffer() hal.Buffer { return s.materials }
func (s *MeshScene) VertexCount() uint32        { return s.vertexCount }
func (s *MeshScene) IndexCount() uint32         { return s.indexCount }

func (s *MeshScene) VertexLayout() gputypes.VertexBufferLayout {
	return gputypes.VertexBufferLayout{
		ArrayStride: meshVertexStride,
		StepMode:    gputypes.VertexStepModeVertex,
		Attributes: []gputypes.VertexAttribute{
			{Format: gputypes.VertexFormatFloat32x3, Offset: 0, ShaderLocation: 0},
			{Format: gputypes.VertexFormatFloat32x3, Offset: 12, ShaderLocation: 1},
			{Format: gputypes.VertexFormatFloat32x3, Offset: 24, ShaderLocation: 2},
		},
	}
}

func (s *MeshScene) Layouts() (uniforms, images hal.BindGroupLayout) {
	return s.uniformsLayout, s.imagesLayout
}

// SetTransform replaces the mesh transform.
func (s *MeshScene) SetTransform(m f32.Mat4) error {
	s.transform.Set(m)
	return s.transform.Update()
}

// Draw binds the uniforms group at firstGroup and, with DrawBindImages,
// the images group after it, then draws the mesh.
func (s *MeshScene) Draw(enc hal.RenderPassEncoder, flags DrawFlags, _ hal.PipelineLayout, firstGroup uint32) {
	enc.SetBindGroup(firstGroup, s.uniforms, nil)
	if flags&DrawBindImages != 0 {
		enc.SetBindGroup(firstGroup+1, s.images, nil)
	}
	enc.SetVertexBuffer(0, s.vertices, 0)
	enc.SetIndexBuffer(s.indices, gputypes.IndexFormatUint32, 0)
	enc.DrawIndexed(s.indexCount, 1, 0, 0, 0)
}

// Close destroys the scene's GPU objects.
func (s *MeshScene) Close() {
	if s.images != nil {
		s.device.DestroyBindGroup(s.images)
		s.images = nil
	}
	if s.uniforms != nil {
		s.device.DestroyBindGroup(s.uniforms)
		s.uniforms = nil
	}
	if s.imagesLayout != nil {
		s.device.DestroyBindGroupLayout(s.imagesLayout)
		s.imagesLayout = nil
	}
	if s.uniformsLayout != nil {
		s.device.DestroyBindGroupLayout(s.uniformsLayout)
		s.uniformsLayout = nil
	}
	s.transform.Destroy()
	for _, b := range []*hal.Buffer{&s.vertices, &s.indices, &s.materials} {
		if *b != nil {
			s.device.DestroyBuffer(*b)
			*b = nil
		}
	}
}

func vertexBytes(vs []MeshVertex) []byte {
	out := make([]byte, 0, len(vs)*meshVertexStride)
	for _, v := range vs {
		out = appendFloats(out, v.Position[:])
		out = appendFloats(out, v.Normal[:])
		out = appendFloats(out, v.Color[:])
	}
	return out
}

func indexBytes(is []uint32) []byte {
	out := make([]byte, 0, len(is)*4)
	for _, i := range is {
		out = binary.LittleEndian.AppendUint32(out, i)
	}
	return out
}

func floatBytes(fs []float32) []byte { return appendFloats(nil, fs) }

func appendFloats(out []byte, fs []float32) []byte {
	for _, f := range fs {
		out = binary.LittleEndian.AppendUint32(out, math.Float32bits(f))
	}
	return out
}
