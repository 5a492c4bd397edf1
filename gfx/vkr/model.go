// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vkr

import (
	"unsafe"

	glm "github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"

	"github.com/devblok/korufx/gfx"
)

// Vertex is the vertex layout consumed by pipelines
// created with NewPipeline.
type Vertex struct {
	Position glm.Vec3
	Color    glm.Vec3
}

var vertexStride = uint32(unsafe.Sizeof(Vertex{}))

var vertexBindings = []vk.VertexInputBindingDescription{{
	Binding:   0,
	Stride:    vertexStride,
	InputRate: vk.VertexInputRateVertex,
}}

var vertexAttributes = []vk.VertexInputAttributeDescription{{
	Location: 0,
	Binding:  0,
	Format:   vk.FormatR32g32b32Sfloat,
	Offset:   uint32(unsafe.Offsetof(Vertex{}.Position)),
}, {
	Location: 1,
	Binding:  0,
	Format:   vk.FormatR32g32b32Sfloat,
	Offset:   uint32(unsafe.Offsetof(Vertex{}.Color)),
}}

func vertexBytes(vertices []Vertex) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(&vertices[0])), len(vertices)*int(vertexStride))
}

// NewModel uploads vertices into a host visible vertex buffer.
func NewModel(d *Device, vertices []Vertex) (*Model, error) {
	if len(vertices) < 3 {
		return nil, errors.Errorf("vkr.NewModel(): need at least 3 vertices, got %d", len(vertices))
	}

	data := vertexBytes(vertices)
	buffer, err := NewBuffer(d.device, uint(len(data)), vk.BufferUsageVertexBufferBit, d.allocator)
	if err != nil {
		return nil, err
	}

	mapped, err := buffer.Mem().Map()
	if err != nil {
		buffer.Release()
		return nil, err
	}
	vk.Memcopy(mapped, data)
	buffer.Mem().Unmap()

	return &Model{
		buffer:      buffer,
		vertexCount: uint32(len(vertices)),
	}, nil
}

// Model is a list of vertices drawn as triangles.
type Model struct {
	buffer      Buffer
	vertexCount uint32
}

// VertexCount returns the number of vertices in the model.
func (m *Model) VertexCount() uint32 {
	return m.vertexCount
}

// Draw binds the vertex buffer and draws the model.
func (m *Model) Draw(cmd gfx.CommandBuffer) {
	buffer := cmd.(*CommandBuffer).buffer
	vk.CmdBindVertexBuffers(buffer, 0, 1, []vk.Buffer{m.buffer.Get()}, []vk.DeviceSize{0})
	vk.CmdDraw(buffer, m.vertexCount, 1, 0, 0)
}

// Release destroys the vertex buffer.
func (m *Model) Release() {
	m.buffer.Release()
}
