// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package scene

import (
	"encoding/binary"
	"math"

	glm "github.com/go-gl/mathgl/mgl32"

	"github.com/devblok/korufx/gfx"
)

// PushDataSize is the size of PushData as laid out for shaders.
const PushDataSize = 48

// PushData is pushed to the pipeline before drawing each object.
// The shader side declares
//
//	layout(push_constant) uniform Push {
//		mat2 transform;
//		vec2 offset;
//		vec3 color;
//	} push;
type PushData struct {
	Transform glm.Mat2
	Offset    glm.Vec2
	Color     glm.Vec3
}

// Bytes encodes the push data with std430 offsets:
// transform at 0, offset at 16 and color at 32.
func (p PushData) Bytes() []byte {
	buf := make([]byte, PushDataSize)
	put := func(offset int, values ...float32) {
		for idx, v := range values {
			binary.LittleEndian.PutUint32(buf[offset+4*idx:], math.Float32bits(v))
		}
	}
	put(0, p.Transform[:]...)
	put(16, p.Offset[:]...)
	put(32, p.Color[:]...)
	return buf
}

// NewRenderSystem creates a render system drawing the
// objects of registry with pipeline.
func NewRenderSystem(pipeline Pipeline, registry *Registry) *RenderSystem {
	return &RenderSystem{
		pipeline: pipeline,
		registry: registry,
	}
}

// RenderSystem draws every object that has a model.
type RenderSystem struct {
	pipeline Pipeline
	registry *Registry
}

// Draw implements core.Drawable
func (s *RenderSystem) Draw(cmd gfx.CommandBuffer, slot int) {
	s.pipeline.Bind(cmd)
	for _, obj := range s.registry.Objects() {
		if obj.Model == nil {
			continue
		}
		push := PushData{
			Transform: obj.Transform.Mat2(),
			Offset:    obj.Transform.Translation,
			Color:     obj.Color,
		}
		s.pipeline.Push(cmd, push.Bytes())
		obj.Model.Draw(cmd)
	}
}
